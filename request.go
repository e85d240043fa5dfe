// Copyright (c) 2026 blairtcg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cloudlog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// RequestSnapshot is the allowlisted, acyclic projection of an inbound request
// that may appear in a log record. Headers are never part of it.
type RequestSnapshot struct {
	Method  string              `json:"method,omitempty"`
	URL     string              `json:"url,omitempty"`
	Body    any                 `json:"body,omitempty"`
	Query   map[string][]string `json:"query,omitempty"`
	Params  map[string]string   `json:"params,omitempty"`
	Cookies map[string]string   `json:"cookies,omitempty"`
	Host    string              `json:"host,omitempty"`
	BaseURL string              `json:"baseUrl,omitempty"`
}

// SnapshotOption adds caller supplied data to a RequestSnapshot.
type SnapshotOption func(*RequestSnapshot)

// WithBody attaches the decoded request body. The body stream of an
// http.Request is never read by SnapshotRequest.
func WithBody(body any) SnapshotOption {
	return func(s *RequestSnapshot) {
		s.Body = body
	}
}

// SnapshotRequest projects r onto the allowlisted fields.
//
// Route params and the mount base path come from the chi route context when
// the request was routed by chi; the catch-all "*" param is left out.
func SnapshotRequest(r *http.Request, opts ...SnapshotOption) *RequestSnapshot {
	if r == nil {
		return nil
	}

	s := &RequestSnapshot{
		Method: r.Method,
		Host:   r.Host,
	}
	if r.URL != nil {
		s.URL = r.URL.RequestURI()
		if q := r.URL.Query(); len(q) > 0 {
			s.Query = q
		}
	}
	if cookies := r.Cookies(); len(cookies) > 0 {
		s.Cookies = make(map[string]string, len(cookies))
		for _, c := range cookies {
			s.Cookies[c.Name] = c.Value
		}
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		for i, k := range rctx.URLParams.Keys {
			if k == "*" || i >= len(rctx.URLParams.Values) {
				continue
			}
			if s.Params == nil {
				s.Params = make(map[string]string, len(rctx.URLParams.Keys))
			}
			s.Params[k] = rctx.URLParams.Values[i]
		}
		if rctx.RoutePath != "" && r.URL != nil {
			s.BaseURL = strings.TrimSuffix(r.URL.Path, rctx.RoutePath)
		}
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// String encodes the snapshot as JSON. The body goes through Stringify, so a
// cyclic body degrades to a placeholder instead of breaking the snapshot.
func (s *RequestSnapshot) String() string {
	if s == nil {
		return ""
	}

	c := *s
	if _, isText := c.Body.(string); c.Body != nil && !isText {
		text := Stringify(c.Body)
		if json.Valid([]byte(text)) {
			c.Body = json.RawMessage(text)
		} else {
			c.Body = text
		}
	}

	b, err := json.Marshal(c)
	if err != nil {
		return unserializable(s)
	}
	return string(b)
}

// IsZero reports whether no allowlisted field is set.
func (s *RequestSnapshot) IsZero() bool {
	return s == nil || (s.Method == "" && s.URL == "" && s.Body == nil && len(s.Query) == 0 &&
		len(s.Params) == 0 && len(s.Cookies) == 0 && s.Host == "" && s.BaseURL == "")
}
