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

import "strings"

// StreamSuffixErrors replaces the identity suffix of a stream name when the
// identity can't be resolved.
const StreamSuffixErrors = "stream-suffix-errors"

// StreamDescriptor addresses one destination of the transport.
type StreamDescriptor struct {
	GroupName  string
	StreamName string
}

func (d StreamDescriptor) String() string {
	return d.GroupName + ":" + d.StreamName
}

// StreamComposer names the stream of each logger category.
//
// GroupName is the application namespace joined with the deployment
// environment. StreamName is category/instanceId/workerLabel.
type StreamComposer struct {
	Namespace   string
	Environment string
	Identity    func() (ProcessIdentity, error)
}

// StaticIdentity returns an Identity func for an already resolved identity.
func StaticIdentity(p ProcessIdentity) func() (ProcessIdentity, error) {
	return func() (ProcessIdentity, error) { return p, nil }
}

// Compose returns the descriptor for category. It never fails: an identity
// error or panic is replaced by StreamSuffixErrors.
func (c StreamComposer) Compose(category string) StreamDescriptor {
	return StreamDescriptor{
		GroupName:  c.groupName(),
		StreamName: category + "/" + c.suffix(),
	}
}

func (c StreamComposer) groupName() string {
	parts := make([]string, 0, 2)
	if c.Namespace != "" {
		parts = append(parts, c.Namespace)
	}
	if c.Environment != "" {
		parts = append(parts, c.Environment)
	}
	return strings.Join(parts, "-")
}

func (c StreamComposer) suffix() (s string) {
	defer func() {
		if recover() != nil {
			s = StreamSuffixErrors
		}
	}()
	if c.Identity == nil {
		return StreamSuffixErrors
	}
	p, err := c.Identity()
	if err != nil {
		return StreamSuffixErrors
	}
	return p.Suffix()
}
