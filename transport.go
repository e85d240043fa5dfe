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
	"strconv"
	"sync"
	"time"
)

// LogRecord is one gated, fully composed log entry on its way to a transport.
// It is built per call and never retained by the Logger.
type LogRecord struct {
	Time    time.Time
	Level   Level
	Message string
	Request *RequestSnapshot
}

// Transport appends records to named streams.
//
// Append is fire-and-forget: a transport owns its failures and never reports
// them to the caller. Records appended from one goroutine must reach the
// stream in the order they were appended.
type Transport interface {
	Append(stream StreamDescriptor, rec LogRecord)
	Profile(stream StreamDescriptor, label string)
	Close() error
}

// Profiler implements timing marks for transports.
//
// The first mark of a label on a stream starts a timer; the second mark stops
// it and yields an info record carrying the elapsed milliseconds.
type Profiler struct {
	mu    sync.Mutex
	marks map[profileKey]time.Time
	now   func() time.Time
}

type profileKey struct {
	stream StreamDescriptor
	label  string
}

// NewProfiler returns a Profiler reading the clock through now, or time.Now when nil.
func NewProfiler(now func() time.Time) *Profiler {
	if now == nil {
		now = time.Now
	}
	return &Profiler{marks: make(map[profileKey]time.Time), now: now}
}

// Mark records a timing mark. It returns the record to append when the mark
// completes a pair.
func (p *Profiler) Mark(stream StreamDescriptor, label string) (LogRecord, bool) {
	key := profileKey{stream: stream, label: label}
	t := p.now()

	p.mu.Lock()
	start, running := p.marks[key]
	if running {
		delete(p.marks, key)
	} else {
		p.marks[key] = t
	}
	p.mu.Unlock()

	if !running {
		return LogRecord{}, false
	}
	ms := t.Sub(start).Milliseconds()
	return LogRecord{
		Time:    t,
		Level:   InfoLevel,
		Message: label + " durationMs=" + strconv.FormatInt(ms, 10),
	}, true
}
