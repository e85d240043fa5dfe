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
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// syncWriter serializes writes to an underlying io.Writer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// ConsoleTransport writes records as styled lines to an io.Writer.
//
// Each record becomes one line of the form
//
//	[timestamp ]LEVEL group:stream: message
//
// where the message keeps its embedded newlines. In asynchronous mode lines
// go through a bounded queue and a single background worker.
type ConsoleTransport struct {
	out             *syncWriter
	worker          *worker
	styles          *Styles
	timeFormat      string
	reportTimestamp bool
	reportRequest   bool
	profiler        *Profiler
	closed          atomic.Bool
}

// NewConsoleTransport builds a ConsoleTransport writing to w, or to standard
// error when w is nil.
func NewConsoleTransport(w io.Writer, o ConsoleOptions) *ConsoleTransport {
	if w == nil {
		w = os.Stderr
	}
	styles := o.Styles
	if styles == nil {
		styles = DefaultStyles()
	}
	styles = styles.cached()

	t := &ConsoleTransport{
		out:             &syncWriter{w: w},
		styles:          styles,
		timeFormat:      o.TimeFormat,
		reportTimestamp: o.ReportTimestamp,
		reportRequest:   o.ReportRequest,
		profiler:        NewProfiler(nil),
	}
	if t.timeFormat == "" {
		t.timeFormat = DefaultTimeFormat
	}
	if o.Async {
		size := o.BufferSize
		if size <= 0 {
			size = 8192
		}
		t.worker = newWorker(t.out, size, o.OverflowStrategy)
	}
	return t
}

// Append formats rec and writes it, or queues it in asynchronous mode.
// Records appended after Close are dropped.
func (t *ConsoleTransport) Append(stream StreamDescriptor, rec LogRecord) {
	if t.closed.Load() {
		return
	}

	b := getBuffer()
	t.format(b, stream, rec)

	if t.worker != nil {
		t.worker.submit(b)
		return
	}
	if _, err := t.out.Write(b.B); err != nil {
		t.reportError(err)
	}
	putBuffer(b)
}

// Profile records a timing mark; the closing mark is written as an info record.
func (t *ConsoleTransport) Profile(stream StreamDescriptor, label string) {
	if rec, ok := t.profiler.Mark(stream, label); ok {
		t.Append(stream, rec)
	}
}

// Sync flushes queued lines. It is a no-op for a synchronous transport.
func (t *ConsoleTransport) Sync() error {
	if t.worker == nil {
		return nil
	}
	return t.worker.sync()
}

// Close flushes queued lines and stops the worker. Close is idempotent.
func (t *ConsoleTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	if t.worker != nil {
		t.worker.stop()
	}
	return nil
}

func (t *ConsoleTransport) format(b *buffer, stream StreamDescriptor, rec LogRecord) {
	if t.reportTimestamp && !rec.Time.IsZero() {
		b.WriteString(t.styles.Timestamp.Render(string(appendStamp(nil, rec.Time, t.timeFormat))))
		b.WriteByte(' ')
	}
	b.WriteString(t.styles.badge(rec.Level))
	b.WriteByte(' ')
	b.WriteString(t.styles.Stream.Render(stream.String() + ":"))
	b.WriteByte(' ')
	// the message is written raw: styling a multi-line block would pad its lines.
	b.WriteString(rec.Message)
	if t.reportRequest && !rec.Request.IsZero() {
		b.WriteByte(' ')
		b.WriteString(t.styles.Request.Render(rec.Request.String()))
	}
	b.WriteByte('\n')
}

var _consoleErr atomic.Pointer[string]

func (t *ConsoleTransport) reportError(err error) {
	msg := err.Error()
	if prev := _consoleErr.Swap(&msg); prev != nil && *prev == msg {
		return
	}
	io.WriteString(os.Stderr, "cloudlog: console write error: "+msg+"\n")
}
