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
	"errors"
	"runtime"
	"strconv"
	"strings"
)

const maxTraceDepth = 10

// captureStack records the program counters of the caller's stack. skip 0
// starts at the function calling captureStack.
func captureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	return append([]uintptr(nil), pcs[:n]...)
}

// StackCarrier is implemented by errors that remember where they were created.
type StackCarrier interface {
	Callers() []uintptr
}

type stackError struct {
	err error
	pcs []uintptr
}

func (e *stackError) Error() string { return e.err.Error() }
func (e *stackError) Unwrap() error { return e.err }
func (e *stackError) Callers() []uintptr { return e.pcs }

// WithStack annotates err with the stack at the point WithStack was called.
// ComposeMessage prints that stack instead of the logging call site.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &stackError{err: err, pcs: captureStack(1)}
}

func errorStack(err error) []uintptr {
	var sc StackCarrier
	if errors.As(err, &sc) {
		return sc.Callers()
	}
	return nil
}

// renderStack processes program counters into plain text, one frame per line.
//
// It relies entirely on runtime.CallersFrames, skips runtime and test runner
// internals, and hides this module's own frames unless they live in a test file.
func renderStack(pcs []uintptr) string {
	if len(pcs) == 0 {
		return ""
	}

	b := getBuffer()
	defer putBuffer(b)

	frames := runtime.CallersFrames(pcs)
	rendered := 0
	for {
		frame, more := frames.Next()

		if skipFrame(frame) {
			if !more {
				break
			}
			continue
		}
		if rendered >= maxTraceDepth {
			break
		}

		// isolate the function name from its package path.
		fn := frame.Function
		if idx := strings.LastIndexByte(fn, '/'); idx >= 0 {
			fn = fn[idx+1:]
		}
		if idx := strings.IndexByte(fn, '.'); idx >= 0 {
			fn = fn[idx+1:]
		}

		file := frame.File
		if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
			file = file[idx+1:]
		}

		b.WriteString("    at ")
		b.WriteString(fn)
		b.WriteByte(' ')
		b.WriteString(file)
		b.WriteByte(':')
		b.B = strconv.AppendInt(b.B, int64(frame.Line), 10)
		b.WriteByte('\n')

		rendered++
		if !more {
			break
		}
	}
	return string(b.B)
}

func skipFrame(frame runtime.Frame) bool {
	if strings.Contains(frame.File, "runtime/") || strings.Contains(frame.File, "testing/") {
		return true
	}
	own := strings.HasPrefix(frame.Function, "cloudlog.") || strings.HasPrefix(frame.Function, "cloudlog/")
	return own && !strings.HasSuffix(frame.File, "_test.go")
}
