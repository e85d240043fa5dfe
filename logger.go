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
	"fmt"
	"os"
	"sync"
	"time"
)

// Logger gates and forwards records for one category.
//
// Every Logger owns a StreamDescriptor composed once at construction. A call
// is checked against the hierarchy and the threshold; a passing call is
// formatted and handed to the transport. Calls that pass the gate reach the
// transport in the order they passed it. All methods are safe for concurrent
// use and never panic or return an error to the caller.
type Logger struct {
	category  string
	stream    StreamDescriptor
	transport Transport
	threshold *Threshold
	hierarchy *Hierarchy
	metrics   *Metrics
	timeFunc  TimeFunction

	mu sync.Mutex
}

// LogOptions is the general form of a log call.
type LogOptions struct {
	// Level defaults to InfoLevel.
	Level   Level
	Message any
	Err     error
	Request *RequestSnapshot
}

// NewLogger constructs a Logger for category.
func NewLogger(category string, o LoggerOptions) *Logger {
	l := &Logger{
		category:  category,
		transport: o.Transport,
		threshold: o.Threshold,
		hierarchy: o.Hierarchy,
		metrics:   o.Metrics,
		timeFunc:  o.TimeFunction,
	}
	if l.transport == nil {
		l.transport = NewConsoleTransport(os.Stderr, ConsoleOptions{})
	}
	if l.threshold == nil {
		l.threshold = ProcessThreshold()
	}
	if l.hierarchy == nil {
		l.hierarchy = DefaultHierarchy()
	}
	l.stream = o.Composer.Compose(category)
	return l
}

// Category returns the name the Logger was built for.
func (l *Logger) Category() string { return l.category }

// Stream returns the descriptor every record of this Logger is appended to.
func (l *Logger) Stream() StreamDescriptor { return l.stream }

// Enabled reports whether a call at level would currently be forwarded.
// It reports nothing about invalid levels.
func (l *Logger) Enabled(level Level) bool {
	ok, err := l.hierarchy.Allows(level, l.threshold.Level())
	return err == nil && ok
}

// Log forwards msg at level as is.
func (l *Logger) Log(level Level, msg string) {
	if !l.gate(level) {
		return
	}
	l.forward(LogRecord{Level: level, Message: msg})
}

// Logf formats and forwards a message at level. Formatting only happens when
// the call passes the gate.
func (l *Logger) Logf(level Level, format string, args ...any) {
	if !l.gate(level) {
		return
	}
	l.forward(LogRecord{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogObject forwards v at level, rendered with Stringify.
func (l *Logger) LogObject(level Level, v any) {
	if !l.gate(level) {
		return
	}
	l.forward(LogRecord{Level: level, Message: Stringify(v)})
}

// LogWithOptions composes a block message from o (see ComposeMessage) and
// forwards it. The STACK block shows the caller of LogWithOptions unless
// o.Err carries its own stack.
func (l *Logger) LogWithOptions(o LogOptions) {
	l.logWithOptions(o, captureStack(1))
}

func (l *Logger) logWithOptions(o LogOptions, callSite []uintptr) {
	level := o.Level
	if level == "" {
		level = InfoLevel
	}
	if !l.gate(level) {
		return
	}
	text := composeMessage(Record{Message: o.Message, Err: o.Err, Request: o.Request}, callSite)
	l.forward(LogRecord{Level: level, Message: text, Request: o.Request})
}

// InfoRequest logs msg at info level together with a request snapshot.
func (l *Logger) InfoRequest(msg string, req *RequestSnapshot) {
	l.logWithOptions(LogOptions{Level: InfoLevel, Message: msg, Request: req}, captureStack(1))
}

// Error logs msg at the most severe level of the hierarchy.
func (l *Logger) Error(msg string) { l.Log(l.hierarchy.MostSevere(), msg) }

// Warn logs msg at WarnLevel.
func (l *Logger) Warn(msg string) { l.Log(WarnLevel, msg) }

// Info logs msg at InfoLevel.
func (l *Logger) Info(msg string) { l.Log(InfoLevel, msg) }

// Verbose logs msg at VerboseLevel.
func (l *Logger) Verbose(msg string) { l.Log(VerboseLevel, msg) }

// Debug logs msg at DebugLevel.
func (l *Logger) Debug(msg string) { l.Log(DebugLevel, msg) }

// Silly logs msg at SillyLevel.
func (l *Logger) Silly(msg string) { l.Log(SillyLevel, msg) }

// Errorf formats and logs a message at the most severe level of the hierarchy.
func (l *Logger) Errorf(format string, args ...any) {
	l.Logf(l.hierarchy.MostSevere(), format, args...)
}

// Warnf formats and logs a message at WarnLevel.
func (l *Logger) Warnf(format string, args ...any) { l.Logf(WarnLevel, format, args...) }

// Infof formats and logs a message at InfoLevel.
func (l *Logger) Infof(format string, args ...any) { l.Logf(InfoLevel, format, args...) }

// Verbosef formats and logs a message at VerboseLevel.
func (l *Logger) Verbosef(format string, args ...any) { l.Logf(VerboseLevel, format, args...) }

// Debugf formats and logs a message at DebugLevel.
func (l *Logger) Debugf(format string, args ...any) { l.Logf(DebugLevel, format, args...) }

// Sillyf formats and logs a message at SillyLevel.
func (l *Logger) Sillyf(format string, args ...any) { l.Logf(SillyLevel, format, args...) }

// Profile places a timing mark on the Logger's stream. It is not gated.
func (l *Logger) Profile(label string) {
	defer l.absorb()
	l.transport.Profile(l.stream, label)
}

// gate decides whether a call at level passes. An invalid level or threshold
// is reported once for this call and the call is dropped.
func (l *Logger) gate(level Level) bool {
	ok, err := l.hierarchy.Allows(level, l.threshold.Level())
	m := l.counters()
	switch {
	case err != nil:
		m.suppress(ReasonInvalid)
		l.reportMisuse(err)
		return false
	case !ok && l.hierarchy.Silent():
		m.suppress(ReasonSilent)
		return false
	case !ok:
		m.suppress(ReasonLevel)
		return false
	}
	return true
}

// reportMisuse forwards err at the most severe level. It skips the threshold
// comparison, which may be the broken part, but honors the silence switch.
func (l *Logger) reportMisuse(err error) {
	if l.hierarchy.Silent() {
		return
	}
	text := composeMessage(Record{Message: "invalid log call", Err: err}, captureStack(2))
	l.forward(LogRecord{Level: l.hierarchy.MostSevere(), Message: text})
}

func (l *Logger) forward(rec LogRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.absorb()

	// stamped under the lock so timestamps follow delivery order.
	rec.Time = l.now()

	l.transport.Append(l.stream, rec)
	l.counters().record(rec.Level)
}

// absorb keeps a misbehaving transport from reaching the caller.
func (l *Logger) absorb() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "cloudlog: transport panic on %s: %v\n", l.stream, r)
	}
}

func (l *Logger) now() time.Time {
	t := time.Now()
	if l.timeFunc != nil {
		t = l.timeFunc(t)
	}
	return t
}

func (l *Logger) counters() *Metrics {
	if l.metrics != nil {
		return l.metrics
	}
	return processMetrics()
}
