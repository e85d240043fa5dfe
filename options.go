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

import "time"

// OverflowStrategy dictates how an asynchronous transport behaves when its queue fills up.
//
// Neither strategy writes around the queue, so records never overtake each other.
type OverflowStrategy int

const (
	// OverflowBlock pauses the calling goroutine until the background worker
	// frees up space in the queue. No records are lost.
	OverflowBlock OverflowStrategy = iota
	// OverflowDrop discards new records until space becomes available. This
	// prioritizes application latency over log completeness.
	OverflowDrop
)

// TimeFunction defines a custom hook for generating or modifying timestamps.
type TimeFunction func(time.Time) time.Time

// DefaultTimeFormat specifies the standard timestamp layout used when no custom format is provided.
const DefaultTimeFormat = "2006/01/02 15:04:05"

// ConsoleOptions configures a ConsoleTransport.
type ConsoleOptions struct {
	// Async routes records through a background worker and a bounded queue.
	Async bool

	// BufferSize is the queue capacity of an asynchronous transport. It defaults to 8192.
	BufferSize int

	// OverflowStrategy dictates behavior when the asynchronous queue fills up.
	// It defaults to OverflowBlock.
	OverflowStrategy OverflowStrategy

	// ReportTimestamp prints the record time at the start of each line.
	ReportTimestamp bool

	// TimeFormat specifies the layout string for timestamps.
	// It defaults to DefaultTimeFormat.
	TimeFormat string

	// ReportRequest appends the request snapshot of a record as JSON.
	ReportRequest bool

	// Styles overrides the default level styles.
	Styles *Styles
}

// LoggerOptions configures a Logger built with NewLogger.
type LoggerOptions struct {
	// Transport receives every record that passes the gate. It defaults to a
	// synchronous ConsoleTransport on standard error.
	Transport Transport

	// Composer names the logger's stream.
	Composer StreamComposer

	// Threshold is the configured minimum severity. It defaults to the
	// process-wide threshold.
	Threshold *Threshold

	// Hierarchy orders levels. It defaults to DefaultHierarchy.
	Hierarchy *Hierarchy

	// Metrics counts records. It defaults to the process-wide metrics, if any.
	Metrics *Metrics

	// TimeFunction provides a custom hook for stamping records. It defaults to time.Now.
	TimeFunction TimeFunction
}
