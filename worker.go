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
	"bufio"
	"fmt"
	"io"
	"os"
)

// worker manages a background goroutine that consumes formatted lines from a queue.
//
// The queue is a single FIFO channel, so lines are written in submission order.
type worker struct {
	queue    chan *buffer
	syncChan chan chan error
	bw       *bufio.Writer
	stopChan chan struct{}
	flushed  chan struct{}
	strategy OverflowStrategy
	lastErr  error
}

func newWorker(output io.Writer, capacity int, strategy OverflowStrategy) *worker {
	w := &worker{
		queue:    make(chan *buffer, capacity),
		syncChan: make(chan chan error),
		bw:       bufio.NewWriterSize(output, 64*1024),
		stopChan: make(chan struct{}),
		flushed:  make(chan struct{}),
		strategy: strategy,
	}
	go w.run()
	return w
}

func (w *worker) stop() {
	close(w.stopChan)
	<-w.flushed
}

func (w *worker) submit(b *buffer) {
	select {
	case w.queue <- b:
		return
	default:
	}

	switch w.strategy {
	case OverflowDrop:
		putBuffer(b)
	default:
		select {
		case w.queue <- b:
		case <-w.flushed:
			putBuffer(b)
		}
	}
}

// sync pauses the calling goroutine until the worker writes all queued lines to the underlying writer.
func (w *worker) sync() error {
	errChan := make(chan error, 1)
	select {
	case w.syncChan <- errChan:
		return <-errChan
	case <-w.flushed:
		return nil
	}
}

func (w *worker) run() {
	defer close(w.flushed)

	for {
		select {
		case <-w.stopChan:
			w.drainAll()
			w.flushBuffer()
			return
		case errChan := <-w.syncChan:
			w.drainAll()
			errChan <- w.flushBuffer()
		case b := <-w.queue:
			w.write(b)
			// batch whatever else is already queued before flushing.
			w.drainAll()
			w.flushBuffer()
		}
	}
}

func (w *worker) drainAll() {
	for {
		select {
		case b := <-w.queue:
			w.write(b)
		default:
			return
		}
	}
}

func (w *worker) write(b *buffer) {
	if _, err := w.bw.Write(b.B); err != nil {
		w.handleError(err)
	}
	putBuffer(b)
}

func (w *worker) flushBuffer() error {
	if err := w.bw.Flush(); err != nil {
		w.handleError(err)
		return err
	}
	return nil
}

func (w *worker) handleError(err error) {
	if err != nil && w.lastErr != err {
		// don't spam stderr with the same failure.
		w.lastErr = err
		fmt.Fprintf(os.Stderr, "cloudlog: console write error: %v\n", err)
	}
}
