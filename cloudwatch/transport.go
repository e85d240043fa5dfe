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

// Package cloudwatch appends cloudlog records to Amazon CloudWatch Logs.
package cloudwatch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"cloudlog"
)

const (
	// DefaultBatchSize is the number of events sent per PutLogEvents call.
	DefaultBatchSize = 100
	// DefaultFlushInterval bounds how long an event waits in a partial batch.
	DefaultFlushInterval = time.Second
	// DefaultQueueSize is the capacity of the append queue.
	DefaultQueueSize = 4096
	// DefaultRequestTimeout bounds every CloudWatch Logs call.
	DefaultRequestTimeout = 10 * time.Second
)

// Client is the subset of the CloudWatch Logs API the transport uses.
type Client interface {
	CreateLogGroup(ctx context.Context, in *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, in *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, in *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// Options configures a Transport. Credentials and region are passed to the
// AWS SDK untouched; empty credentials select the default credential chain.
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the service endpoint, e.g. for a local emulator.
	Endpoint string

	BatchSize      int
	FlushInterval  time.Duration
	QueueSize      int
	RequestTimeout time.Duration

	// Client replaces the SDK client. The AWS fields above are then ignored.
	Client Client
	// ErrorOutput receives delivery failures. It defaults to standard error.
	ErrorOutput io.Writer
}

// Transport batches records per stream and ships them with PutLogEvents.
//
// A single background goroutine owns batching and delivery, so records
// appended to a stream are sent in append order. Failed deliveries are
// reported and dropped; nothing is retried.
type Transport struct {
	client         Client
	queue          chan entry
	stop           chan struct{}
	done           chan struct{}
	batchSize      int
	flushInterval  time.Duration
	requestTimeout time.Duration
	profiler       *cloudlog.Profiler
	errOut         io.Writer

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64

	// owned by run
	ensured     map[cloudlog.StreamDescriptor]bool
	lastErr     string
	droppedSeen uint64
}

type entry struct {
	stream cloudlog.StreamDescriptor
	rec    cloudlog.LogRecord
}

// New builds a Transport and starts its delivery goroutine.
func New(ctx context.Context, o Options) (*Transport, error) {
	client := o.Client
	if client == nil {
		optFns := []func(*config.LoadOptions) error{
			config.WithRegion(o.Region),
		}
		if o.AccessKeyID != "" && o.SecretAccessKey != "" {
			creds := credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, o.SessionToken)
			optFns = append(optFns, config.WithCredentialsProvider(creds))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*cloudwatchlogs.Options)
		if o.Endpoint != "" {
			clientOpts = append(clientOpts, func(co *cloudwatchlogs.Options) {
				co.BaseEndpoint = aws.String(o.Endpoint)
			})
		}
		client = cloudwatchlogs.NewFromConfig(awsCfg, clientOpts...)
	}

	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
	if o.ErrorOutput == nil {
		o.ErrorOutput = os.Stderr
	}

	t := &Transport{
		client:         client,
		queue:          make(chan entry, o.QueueSize),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		batchSize:      o.BatchSize,
		flushInterval:  o.FlushInterval,
		requestTimeout: o.RequestTimeout,
		profiler:       cloudlog.NewProfiler(nil),
		errOut:         o.ErrorOutput,
		ensured:        make(map[cloudlog.StreamDescriptor]bool),
	}
	go t.run()
	return t, nil
}

// Append queues rec for stream. It never blocks: a record that finds the
// queue full, or the transport closed, is dropped. Records dropped on a full
// queue are counted and reported with the next flush.
func (t *Transport) Append(stream cloudlog.StreamDescriptor, rec cloudlog.LogRecord) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- entry{stream: stream, rec: rec}:
	default:
		t.dropped.Add(1)
	}
}

// Dropped returns how many records were dropped on a full queue so far.
func (t *Transport) Dropped() uint64 {
	return t.dropped.Load()
}

// Profile places a timing mark; the closing mark is appended as an info record.
func (t *Transport) Profile(stream cloudlog.StreamDescriptor, label string) {
	if rec, ok := t.profiler.Mark(stream, label); ok {
		t.Append(stream, rec)
	}
}

// Close stops accepting records, delivers everything queued and waits for
// the delivery goroutine to exit. Close is idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-t.done
		return nil
	}
	t.closed = true
	close(t.stop)
	t.mu.Unlock()

	<-t.done
	return nil
}

func (t *Transport) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	pending := make(map[cloudlog.StreamDescriptor][]types.InputLogEvent)
	add := func(e entry) {
		batch := append(pending[e.stream], event(e.rec))
		if len(batch) >= t.batchSize {
			t.deliver(e.stream, batch)
			batch = nil
		}
		pending[e.stream] = batch
	}
	flushAll := func() {
		for stream, batch := range pending {
			if len(batch) > 0 {
				t.deliver(stream, batch)
			}
			delete(pending, stream)
		}
	}

	for {
		select {
		case e := <-t.queue:
			add(e)
		case <-ticker.C:
			flushAll()
			t.reportDrops()
		case <-t.stop:
		drain:
			for {
				select {
				case e := <-t.queue:
					add(e)
				default:
					break drain
				}
			}
			flushAll()
			t.reportDrops()
			return
		}
	}
}

func event(rec cloudlog.LogRecord) types.InputLogEvent {
	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return types.InputLogEvent{
		Message:   aws.String("[ " + rec.Level.String() + " ] " + rec.Message),
		Timestamp: aws.Int64(ts.UnixMilli()),
	}
}

func (t *Transport) deliver(stream cloudlog.StreamDescriptor, batch []types.InputLogEvent) {
	if !t.ensure(stream) {
		return
	}

	// PutLogEvents rejects batches that are not in chronological order.
	slices.SortStableFunc(batch, func(a, b types.InputLogEvent) int {
		return cmp.Compare(aws.ToInt64(a.Timestamp), aws.ToInt64(b.Timestamp))
	})

	ctx, cancel := context.WithTimeout(context.Background(), t.requestTimeout)
	defer cancel()
	_, err := t.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(stream.GroupName),
		LogStreamName: aws.String(stream.StreamName),
		LogEvents:     batch,
	})
	if err != nil {
		t.report(fmt.Errorf("put %d events to %s: %w", len(batch), stream, err))
	}
}

// ensure creates the group and stream once per transport. Resources created
// by another process are accepted as they are.
func (t *Transport) ensure(stream cloudlog.StreamDescriptor) bool {
	if t.ensured[stream] {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.requestTimeout)
	defer cancel()

	_, err := t.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(stream.GroupName),
	})
	if err != nil && !alreadyExists(err) {
		t.report(fmt.Errorf("create log group %s: %w", stream.GroupName, err))
		return false
	}

	_, err = t.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(stream.GroupName),
		LogStreamName: aws.String(stream.StreamName),
	})
	if err != nil && !alreadyExists(err) {
		t.report(fmt.Errorf("create log stream %s: %w", stream, err))
		return false
	}

	t.ensured[stream] = true
	return true
}

func alreadyExists(err error) bool {
	var exists *types.ResourceAlreadyExistsException
	return errors.As(err, &exists)
}

func (t *Transport) reportDrops() {
	total := t.dropped.Load()
	if total == t.droppedSeen {
		return
	}
	t.report(fmt.Errorf("queue full, dropped %d records", total-t.droppedSeen))
	t.droppedSeen = total
}

func (t *Transport) report(err error) {
	msg := err.Error()
	if msg == t.lastErr {
		return
	}
	t.lastErr = msg
	fmt.Fprintf(t.errOut, "cloudlog: cloudwatch: %s\n", msg)
}
