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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appended struct {
	stream StreamDescriptor
	rec    LogRecord
}

// recordingTransport keeps every call in memory.
type recordingTransport struct {
	mu       sync.Mutex
	records  []appended
	profiles []string
	closed   int
	panicOn  string
}

func (r *recordingTransport) Append(stream StreamDescriptor, rec LogRecord) {
	if r.panicOn != "" && rec.Message == r.panicOn {
		panic("transport exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, appended{stream: stream, rec: rec})
}

func (r *recordingTransport) Profile(_ StreamDescriptor, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = append(r.profiles, label)
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *recordingTransport) all() []appended {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]appended(nil), r.records...)
}

func (r *recordingTransport) messages() []string {
	var out []string
	for _, a := range r.all() {
		out = append(out, a.rec.Message)
	}
	return out
}

type loggerFixture struct {
	logger    *Logger
	transport *recordingTransport
	threshold *Threshold
	hierarchy *Hierarchy
	metrics   *Metrics
}

func newLoggerFixture(t *testing.T, threshold Level) *loggerFixture {
	t.Helper()
	f := &loggerFixture{
		transport: &recordingTransport{},
		threshold: NewThreshold(threshold),
		hierarchy: newTestHierarchy(t),
		metrics:   NewMetrics(prometheus.NewRegistry()),
	}
	f.logger = NewLogger("orders", LoggerOptions{
		Transport: f.transport,
		Composer: StreamComposer{
			Namespace:   "shop",
			Environment: "test",
			Identity:    StaticIdentity(ProcessIdentity{InstanceID: LocalInstanceID, Worker: WorkerIdentity{Role: RoleWorker, Ordinal: 2}}),
		},
		Threshold: f.threshold,
		Hierarchy: f.hierarchy,
		Metrics:   f.metrics,
	})
	return f
}

func TestLoggerBelowThresholdIsDropped(t *testing.T) {
	f := newLoggerFixture(t, WarnLevel)

	f.logger.Log(InfoLevel, "x")

	assert.Empty(t, f.transport.all())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.suppressed.WithLabelValues(ReasonLevel)))
}

func TestLoggerAtOrAboveThresholdIsForwarded(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)

	f.logger.Log(WarnLevel, "x")

	got := f.transport.all()
	require.Len(t, got, 1)
	assert.Equal(t, WarnLevel, got[0].rec.Level)
	assert.Equal(t, "x", got[0].rec.Message)
	assert.Equal(t, StreamDescriptor{GroupName: "shop-test", StreamName: "orders/not-on-aws/worker-2"}, got[0].stream)
	assert.False(t, got[0].rec.Time.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.records.WithLabelValues("warn")))
}

func TestLoggerLevelShorthands(t *testing.T) {
	f := newLoggerFixture(t, SillyLevel)
	l := f.logger

	l.Error("e")
	l.Warn("w")
	l.Info("i")
	l.Verbose("v")
	l.Debug("d")
	l.Silly("s")
	l.Errorf("e%d", 1)
	l.Warnf("w%d", 1)
	l.Infof("i%d", 1)
	l.Verbosef("v%d", 1)
	l.Debugf("d%d", 1)
	l.Sillyf("s%d", 1)

	var levels []Level
	for _, a := range f.transport.all() {
		levels = append(levels, a.rec.Level)
	}
	want := []Level{ErrorLevel, WarnLevel, InfoLevel, VerboseLevel, DebugLevel, SillyLevel}
	assert.Equal(t, append(want, want...), levels)
	assert.Equal(t, []string{"e", "w", "i", "v", "d", "s", "e1", "w1", "i1", "v1", "d1", "s1"}, f.transport.messages())
}

func TestLoggerInvalidCallLevel(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)

	assert.NotPanics(t, func() {
		f.logger.Log("fatal", "never forwarded")
	})

	got := f.transport.all()
	require.Len(t, got, 1)
	assert.Equal(t, ErrorLevel, got[0].rec.Level)
	assert.Contains(t, got[0].rec.Message, `"fatal" is not one of [error warn info verbose debug silly]`)
	assert.NotContains(t, got[0].rec.Message, "never forwarded")
	assert.Contains(t, got[0].rec.Message, "TestLoggerInvalidCallLevel")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.suppressed.WithLabelValues(ReasonInvalid)))
}

func TestLoggerInvalidThreshold(t *testing.T) {
	f := newLoggerFixture(t, "loud")

	f.logger.Info("first")
	f.logger.Error("second")

	got := f.transport.all()
	require.Len(t, got, 2, "one report per call, no recursion")
	for _, a := range got {
		assert.Equal(t, ErrorLevel, a.rec.Level)
		assert.Contains(t, a.rec.Message, `threshold "loud"`)
	}
	assert.False(t, f.logger.Enabled(ErrorLevel))
}

func TestLoggerSilence(t *testing.T) {
	f := newLoggerFixture(t, SillyLevel)
	f.hierarchy.SetSilent(true)

	f.logger.Error("e")
	f.logger.Log("fatal", "bad level")

	assert.Empty(t, f.transport.all())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.suppressed.WithLabelValues(ReasonSilent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.suppressed.WithLabelValues(ReasonInvalid)))
}

func TestLoggerThresholdIsLive(t *testing.T) {
	f := newLoggerFixture(t, ErrorLevel)
	assert.False(t, f.logger.Enabled(InfoLevel))

	f.threshold.SetLevel(DebugLevel)
	assert.True(t, f.logger.Enabled(InfoLevel))
	assert.False(t, f.logger.Enabled(SillyLevel))
}

func TestLoggerLogObject(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)

	f.logger.LogObject(InfoLevel, map[string]int{"count": 3})
	f.logger.LogObject(DebugLevel, map[string]int{"hidden": 1})

	assert.Equal(t, []string{`{"count":3}`}, f.transport.messages())
}

func TestLoggerLogWithOptions(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)
	req := &RequestSnapshot{Method: "GET", URL: "/orders/1"}

	f.logger.LogWithOptions(LogOptions{Level: WarnLevel, Message: "m", Err: errors.New("e"), Request: req})
	f.logger.InfoRequest("served", req)
	f.logger.LogWithOptions(LogOptions{Message: "default level"})
	f.logger.LogWithOptions(LogOptions{Level: DebugLevel, Message: "hidden"})

	got := f.transport.all()
	require.Len(t, got, 3)

	assert.Equal(t, WarnLevel, got[0].rec.Level)
	assert.True(t, strings.HasPrefix(got[0].rec.Message, "MESSAGE: m\nERROR: e\nREQUEST: {"), got[0].rec.Message)
	assert.Contains(t, got[0].rec.Message, "\nSTACK:\n")
	assert.Contains(t, got[0].rec.Message, "TestLoggerLogWithOptions")
	assert.Same(t, req, got[0].rec.Request)

	assert.Equal(t, InfoLevel, got[1].rec.Level)
	assert.Contains(t, got[1].rec.Message, `REQUEST: {"method":"GET","url":"/orders/1"}`)

	assert.Equal(t, InfoLevel, got[2].rec.Level)
	assert.NotContains(t, got[2].rec.Message, BlockRequest)
}

func TestLoggerProfileIsNotGated(t *testing.T) {
	f := newLoggerFixture(t, ErrorLevel)
	f.hierarchy.SetSilent(true)

	f.logger.Profile("checkout")
	f.logger.Profile("checkout")

	assert.Equal(t, []string{"checkout", "checkout"}, f.transport.profiles)
}

func TestLoggerAbsorbsTransportPanics(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)
	f.transport.panicOn = "explode"

	assert.NotPanics(t, func() {
		f.logger.Info("explode")
	})
	f.logger.Info("after")
	assert.Equal(t, []string{"after"}, f.transport.messages())
}

func TestLoggerPreservesOrder(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)

	for i := range 200 {
		f.logger.Infof("%d", i)
	}

	msgs := f.transport.messages()
	require.Len(t, msgs, 200)
	for i, m := range msgs {
		assert.Equal(t, fmt.Sprint(i), m)
	}
}

func TestLoggerTimestampsFollowDeliveryOrder(t *testing.T) {
	var tick atomic.Int64
	tr := &recordingTransport{}
	l := NewLogger("clock", LoggerOptions{
		Transport: tr,
		Threshold: NewThreshold(InfoLevel),
		TimeFunction: func(time.Time) time.Time {
			return time.Unix(0, tick.Add(1))
		},
	})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				l.Infof("%d-%d", g, i)
			}
		}()
	}
	wg.Wait()

	got := tr.all()
	require.Len(t, got, 400)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].rec.Time.Before(got[i].rec.Time), "record %d stamped out of order", i)
	}
}

func TestLoggerTimeFunction(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := &recordingTransport{}
	l := NewLogger("clock", LoggerOptions{
		Transport:    tr,
		Threshold:    NewThreshold(InfoLevel),
		TimeFunction: func(time.Time) time.Time { return fixed },
	})

	l.Info("tick")
	require.Len(t, tr.all(), 1)
	assert.Equal(t, fixed, tr.all()[0].rec.Time)
	assert.Equal(t, "clock", l.Category())
}

func TestSetupRoutesLoggers(t *testing.T) {
	prevThreshold := ProcessThreshold().Level()
	t.Cleanup(func() {
		ProcessThreshold().SetLevel(prevThreshold)
		DefaultHierarchy().SetSilent(false)
		SetEnforceEnums(false)
		SetProcessMetrics(nil)
		_process.Store(nil)
	})

	cfg := DefaultConfig()
	cfg.AppName = "shop"
	cfg.Environment = "production"
	cfg.Level = "warn"

	first := &recordingTransport{}
	id, err := Setup(context.Background(), cfg, first,
		WithMetadataClient(metadataReturning("i-777")),
		WithLookupEnv(lookupFrom(map[string]string{WorkerIDEnv: "4"})),
	)
	require.NoError(t, err)
	assert.Equal(t, "i-777", id.InstanceID)
	assert.Equal(t, id, Identity())
	assert.Equal(t, WarnLevel, ProcessThreshold().Level())

	orders := Get("orders")
	assert.Same(t, orders, Get("orders"))
	assert.Equal(t, StreamDescriptor{GroupName: "shop-production", StreamName: "orders/i-777/worker-4"}, orders.Stream())

	orders.Info("dropped")
	Warn("through default")
	require.Len(t, first.all(), 1)
	assert.Equal(t, "app/i-777/worker-4", first.all()[0].stream.StreamName)

	cfg.NotOnAWS = true
	second := &recordingTransport{}
	_, err = Setup(context.Background(), cfg, second, WithLookupEnv(lookupFrom(nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, first.closed)
	assert.NotSame(t, orders, Get("orders"))
	assert.Equal(t, "orders/not-on-aws/master-"+fmt.Sprint(Identity().Worker.PID), Get("orders").Stream().StreamName)

	orders.Warn("old logger")
	require.Len(t, first.all(), 1)
	require.Len(t, second.all(), 1)
	assert.Equal(t, "orders/i-777/worker-4", second.all()[0].stream.StreamName)

	require.NoError(t, Shutdown())
	assert.Equal(t, 1, second.closed)
}

func resetProcess(t *testing.T) {
	t.Helper()
	prevThreshold := ProcessThreshold().Level()
	t.Cleanup(func() {
		ProcessThreshold().SetLevel(prevThreshold)
		DefaultHierarchy().SetSilent(false)
		SetEnforceEnums(false)
		SetViolationPolicy(PolicyCrashProcess)
		SetProcessMetrics(nil)
		_process.Store(nil)
	})
	_process.Store(nil)
}

func TestLoggerFetchedBeforeSetupKeepsDelivering(t *testing.T) {
	resetProcess(t)

	early := Get("early")
	tr := &recordingTransport{}
	_, err := Setup(context.Background(), DefaultConfig(), tr,
		WithMetadataClient(metadataReturning("i-9")),
		WithLookupEnv(lookupFrom(nil)),
	)
	require.NoError(t, err)

	early.Error("after setup")
	require.Len(t, tr.all(), 1)
	assert.Equal(t, "after setup", tr.all()[0].rec.Message)
	assert.Equal(t, early.Stream(), tr.all()[0].stream)
}

func TestSetupEmptyLevelMeansInfo(t *testing.T) {
	resetProcess(t)

	cfg := DefaultConfig()
	cfg.Level = ""
	tr := &recordingTransport{}
	_, err := Setup(context.Background(), cfg, tr,
		WithMetadataClient(metadataReturning("i-9")),
		WithLookupEnv(lookupFrom(nil)),
	)
	require.NoError(t, err)

	Get("quiet").Info("hello")
	Get("quiet").Debug("hidden")
	assert.Equal(t, []string{"hello"}, tr.messages())
	assert.Equal(t, InfoLevel, tr.all()[0].rec.Level)
}

func TestSetupNilConfigUsesDefaults(t *testing.T) {
	resetProcess(t)

	tr := &recordingTransport{}
	id, err := Setup(context.Background(), nil, tr,
		WithMetadataClient(metadataReturning("i-9")),
		WithLookupEnv(lookupFrom(nil)),
	)
	require.NoError(t, err)
	assert.Equal(t, "i-9", id.InstanceID)

	Info("defaults")
	assert.Equal(t, []string{"defaults"}, tr.messages())
}

func TestSetupRejectsUnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnumViolation = "thread"

	_, err := Setup(context.Background(), cfg, &recordingTransport{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestContextLogger(t *testing.T) {
	f := newLoggerFixture(t, InfoLevel)
	ctx := WithContext(context.Background(), f.logger)
	assert.Same(t, f.logger, FromContext(ctx))
}
