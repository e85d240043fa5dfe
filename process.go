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
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// DefaultCategory names the Logger returned by Default.
const DefaultCategory = "app"

// process holds the loggers of one Setup.
type process struct {
	identity  ProcessIdentity
	composer  StreamComposer
	transport Transport
	metrics   *Metrics
	loggers   sync.Map
}

var _process atomic.Pointer[process]

// currentProcess returns the installed process, installing a local console
// setup on first use.
func currentProcess() *process {
	if p := _process.Load(); p != nil {
		return p
	}
	cfg := DefaultConfig()
	id := ProcessIdentity{InstanceID: LocalInstanceID, Worker: ResolveWorker(os.LookupEnv)}
	p := newProcess(cfg, id, NewConsoleTransport(os.Stderr, ConsoleOptions{}), nil)
	if _process.CompareAndSwap(nil, p) {
		return p
	}
	return _process.Load()
}

func newProcess(cfg *Config, id ProcessIdentity, t Transport, m *Metrics) *process {
	return &process{
		identity: id,
		composer: StreamComposer{
			Namespace:   cfg.AppName,
			Environment: cfg.Environment,
			Identity:    StaticIdentity(id),
		},
		transport: t,
		metrics:   m,
	}
}

func (p *process) logger(category string) *Logger {
	if l, ok := p.loggers.Load(category); ok {
		return l.(*Logger)
	}
	l, _ := p.loggers.LoadOrStore(category, NewLogger(category, LoggerOptions{
		Transport: liveTransport{},
		Composer:  p.composer,
		Metrics:   p.metrics,
	}))
	return l.(*Logger)
}

// liveTransport appends to the transport of the current process, so a Logger
// fetched before Setup keeps delivering, on its original stream, after it.
type liveTransport struct{}

func (liveTransport) Append(stream StreamDescriptor, rec LogRecord) {
	currentProcess().transport.Append(stream, rec)
}

func (liveTransport) Profile(stream StreamDescriptor, label string) {
	currentProcess().transport.Profile(stream, label)
}

// Close is a no-op; the process transport is closed by Setup and Shutdown.
func (liveTransport) Close() error { return nil }

type setupConfig struct {
	metrics *Metrics
	client  MetadataClient
	lookup  func(string) (string, bool)
}

// SetupOption customizes Setup.
type SetupOption func(*setupConfig)

// WithMetrics counts the records of every Logger of the process, and enum
// violations, with m.
func WithMetrics(m *Metrics) SetupOption {
	return func(c *setupConfig) {
		c.metrics = m
	}
}

// WithMetadataClient replaces the instance metadata client.
func WithMetadataClient(client MetadataClient) SetupOption {
	return func(c *setupConfig) {
		c.client = client
	}
}

// WithLookupEnv replaces os.LookupEnv when resolving the worker role.
func WithLookupEnv(lookup func(string) (string, bool)) SetupOption {
	return func(c *setupConfig) {
		c.lookup = lookup
	}
}

// Setup applies cfg to the process and routes every Logger returned by Get
// to transport from now on.
//
// It resolves the process identity once, which may wait up to
// cfg.MetadataTimeout for the instance metadata service. Loggers handed out
// earlier keep their stream but write to transport; the transport they used
// before is closed. A nil cfg means DefaultConfig.
func Setup(ctx context.Context, cfg *Config, transport Transport, opts ...SetupOption) (ProcessIdentity, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	policy, err := ParseViolationPolicy(cfg.EnumViolation)
	if err != nil {
		return ProcessIdentity{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	sc := setupConfig{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&sc)
	}
	if transport == nil {
		transport = NewConsoleTransport(os.Stderr, ConsoleOptions{Async: cfg.Async})
	}

	SetEnforceEnums(cfg.EnforceEnums)
	SetViolationPolicy(policy)
	SetProcessMetrics(sc.metrics)
	DefaultHierarchy().SetSilent(cfg.Silent)
	ProcessThreshold().UnmarshalText([]byte(cfg.Level))

	resolver := NewInstanceResolver(InstanceOptions{
		NotOnAWS: cfg.NotOnAWS,
		Timeout:  cfg.MetadataTimeout,
		Endpoint: cfg.MetadataEndpoint,
		Client:   sc.client,
	})
	id := ResolveProcessIdentity(ctx, resolver, sc.lookup)

	prev := _process.Swap(newProcess(cfg, id, transport, sc.metrics))
	if prev != nil && prev.transport != transport {
		prev.transport.Close()
	}
	return id, nil
}

// Shutdown closes the transport of the current process setup, flushing
// whatever it still holds.
func Shutdown() error {
	p := _process.Load()
	if p == nil {
		return nil
	}
	return p.transport.Close()
}

// Identity returns the identity resolved by the last Setup.
func Identity() ProcessIdentity {
	return currentProcess().identity
}

// Get returns the Logger for category, building it on first use.
func Get(category string) *Logger {
	return currentProcess().logger(category)
}

// Default returns the Logger for DefaultCategory.
func Default() *Logger {
	return Get(DefaultCategory)
}

// Log calls Log on the default Logger.
func Log(level Level, msg string) { Default().Log(level, msg) }

// Error calls Error on the default Logger.
func Error(msg string) { Default().Error(msg) }

// Warn calls Warn on the default Logger.
func Warn(msg string) { Default().Warn(msg) }

// Info calls Info on the default Logger.
func Info(msg string) { Default().Info(msg) }

// Verbose calls Verbose on the default Logger.
func Verbose(msg string) { Default().Verbose(msg) }

// Debug calls Debug on the default Logger.
func Debug(msg string) { Default().Debug(msg) }

// Silly calls Silly on the default Logger.
func Silly(msg string) { Default().Silly(msg) }

// Profile calls Profile on the default Logger.
func Profile(label string) { Default().Profile(label) }
