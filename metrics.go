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
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Suppression reasons reported by cloudlog_suppressed_total.
const (
	ReasonLevel   = "level"
	ReasonSilent  = "silent"
	ReasonInvalid = "invalid"
)

// Metrics counts what the loggers of a process do. A nil *Metrics is valid
// and counts nothing.
type Metrics struct {
	records    *prometheus.CounterVec
	suppressed *prometheus.CounterVec
	violations *prometheus.CounterVec
}

// NewMetrics registers the cloudlog collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		records: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudlog_records_total",
				Help: "Records handed to a transport, by level.",
			},
			[]string{"level"},
		),
		suppressed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudlog_suppressed_total",
				Help: "Log calls dropped before reaching a transport, by reason.",
			},
			[]string{"reason"},
		),
		violations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cloudlog_enum_violations_total",
				Help: "Lookups of undefined keys in enforced enums, by enum.",
			},
			[]string{"enum"},
		),
	}
}

func (m *Metrics) record(l Level) {
	if m != nil {
		m.records.WithLabelValues(string(l)).Inc()
	}
}

func (m *Metrics) suppress(reason string) {
	if m != nil {
		m.suppressed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) enumViolation(name string) {
	if m != nil {
		m.violations.WithLabelValues(name).Inc()
	}
}

var _metrics atomic.Pointer[Metrics]

// SetProcessMetrics installs m as the metrics of loggers built without their
// own and of enum violations.
func SetProcessMetrics(m *Metrics) {
	_metrics.Store(m)
}

func processMetrics() *Metrics {
	return _metrics.Load()
}
