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
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// ViolationPolicy selects what an enforced Enum does after reporting an
// access to an undefined key.
type ViolationPolicy int32

const (
	// PolicyCrashProcess panics on a fresh goroutine. The panic escapes every
	// recover on the caller's stack and terminates the process.
	PolicyCrashProcess ViolationPolicy = iota
	// PolicyHaltLogging silences the default hierarchy and leaves the process running.
	PolicyHaltLogging
)

// String returns the configuration token for the policy.
func (p ViolationPolicy) String() string {
	switch p {
	case PolicyCrashProcess:
		return "process"
	case PolicyHaltLogging:
		return "logging"
	default:
		return "ViolationPolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseViolationPolicy converts "process" or "logging" into a ViolationPolicy.
func ParseViolationPolicy(text string) (ViolationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "process", "":
		return PolicyCrashProcess, nil
	case "logging":
		return PolicyHaltLogging, nil
	}
	return PolicyCrashProcess, fmt.Errorf("unrecognized enum violation policy: %q", text)
}

var (
	_enforceEnums    = newFlag(envBool("ENFORCE_ENUMS"))
	_violationPolicy atomic.Int32
)

func newFlag(v bool) *atomic.Bool {
	b := new(atomic.Bool)
	b.Store(v)
	return b
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

// SetEnforceEnums sets the mode used by tables built with NewEnum from now on.
// Tables that already exist keep their mode.
func SetEnforceEnums(enforce bool) {
	_enforceEnums.Store(enforce)
}

// EnforceEnums reports the mode NewEnum currently uses.
func EnforceEnums() bool {
	return _enforceEnums.Load()
}

// SetViolationPolicy sets the process-wide action taken after an enforced
// Enum reports an undefined key. Tables built with OnViolation ignore it.
func SetViolationPolicy(p ViolationPolicy) {
	_violationPolicy.Store(int32(p))
}

// EnumViolation describes a read of an undefined key from an enforced Enum.
type EnumViolation struct {
	Enum      string
	Key       string
	ValidKeys []string
	Stack     string
}

func (v EnumViolation) Error() string {
	return fmt.Sprintf("undefined key %q read from enum %s; valid keys: %s",
		v.Key, v.Enum, strings.Join(v.ValidKeys, ", "))
}

type enumConfig struct {
	exempt      map[string]struct{}
	onViolation func(EnumViolation)
	diagnostics io.Writer
}

// EnumOption configures an Enum.
type EnumOption func(*enumConfig)

// Exempt lists keys that never trigger the failure path, even when enforced.
// Reads of these keys behave like reads from a permissive table.
func Exempt(keys ...string) EnumOption {
	return func(c *enumConfig) {
		for _, k := range keys {
			c.exempt[k] = struct{}{}
		}
	}
}

// OnViolation replaces the violation policy for this table. fn runs on its
// own goroutine after the diagnostic is written.
func OnViolation(fn func(EnumViolation)) EnumOption {
	return func(c *enumConfig) {
		c.onViolation = fn
	}
}

// DiagnosticOutput sets where violation diagnostics are written. It defaults
// to standard error.
func DiagnosticOutput(w io.Writer) EnumOption {
	return func(c *enumConfig) {
		c.diagnostics = w
	}
}

// Enum is an immutable table of named constants.
//
// A permissive Enum behaves like a read-only map. An enforced Enum turns a read
// of an undefined key into a loud failure: the read itself still returns the
// zero value normally, but a diagnostic is written at once and the violation
// policy runs outside the caller's stack, where local recovery can't absorb it.
type Enum[V comparable] struct {
	name    string
	values  map[string]V
	keys    []string
	enforce bool
	cfg     enumConfig
}

// MakeEnum copies def into a new Enum. enforce fixes the mode for the table's lifetime.
func MakeEnum[V comparable](name string, def map[string]V, enforce bool, opts ...EnumOption) *Enum[V] {
	e := &Enum[V]{
		name:    name,
		values:  make(map[string]V, len(def)),
		keys:    make([]string, 0, len(def)),
		enforce: enforce,
		cfg: enumConfig{
			exempt: map[string]struct{}{},
		},
	}
	for k, v := range def {
		e.values[k] = v
		e.keys = append(e.keys, k)
	}
	sort.Strings(e.keys)
	for _, opt := range opts {
		opt(&e.cfg)
	}
	return e
}

// NewEnum builds an Enum in the process-wide mode. See SetEnforceEnums.
func NewEnum[V comparable](name string, def map[string]V, opts ...EnumOption) *Enum[V] {
	return MakeEnum(name, def, _enforceEnums.Load(), opts...)
}

// Get returns the value stored under key.
func (e *Enum[V]) Get(key string) (V, bool) {
	if v, ok := e.values[key]; ok {
		return v, true
	}
	var zero V
	if !e.enforce {
		return zero, false
	}
	if _, ok := e.cfg.exempt[key]; ok {
		return zero, false
	}
	e.violate(key)
	return zero, false
}

// Value is Get without the presence flag.
func (e *Enum[V]) Value(key string) V {
	v, _ := e.Get(key)
	return v
}

// Has reports whether key is defined. It never triggers the failure path.
func (e *Enum[V]) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Lookup returns the first key, in sorted order, whose value is v.
func (e *Enum[V]) Lookup(v V) (string, bool) {
	for _, k := range e.keys {
		if e.values[k] == v {
			return k, true
		}
	}
	return "", false
}

// Keys returns the defined keys in sorted order.
func (e *Enum[V]) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Values returns the values in key order.
func (e *Enum[V]) Values() []V {
	vals := make([]V, len(e.keys))
	for i, k := range e.keys {
		vals[i] = e.values[k]
	}
	return vals
}

// Len returns the number of defined keys.
func (e *Enum[V]) Len() int { return len(e.keys) }

// Name returns the table name used in diagnostics.
func (e *Enum[V]) Name() string { return e.name }

// Enforced reports whether the table is in enforced mode.
func (e *Enum[V]) Enforced() bool { return e.enforce }

func (e *Enum[V]) violate(key string) {
	v := EnumViolation{
		Enum:      e.name,
		Key:       key,
		ValidKeys: e.Keys(),
		Stack:     renderStack(captureStack(2)),
	}

	w := e.cfg.diagnostics
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "cloudlog: %s\n%s", v.Error(), v.Stack)

	processMetrics().enumViolation(e.name)

	action := e.cfg.onViolation
	if action == nil {
		action = defaultViolationAction
	}
	go action(v)
}

func defaultViolationAction(v EnumViolation) {
	if ViolationPolicy(_violationPolicy.Load()) == PolicyHaltLogging {
		DefaultHierarchy().SetSilent(true)
		return
	}
	panic(v)
}
