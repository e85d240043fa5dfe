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
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Level is a logging severity token.
//
// A Hierarchy orders levels from most to least severe. A Level that the
// hierarchy does not know is a configuration error: the Logger reports it and
// drops the call instead of panicking.
type Level string

const (
	// ErrorLevel designates failures that need attention. It is the most severe
	// level and passes every valid threshold.
	ErrorLevel Level = "error"
	// WarnLevel designates potentially harmful situations.
	WarnLevel Level = "warn"
	// InfoLevel designates coarse grained progress messages. This is the default threshold.
	InfoLevel Level = "info"
	// VerboseLevel designates detailed progress messages.
	VerboseLevel Level = "verbose"
	// DebugLevel designates fine grained events useful while debugging.
	DebugLevel Level = "debug"
	// SillyLevel designates everything else.
	SillyLevel Level = "silly"
)

var (
	// ErrUnknownLevel reports a level token outside the hierarchy.
	ErrUnknownLevel = errors.New("unknown log level")
	// ErrHierarchyMismatch reports a level order that disagrees with its level table.
	ErrHierarchyMismatch = errors.New("level order does not match level table")
)

// Levels is the guarded table of every defined level, keyed by symbolic name.
var Levels = NewEnum("Level", map[string]Level{
	"Error":   ErrorLevel,
	"Warn":    WarnLevel,
	"Info":    InfoLevel,
	"Verbose": VerboseLevel,
	"Debug":   DebugLevel,
	"Silly":   SillyLevel,
})

var _defaultHierarchy = mustHierarchy(
	[]Level{ErrorLevel, WarnLevel, InfoLevel, VerboseLevel, DebugLevel, SillyLevel},
	Levels,
)

// DefaultHierarchy returns the process-wide level hierarchy.
func DefaultHierarchy() *Hierarchy {
	return _defaultHierarchy
}

// String returns the level token.
func (l Level) String() string {
	return string(l)
}

// MarshalText serializes the Level to its token.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l), nil
}

// UnmarshalText deserializes a level token.
//
// It accepts any casing. The empty string decodes to InfoLevel so the zero
// value of a config field is useful.
func (l *Level) UnmarshalText(text []byte) error {
	if l == nil {
		return errors.New("can't unmarshal a nil *Level")
	}
	v, err := levelFrom(Levels, string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// levelFrom resolves text through table by its symbolic name, so an enforced
// table reports configured names it does not define.
func levelFrom(table *Enum[Level], text string) (Level, error) {
	token := strings.ToLower(strings.TrimSpace(text))
	if token == "" {
		return InfoLevel, nil
	}
	v, ok := table.Get(strings.ToUpper(token[:1]) + token[1:])
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, text)
	}
	return v, nil
}

// ParseLevel converts a string into a Level known to the default hierarchy.
func ParseLevel(text string) (Level, error) {
	var l Level
	err := l.UnmarshalText([]byte(text))
	return l, err
}

// Hierarchy is a strictly ordered list of levels, most severe first.
//
// It also carries the process-wide silence switch. A silent hierarchy allows
// nothing, not even its most severe level.
type Hierarchy struct {
	order  []Level
	index  map[Level]int
	silent atomic.Bool
}

// NewHierarchy builds a Hierarchy from levels ordered most severe first.
//
// When table is not nil, its values and order must describe exactly the same
// set of levels; any difference returns an error wrapping ErrHierarchyMismatch.
func NewHierarchy(order []Level, table *Enum[Level]) (*Hierarchy, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no levels", ErrHierarchyMismatch)
	}

	h := &Hierarchy{
		order: append([]Level(nil), order...),
		index: make(map[Level]int, len(order)),
	}
	for i, l := range order {
		if _, dup := h.index[l]; dup {
			return nil, fmt.Errorf("%w: %q listed twice", ErrHierarchyMismatch, l)
		}
		h.index[l] = i
	}

	if table == nil {
		return h, nil
	}

	seen := make(map[Level]struct{}, len(order))
	for _, v := range table.Values() {
		if _, ok := h.index[v]; !ok {
			return nil, fmt.Errorf("%w: %s value %q missing from order", ErrHierarchyMismatch, table.Name(), v)
		}
		seen[v] = struct{}{}
	}
	if len(seen) != len(order) {
		for _, l := range order {
			if _, ok := seen[l]; !ok {
				return nil, fmt.Errorf("%w: %q missing from %s", ErrHierarchyMismatch, l, table.Name())
			}
		}
	}
	return h, nil
}

func mustHierarchy(order []Level, table *Enum[Level]) *Hierarchy {
	h, err := NewHierarchy(order, table)
	if err != nil {
		panic(err)
	}
	return h
}

// Ordinal returns the position of l, 0 being the most severe.
func (h *Hierarchy) Ordinal(l Level) (int, bool) {
	i, ok := h.index[l]
	return i, ok
}

// MostSevere returns the first level of the hierarchy.
func (h *Hierarchy) MostSevere() Level {
	return h.order[0]
}

// Levels returns a copy of the ordered levels.
func (h *Hierarchy) Levels() []Level {
	return append([]Level(nil), h.order...)
}

// Allows reports whether a call at candidate passes the configured threshold.
//
// Either token being unknown returns false and an error wrapping
// ErrUnknownLevel. A valid pair is then refused while the hierarchy is silent,
// and otherwise allowed iff candidate is at least as severe as threshold.
func (h *Hierarchy) Allows(candidate, threshold Level) (bool, error) {
	c, ok := h.index[candidate]
	if !ok {
		return false, fmt.Errorf("%w: %q is not one of %s", ErrUnknownLevel, candidate, h.tokens())
	}
	t, ok := h.index[threshold]
	if !ok {
		return false, fmt.Errorf("%w: threshold %q is not one of %s", ErrUnknownLevel, threshold, h.tokens())
	}
	if h.silent.Load() {
		return false, nil
	}
	return c <= t, nil
}

// SetSilent toggles the silence switch.
func (h *Hierarchy) SetSilent(silent bool) {
	h.silent.Store(silent)
}

// Silent reports whether the silence switch is on.
func (h *Hierarchy) Silent() bool {
	return h.silent.Load()
}

func (h *Hierarchy) tokens() string {
	parts := make([]string, len(h.order))
	for i, l := range h.order {
		parts[i] = string(l)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Threshold holds a dynamically adjustable minimum severity.
//
// It stores the raw token without validating it; an unknown threshold is
// reported by the Logger when it gates a call. Threshold is safe for
// concurrent use.
type Threshold struct {
	_   cpu.CacheLinePad
	val atomic.Pointer[Level]
	_   cpu.CacheLinePad
}

// NewThreshold initializes a Threshold set to l.
func NewThreshold(l Level) *Threshold {
	t := &Threshold{}
	t.SetLevel(l)
	return t
}

// Level returns the current threshold token.
func (t *Threshold) Level() Level {
	if p := t.val.Load(); p != nil {
		return *p
	}
	return InfoLevel
}

// SetLevel replaces the threshold token.
func (t *Threshold) SetLevel(l Level) {
	t.val.Store(&l)
}

// String returns the current threshold token.
func (t *Threshold) String() string {
	return t.Level().String()
}

// UnmarshalText stores the lowercased token as is, valid or not. An empty
// token selects InfoLevel.
func (t *Threshold) UnmarshalText(text []byte) error {
	token := Level(strings.ToLower(strings.TrimSpace(string(text))))
	if token == "" {
		token = InfoLevel
	}
	t.SetLevel(token)
	return nil
}

// MarshalText serializes the current threshold token.
func (t *Threshold) MarshalText() ([]byte, error) {
	return t.Level().MarshalText()
}

var _threshold = NewThreshold(InfoLevel)

// ProcessThreshold returns the threshold shared by loggers built without their own.
func ProcessThreshold() *Threshold {
	return _threshold
}
