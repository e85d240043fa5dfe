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
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles defines the look of console records.
type Styles struct {
	Timestamp lipgloss.Style
	Stream    lipgloss.Style
	Request   lipgloss.Style
	Levels    map[Level]lipgloss.Style

	// rendered caches the level badges so they are not rendered on every record.
	rendered map[Level]string
}

var _levelColors = map[Level]string{
	ErrorLevel:   "204",
	WarnLevel:    "192",
	InfoLevel:    "86",
	VerboseLevel: "39",
	DebugLevel:   "63",
	SillyLevel:   "134",
}

// DefaultStyles returns the standard color coded console styles.
func DefaultStyles() *Styles {
	s := &Styles{
		Timestamp: lipgloss.NewStyle(),
		Stream:    lipgloss.NewStyle().Bold(true).Faint(true),
		Request:   lipgloss.NewStyle().Faint(true),
		Levels:    make(map[Level]lipgloss.Style, len(_levelColors)),
	}
	for l, color := range _levelColors {
		s.Levels[l] = lipgloss.NewStyle().
			SetString(strings.ToUpper(l.String())).
			Bold(true).
			MaxWidth(4).
			Foreground(lipgloss.Color(color))
	}
	return s
}

// badge returns the rendered level token. Levels without a style render as
// their upper case name.
func (s *Styles) badge(l Level) string {
	if txt, ok := s.rendered[l]; ok {
		return txt
	}
	if style, ok := s.Levels[l]; ok {
		return style.String()
	}
	return strings.ToUpper(l.String())
}

// cached returns a copy of s with its badges rendered. s itself is left
// untouched, so one Styles may back several transports.
func (s *Styles) cached() *Styles {
	c := *s
	c.rendered = make(map[Level]string, len(s.Levels))
	for l, style := range s.Levels {
		c.rendered[l] = style.String()
	}
	return &c
}
