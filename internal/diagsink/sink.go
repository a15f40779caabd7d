// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later
// Package diagsink is the core's abstract diagnostic sink (spec.md §1,
// §7): every pass reports through it instead of raising; the sink
// serializes formatted output from concurrent workers behind one mutex
// (spec.md §5 "Diagnostic sink") and tracks a process-wide error flag the
// driver inspects between stages.
package diagsink

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/Laia-Ortiga/jellyc/internal/source"
)

// Diagnostic is one reported error or note.
type Diagnostic struct {
	Kind  Kind
	Loc   source.Location
	Args  []any
	Notes []Diagnostic
}

// Message renders the diagnostic's template with its args.
func (d Diagnostic) Message() string {
	tmpl, ok := templates[d.Kind]
	if !ok {
		return "internal error: unknown diagnostic kind"
	}
	if len(d.Args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, d.Args...)
}

// Sink collects and renders diagnostics. The zero value writes to
// nowhere useful; use New.
type Sink struct {
	mu           sync.Mutex
	w            io.Writer
	color        bool
	jsonMode     bool
	all          []Diagnostic
	hasErrors    atomic.Bool
	onDiagnostic func(Severity)
}

// Options configures a Sink.
type Options struct {
	Writer  io.Writer
	JSON    bool
	NoColor bool

	// OnDiagnostic, if set, is called once per reported diagnostic with
	// its severity, letting a caller (cmd/jellyc wiring
	// internal/metrics) count diagnostics without the sink importing
	// the metrics package.
	OnDiagnostic func(Severity)
}

// New constructs a Sink. Color is auto-detected via go-isatty unless
// NoColor is set or JSON mode is requested.
func New(opts Options) *Sink {
	useColor := !opts.NoColor && !opts.JSON
	if f, ok := opts.Writer.(interface{ Fd() uintptr }); ok && useColor {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	} else if useColor {
		// Non-file writers (buffers in tests) never get ANSI codes.
		useColor = false
	}
	return &Sink{w: opts.Writer, color: useColor, jsonMode: opts.JSON, onDiagnostic: opts.OnDiagnostic}
}

// Report records a diagnostic, prints it immediately (unless JSON mode,
// which only records it; nothing is rendered or written as JSON), and
// raises the error flag for SeverityError-class diagnostics. Safe for
// concurrent use by stage 3/4 workers (spec.md §5).
func (s *Sink) Report(d Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, d)
	sev := SeverityOf(d.Kind)
	if sev == SeverityError {
		s.hasErrors.Store(true)
	}
	if !s.jsonMode && s.w != nil {
		s.render(d, 0)
	}
	if s.onDiagnostic != nil {
		s.onDiagnostic(sev)
	}
}

func (s *Sink) render(d Diagnostic, depth int) {
	prefix := "error"
	c := color.New(color.FgRed, color.Bold)
	if SeverityOf(d.Kind) == SeverityNote {
		prefix = "note"
		c = color.New(color.FgCyan)
	}
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	if s.color {
		fmt.Fprintf(s.w, "%s%s: %s: %s\n", indent, d.Loc.String(), c.Sprint(prefix), d.Message())
	} else {
		fmt.Fprintf(s.w, "%s%s: %s: %s\n", indent, d.Loc.String(), prefix, d.Message())
	}
	if snippet, col := d.Loc.Snippet(); snippet != "" {
		fmt.Fprintf(s.w, "%s    %s\n", indent, snippet)
		fmt.Fprintf(s.w, "%s    %*s^\n", indent, col-1, "")
	}
	for _, n := range d.Notes {
		s.render(n, depth+1)
	}
}

// HasErrors reports whether any SeverityError diagnostic was reported.
func (s *Sink) HasErrors() bool {
	return s.hasErrors.Load()
}

// All returns every diagnostic reported so far, in report order.
func (s *Sink) All() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Diagnostic, len(s.all))
	copy(out, s.all)
	return out
}

// Count returns the number of SeverityError diagnostics reported.
func (s *Sink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.all {
		if SeverityOf(d.Kind) == SeverityError {
			n++
		}
	}
	return n
}
