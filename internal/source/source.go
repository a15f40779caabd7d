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
// Package source holds the positions and file text the rest of the
// compiler core reports diagnostics against. Lexing and parsing are
// external collaborators; this package only carries what they hand us.
package source

import "fmt"

// Index is a byte offset into a File's text.
type Index int32

// File is a single source file: its path and full text. The core treats
// File as read-only input produced upstream of the pipeline.
type File struct {
	Path string
	Text string
}

// Span is a half-open byte range [Start, End) within a File.
type Span struct {
	Start Index
	End   Index
}

// Location bundles everything a diagnostic renderer needs: which file,
// the full text (to slice out a line), the primary span, and a caret
// position within that span (used as the caller set it; a zero Caret is
// not replaced by Span.Start).
type Location struct {
	File   *File
	Span   Span
	Caret  Index
}

// LineCol converts a byte index into a 1-based (line, column) pair by
// scanning the file text. Compiler cores favor clarity over speed for a
// diagnostic-path helper; it is not used in the hot elaboration path.
func (l Location) LineCol() (line, col int) {
	line, col = 1, 1
	if l.File == nil {
		return line, col
	}
	text := l.File.Text
	limit := int(l.Caret)
	if limit > len(text) {
		limit = len(text)
	}
	for i := 0; i < limit; i++ {
		if text[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Snippet returns the source line containing the caret and the column
// (1-based) a caret marker should be printed under.
func (l Location) Snippet() (string, int) {
	if l.File == nil {
		return "", 0
	}
	text := l.File.Text
	caret := int(l.Caret)
	if caret > len(text) {
		caret = len(text)
	}
	start := caret
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end := caret
	for end < len(text) && text[end] != '\n' {
		end++
	}
	_, col := l.LineCol()
	return text[start:end], col
}

func (l Location) String() string {
	line, col := l.LineCol()
	path := "<unknown>"
	if l.File != nil {
		path = l.File.Path
	}
	return fmt.Sprintf("%s:%d:%d", path, line, col)
}
