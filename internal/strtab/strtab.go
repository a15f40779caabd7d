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
// Package strtab interns identifier and path text into small integer ids
// so AST, type, and symbol records can carry a 4-byte name field instead
// of a Go string, matching the SoA design used throughout the core.
package strtab

// ID is an interned string's handle. Zero means "no name".
type ID int32

// Table is a deduplicating string interner. The zero value is ready to
// use.
type Table struct {
	strings []string
	index   map[string]ID
}

// New creates an empty Table.
func New() *Table {
	return &Table{strings: []string{""}, index: map[string]ID{"": 0}}
}

// Intern returns s's id, allocating a new one if s hasn't been seen.
func (t *Table) Intern(s string) ID {
	if t.index == nil {
		t.strings = []string{""}
		t.index = map[string]ID{"": 0}
	}
	if id, ok := t.index[s]; ok {
		return id
	}
	id := ID(len(t.strings))
	t.strings = append(t.strings, s)
	t.index[s] = id
	return id
}

// Text resolves an id back to its string.
func (t *Table) Text(id ID) string {
	if int(id) >= len(t.strings) {
		return ""
	}
	return t.strings[id]
}
