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

package types

// Matcher is the small pattern-matching DSL supplemented from the
// original's TypeMatcher/match_types (spec.md §9, "the original's
// type-analysis.h carries a TypeMatcher DSL"). It recognizes shapes
// like "a mutable pointer to an array of T" with one pattern. No code in
// this module calls it: implicit conversion (internal/elaborate) and
// MatchTypeParameters use their own tag switches.
type Matcher struct {
	kind   matchKind
	slot   int // which T-binding slot this matcher fills, for MatchT
	byte_  bool
	inner  []*Matcher
}

type matchKind int

const (
	matchIgnore matchKind = iota
	matchT
	matchByte
	matchArray
	matchAnyPointer
	matchAnySlice
	matchPointer
	matchMutPointer
	matchSlice
	matchMutSlice
	matchTagged
)

// MatchT binds whatever type occupies this position into results[slot].
func MatchT(slot int) *Matcher { return &Matcher{kind: matchT, slot: slot} }

// MatchAnyPointer matches PTR or PTR_MUT, recursing into elem.
func MatchAnyPointer(elem *Matcher) *Matcher { return &Matcher{kind: matchAnyPointer, inner: []*Matcher{elem}} }

// MatchAnySlice matches MULTIPTR or MULTIPTR_MUT, recursing into elem.
func MatchAnySlice(elem *Matcher) *Matcher { return &Matcher{kind: matchAnySlice, inner: []*Matcher{elem}} }

// MatchMutPointer matches only PTR_MUT.
func MatchMutPointer(elem *Matcher) *Matcher { return &Matcher{kind: matchMutPointer, inner: []*Matcher{elem}} }

// MatchMutSlice matches only MULTIPTR_MUT.
func MatchMutSlice(elem *Matcher) *Matcher { return &Matcher{kind: matchMutSlice, inner: []*Matcher{elem}} }

// MatchArray matches an ARRAY type, recursing into its element.
func MatchArray(elem *Matcher) *Matcher { return &Matcher{kind: matchArray, inner: []*Matcher{elem}} }

// MatchTagged matches a TAGGED type, recursing into each type argument.
func MatchTagged(args ...*Matcher) *Matcher { return &Matcher{kind: matchTagged, inner: args} }

// Match attempts to match id against m, filling results for every MatchT
// slot it encounters. It returns false (and leaves results partially
// filled) on the first mismatch.
func (s *Store) Match(m *Matcher, id ID, results []ID) bool {
	switch m.kind {
	case matchIgnore:
		return true
	case matchT:
		results[m.slot] = id
		return true
	case matchAnyPointer:
		elem := s.RemovePointer(id)
		return elem != Invalid && s.Match(m.inner[0], elem, results)
	case matchMutPointer:
		if !s.IsMutPointer(id) {
			return false
		}
		return s.Match(m.inner[0], s.Get(id).Elem, results)
	case matchAnySlice:
		elem := s.RemoveSlice(id)
		return elem != Invalid && s.Match(m.inner[0], elem, results)
	case matchMutSlice:
		if !s.IsMutSlice(id) {
			return false
		}
		return s.Match(m.inner[0], s.Get(id).Elem, results)
	case matchArray:
		if IsPrimitive(id) || s.Get(id).Tag != TagArray {
			return false
		}
		return s.Match(m.inner[0], s.Get(id).Elem, results)
	case matchTagged:
		if IsPrimitive(id) || s.Get(id).Tag != TagTagged {
			return false
		}
		args := s.Get(id).Args
		if len(args) != len(m.inner) {
			return false
		}
		for i, sub := range m.inner {
			if !s.Match(sub, args[i], results) {
				return false
			}
		}
		return true
	}
	return false
}
