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

// TagOf returns id's Tag, or a zero Tag for primitive ids (callers must
// check IsPrimitive first when that distinction matters).
func (s *Store) TagOf(id ID) Tag {
	return s.Get(id).Tag
}

// IsPrimitive reports whether id is one of the fixed built-in ids.
func IsPrimitive(id ID) bool {
	return !id.IsLocal() && id < firstAllocated
}

// RemovePointer strips a single PTR/PTR_MUT layer, returning Invalid if
// id isn't a pointer.
func (s *Store) RemovePointer(id ID) ID {
	if IsPrimitive(id) {
		return Invalid
	}
	e := s.Get(id)
	if e.Tag == TagPtr || e.Tag == TagPtrMut {
		return e.Elem
	}
	return Invalid
}

// IsMutPointer reports whether id is specifically PTR_MUT.
func (s *Store) IsMutPointer(id ID) bool {
	return !IsPrimitive(id) && s.Get(id).Tag == TagPtrMut
}

// RemoveSlice strips a single MULTIPTR/MULTIPTR_MUT layer.
func (s *Store) RemoveSlice(id ID) ID {
	if IsPrimitive(id) {
		return Invalid
	}
	e := s.Get(id)
	if e.Tag == TagMultiPtr || e.Tag == TagMultiPtrMut {
		return e.Elem
	}
	return Invalid
}

// IsMutSlice reports whether id is specifically MULTIPTR_MUT.
func (s *Store) IsMutSlice(id ID) bool {
	return !IsPrimitive(id) && s.Get(id).Tag == TagMultiPtrMut
}

// IsSlice reports whether id is MULTIPTR or MULTIPTR_MUT.
func (s *Store) IsSlice(id ID) bool {
	if IsPrimitive(id) {
		return false
	}
	t := s.Get(id).Tag
	return t == TagMultiPtr || t == TagMultiPtrMut
}

// IsArray reports whether id is an ARRAY type.
func (s *Store) IsArray(id ID) bool {
	return !IsPrimitive(id) && s.Get(id).Tag == TagArray
}

// ArrayLength returns an ARRAY type's element count, reading through its
// ARRAY_LENGTH singleton length-type.
func (s *Store) ArrayLength(id ID) int64 {
	e := s.Get(id)
	return s.Get(e.LengthType).Length
}

// StripTagged removes a single TAGGED layer, returning its precomputed
// Inner type (newtype's underlying type with type parameters
// substituted), used by implicit conversion rule 4 ("tag[Args...] ->
// tag:inner").
func (s *Store) StripTagged(id ID) ID {
	if IsPrimitive(id) {
		return Invalid
	}
	e := s.Get(id)
	if e.Tag != TagTagged {
		return Invalid
	}
	return e.Inner
}

// IsLinear reports whether a value of this type must be moved exactly
// once (spec.md §4.4): LINEAR types directly, arrays of a linear
// element, and structs with any linear field (precomputed at
// SetStructFields time).
func (s *Store) IsLinear(id ID) bool {
	if IsPrimitive(id) {
		return false
	}
	e := s.Get(id)
	switch e.Tag {
	case TagLinear:
		return true
	case TagArray:
		return s.IsLinear(e.Elem)
	case TagStruct:
		return e.IsLinear
	case TagTagged:
		return s.IsLinear(e.Inner)
	}
	return false
}

// IsAggregate reports whether a type is passed/returned by reference in
// a straightforward C-like ABI (arrays and structs).
func (s *Store) IsAggregate(id ID) bool {
	if IsPrimitive(id) {
		return false
	}
	t := s.Get(id).Tag
	return t == TagArray || t == TagStruct
}

// Function returns a, FUNCTION type's payload.
func (s *Store) Function(id ID) Entry { return s.Get(id) }

// Struct returns a STRUCT type's payload.
func (s *Store) Struct(id ID) Entry { return s.Get(id) }
