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

// Target distinguishes the two pointer widths the core supports
// (spec.md §6 "Target sizes").
type Target int

const (
	Target32 Target = iota
	Target64
)

// PointerSize returns the pointer width in bytes for t.
func (t Target) PointerSize() int64 {
	if t == Target32 {
		return 4
	}
	return 8
}

func align(offset, alignment int64) int64 {
	if alignment <= 1 {
		return offset
	}
	return (offset + alignment - 1) &^ (alignment - 1)
}

// SizeOf computes a type's size in bytes under natural C-like layout
// (spec.md §6): scalar size equals width; struct size/alignment are
// computed left-to-right with field-alignment padding; slices are two
// pointer-sized fields.
func (s *Store) SizeOf(id ID, target Target) int64 {
	if IsPrimitive(id) {
		return primitiveSize(id, target)
	}
	e := s.Get(id)
	switch e.Tag {
	case TagPtr, TagPtrMut:
		return target.PointerSize()
	case TagMultiPtr, TagMultiPtrMut:
		return 2 * target.PointerSize()
	case TagArray:
		return s.ArrayLength(id) * s.SizeOf(e.Elem, target)
	case TagStruct:
		return e.Size
	case TagEnum:
		return s.SizeOf(e.Repr, target)
	case TagNewtype:
		return s.SizeOf(e.Underlying, target)
	case TagTagged:
		return s.SizeOf(e.Inner, target)
	case TagLinear:
		return s.SizeOf(e.Elem, target)
	}
	return 0
}

// AlignOf computes a type's required alignment in bytes.
func (s *Store) AlignOf(id ID, target Target) int64 {
	if IsPrimitive(id) {
		return primitiveSize(id, target)
	}
	e := s.Get(id)
	switch e.Tag {
	case TagPtr, TagPtrMut, TagMultiPtr, TagMultiPtrMut:
		return target.PointerSize()
	case TagArray:
		return s.AlignOf(e.Elem, target)
	case TagStruct:
		return int64(e.Align)
	case TagEnum:
		return s.AlignOf(e.Repr, target)
	case TagNewtype:
		return s.AlignOf(e.Underlying, target)
	case TagTagged:
		return s.AlignOf(e.Inner, target)
	case TagLinear:
		return s.AlignOf(e.Elem, target)
	}
	return 1
}

func primitiveSize(id ID, target Target) int64 {
	switch id {
	case Void:
		return 0
	case I8, Byte, Bool, Char:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	case I64, F64:
		return 8
	case Isize, SizeTag, AlignmentTag:
		return target.PointerSize()
	}
	return 0
}

// LayoutStruct computes a struct's size and alignment from its field
// types, in declaration order, left-to-right with padding for field
// alignment — the same left-to-right contract spec.md §6 requires.
func (s *Store) LayoutStruct(fields []ID, target Target) (size int64, alignment int32) {
	var offset int64
	var maxAlign int64 = 1
	for _, f := range fields {
		a := s.AlignOf(f, target)
		if a > maxAlign {
			maxAlign = a
		}
		offset = align(offset, a)
		offset += s.SizeOf(f, target)
	}
	offset = align(offset, maxAlign)
	return offset, int32(maxAlign)
}
