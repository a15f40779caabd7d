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

// combine folds a value into an FNV-1a style running hash, used to hash
// a structural type's tag and payload ids. Grounded on the original's
// hash.c contract (combine tag + recursive payload hashes); reimplemented
// independently rather than ported line-for-line.
func combine(h uint64, v uint64) uint64 {
	h ^= v
	h *= 1099511628211
	return h
}

func hashIDs(h uint64, ids ...ID) uint64 {
	for _, id := range ids {
		h = combine(h, uint64(uint32(id)))
	}
	return h
}

func structuralKey(e Entry) uint64 {
	h := combine(14695981039346656037, uint64(e.Tag))
	switch e.Tag {
	case TagArray:
		h = hashIDs(h, e.LengthType, e.Elem)
	case TagArrayLength:
		h = combine(h, uint64(e.Length))
	case TagPtr, TagPtrMut:
		h = hashIDs(h, e.Elem)
	case TagMultiPtr, TagMultiPtrMut:
		h = hashIDs(h, e.Elem)
	case TagFunction:
		h = combine(h, uint64(e.TypeParamCount))
		h = hashIDs(h, e.Ret)
		h = hashIDs(h, e.Params...)
	case TagTagged:
		h = hashIDs(h, e.Newtype)
		h = hashIDs(h, e.Args...)
	case TagLinear:
		// Per spec.md §9's open question, linear types are compared (and
		// hashed) by element id alone, not by full tagged-type equality.
		h = hashIDs(h, e.Elem)
	}
	return h
}

// structuralEqual implements the deep equality relation spec.md §3
// requires for interning: arrays by (length-type, element); pointers by
// element; functions by arity and all parameter/return ids (non-generic
// only); tagged types by (newtype, all args); linear types by element.
func structuralEqual(a, b Entry) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagArray:
		return a.LengthType == b.LengthType && a.Elem == b.Elem
	case TagArrayLength:
		return a.Length == b.Length
	case TagPtr, TagPtrMut, TagMultiPtr, TagMultiPtrMut:
		return a.Elem == b.Elem
	case TagFunction:
		if a.TypeParamCount != 0 || b.TypeParamCount != 0 {
			// Generic function types are never interned structurally.
			return false
		}
		if a.Ret != b.Ret || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if a.Params[i] != b.Params[i] {
				return false
			}
		}
		return true
	case TagTagged:
		if a.Newtype != b.Newtype || len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if a.Args[i] != b.Args[i] {
				return false
			}
		}
		return true
	case TagLinear:
		return a.Elem == b.Elem
	}
	return false
}

// isStructural reports whether a Tag participates in interning at all;
// nominal tags (struct/enum/newtype/type-parameter) are identified by
// declaration site and are never looked up by this table.
func isStructural(t Tag) bool {
	switch t {
	case TagArray, TagArrayLength, TagPtr, TagPtrMut, TagMultiPtr, TagMultiPtrMut, TagFunction, TagTagged, TagLinear:
		return true
	}
	return false
}
