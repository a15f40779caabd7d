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

import "github.com/Laia-Ortiga/jellyc/internal/strtab"

// Store is one type universe: either the single shared global table
// (built single-threaded during stage 3's global portion, spec.md §5) or
// a per-function worker's thread-local table pointing back at it. A
// worker probes its own table, then the global table, before allocating
// a new structural type — preserving invariant I1 without locking
// (spec.md §5 "Shared-resource policy").
type Store struct {
	global  *Store
	entries []Entry
	intern  map[uint64][]ID
}

// NewGlobal creates the shared global Store, pre-populated so index 0
// aligns with ID(Invalid) and primitive ids need no entries slot.
func NewGlobal() *Store {
	return &Store{entries: make([]Entry, firstAllocated), intern: make(map[uint64][]ID)}
}

// NewWorker creates a thread-local Store for one function's elaboration,
// backed by the shared global Store for probing and final dedup.
func (g *Store) NewWorker() *Store {
	return &Store{global: g, intern: make(map[uint64][]ID)}
}

// IsGlobal reports whether s is the shared global store.
func (s *Store) IsGlobal() bool { return s.global == nil }

// Get resolves id to its Entry. Primitive ids must not be passed here;
// callers check id < firstAllocated themselves (see Tag/Kind helpers).
func (s *Store) Get(id ID) Entry {
	if id.IsLocal() {
		return s.entries[int32(id&^LocalBit)]
	}
	if s.global != nil {
		return s.global.Get(id)
	}
	return s.entries[int32(id)]
}

func (s *Store) alloc(e Entry) ID {
	if s.global == nil {
		s.entries = append(s.entries, e)
		return ID(len(s.entries) - 1)
	}
	s.entries = append(s.entries, e)
	return ID(len(s.entries)-1) | LocalBit
}

// intern2 probes (global then local) for a structurally equal entry
// before allocating a new one, implementing spec.md §4.3's "Structural
// type construction" contract.
func (s *Store) intern2(e Entry) ID {
	key := structuralKey(e)
	if s.global != nil {
		for _, cand := range s.global.intern[key] {
			if structuralEqual(s.global.Get(cand), e) {
				return cand
			}
		}
	}
	for _, cand := range s.intern[key] {
		if structuralEqual(s.Get(cand), e) {
			return cand
		}
	}
	id := s.alloc(e)
	s.intern[key] = append(s.intern[key], id)
	return id
}

// --- Structural constructors ---

func (s *Store) NewArray(lengthType, elem ID) ID {
	return s.intern2(Entry{Tag: TagArray, LengthType: lengthType, Elem: elem})
}

func (s *Store) NewArrayLength(n int64) ID {
	return s.intern2(Entry{Tag: TagArrayLength, Length: n})
}

func (s *Store) NewPointer(elem ID, mut bool) ID {
	tag := TagPtr
	if mut {
		tag = TagPtrMut
	}
	return s.intern2(Entry{Tag: tag, Elem: elem})
}

func (s *Store) NewMultiPointer(elem ID, mut bool) ID {
	tag := TagMultiPtr
	if mut {
		tag = TagMultiPtrMut
	}
	dataPtr := s.NewPointer(elem, mut)
	return s.intern2(Entry{Tag: tag, Elem: elem, DataPtr: dataPtr})
}

func (s *Store) NewFunction(typeParamCount int32, params []ID, ret ID) ID {
	pcopy := append([]ID(nil), params...)
	e := Entry{Tag: TagFunction, TypeParamCount: typeParamCount, Params: pcopy, Ret: ret}
	if typeParamCount != 0 {
		// Generic function types carry type parameters and are never
		// shared; always allocate fresh (spec.md §3: "functions by arity
		// and all parameter/return ids (non-generic only)").
		return s.alloc(e)
	}
	return s.intern2(e)
}

func (s *Store) NewLinear(elem ID) ID {
	return s.intern2(Entry{Tag: TagLinear, Elem: elem})
}

func (s *Store) NewTagged(newtype, inner ID, args []ID) ID {
	acopy := append([]ID(nil), args...)
	return s.intern2(Entry{Tag: TagTagged, Newtype: newtype, Inner: inner, Args: acopy})
}

// --- Nominal constructors: always allocate, never deduplicated ---

func (s *Store) NewStruct(scope int32, name strtab.ID, typeParamCount int32) ID {
	return s.alloc(Entry{Tag: TagStruct, Scope: scope, Name: name, StructTypeParamCount: typeParamCount})
}

// SetStructFields patches a struct's fields and computed layout after
// its body has been elaborated (structs may reference themselves
// through a pointer, so the id must exist before fields are known).
func (s *Store) SetStructFields(id ID, fields []ID, size int64, align int32, isLinear bool) {
	e := s.entryFor(id)
	e.Fields = fields
	e.Size = size
	e.Align = align
	e.IsLinear = isLinear
	s.setEntry(id, e)
}

func (s *Store) NewEnum(scope int32, name strtab.ID, repr ID) ID {
	return s.alloc(Entry{Tag: TagEnum, Scope: scope, Name: name, Repr: repr})
}

func (s *Store) NewNewtype(name strtab.ID, tagArity int32, underlying ID) ID {
	return s.alloc(Entry{Tag: TagNewtype, Name: name, TagArity: tagArity, Underlying: underlying})
}

func (s *Store) NewTypeParameter(index int32, name strtab.ID) ID {
	return s.alloc(Entry{Tag: TagTypeParameter, ParamIndex: index, Name: name})
}

func (s *Store) entryFor(id ID) Entry {
	if id.IsLocal() {
		return s.entries[int32(id&^LocalBit)]
	}
	return s.entries[int32(id)]
}

func (s *Store) setEntry(id ID, e Entry) {
	if id.IsLocal() {
		s.entries[int32(id&^LocalBit)] = e
	} else {
		s.entries[int32(id)] = e
	}
}
