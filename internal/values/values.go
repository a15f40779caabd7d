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
// Package values is the value table from spec.md §3 "Values": every
// value has a type and a variant (error, extern function/var, function,
// string/integer/float/null constant, immutable/mutable variable,
// temporary), plus a derived category (invalid, temporary, place,
// mutable place).
package values

import (
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/types"
)

// ID is an opaque value id. Id 0 is the canonical "error value" sentinel
// (spec.md §7 propagation policy). Like types.ID, the LocalBit marks a
// value allocated by a per-function worker's thread-local table.
type ID int32

// LocalBit marks a thread-local value id.
const LocalBit ID = 1 << 30

func (id ID) IsLocal() bool { return id&LocalBit != 0 }

// ErrorValue is id 0.
const ErrorValue ID = 0

// Variant is the value's discriminant.
type Variant uint8

const (
	VariantError Variant = iota
	VariantExternFunction
	VariantFunction
	VariantExternVar
	VariantString
	VariantInt
	VariantFloat
	VariantNull
	VariantImmutableVar
	VariantMutableVar
	VariantTemporary
)

// Category is the derived place-ness spec.md §3 describes. It is set
// when a value is created (for a temporary, from the instruction that
// produced it) and stored in the value's Entry (spec.md §9 "Category
// derivation").
type Category uint8

const (
	CategoryInvalid Category = iota
	CategoryTemporary
	CategoryPlace
	CategoryMutablePlace
)

// Entry is one value's stored data.
type Entry struct {
	Type     types.ID
	Variant  Variant
	Category Category

	// VariantExternFunction / VariantExternVar: external symbol name.
	// VariantFunction: qualified symbol name.
	Name strtab.ID

	// VariantString: offset into the string table (see Strings).
	StringOffset int32

	// VariantInt
	Int int64
	// VariantFloat
	Float float64

	// VariantImmutableVar / VariantMutableVar: numeric local index.
	LocalIndex int32

	// VariantTemporary: producing TIR instruction id, kept as a plain
	// int32 to avoid an import cycle with internal/tir; tir.ID and this
	// field share the same numeric domain.
	TirInst int32
}

// Table is a value universe, following the same global/thread-local
// split as types.Store.
type Table struct {
	global  *Table
	entries []Entry
}

// NewGlobal creates the shared global value table, reserving id 0 for
// the canonical error value.
func NewGlobal() *Table {
	t := &Table{entries: make([]Entry, 1)}
	t.entries[0] = Entry{Type: types.Invalid, Variant: VariantError, Category: CategoryInvalid}
	return t
}

// NewWorker creates a thread-local value table for one function.
func (g *Table) NewWorker() *Table {
	return &Table{global: g}
}

func (t *Table) alloc(e Entry) ID {
	if t.global == nil {
		t.entries = append(t.entries, e)
		return ID(len(t.entries) - 1)
	}
	t.entries = append(t.entries, e)
	return ID(len(t.entries)-1) | LocalBit
}

// Get resolves id to its Entry.
func (t *Table) Get(id ID) Entry {
	if id.IsLocal() {
		return t.entries[int32(id&^LocalBit)]
	}
	if t.global != nil {
		return t.global.Get(id)
	}
	return t.entries[int32(id)]
}

func (t *Table) NewIntConstant(ty types.ID, x int64) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantInt, Category: CategoryTemporary, Int: x})
}

func (t *Table) NewFloatConstant(ty types.ID, x float64) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantFloat, Category: CategoryTemporary, Float: x})
}

func (t *Table) NewNullConstant(ty types.ID) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantNull, Category: CategoryTemporary})
}

func (t *Table) NewStringConstant(ty types.ID, offset int32) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantString, Category: CategoryTemporary, StringOffset: offset})
}

func (t *Table) NewFunction(ty types.ID, name strtab.ID) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantFunction, Category: CategoryTemporary, Name: name})
}

func (t *Table) NewExternFunction(ty types.ID, name strtab.ID) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantExternFunction, Category: CategoryTemporary, Name: name})
}

func (t *Table) NewExternVar(ty types.ID, name strtab.ID) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantExternVar, Category: CategoryPlace, Name: name})
}

func (t *Table) NewVariable(ty types.ID, mutable bool, localIndex int32) ID {
	variant, cat := VariantImmutableVar, CategoryPlace
	if mutable {
		variant, cat = VariantMutableVar, CategoryMutablePlace
	}
	return t.alloc(Entry{Type: ty, Variant: variant, Category: cat, LocalIndex: localIndex})
}

// NewTemporary records a temporary produced by TIR instruction tirInst,
// with the category derived by the caller (internal/elaborate) from the
// producing instruction's tag per spec.md §9.
func (t *Table) NewTemporary(ty types.ID, tirInst int32, category Category) ID {
	return t.alloc(Entry{Type: ty, Variant: VariantTemporary, Category: category, TirInst: tirInst})
}

// TypeOf is a convenience accessor.
func (t *Table) TypeOf(id ID) types.ID { return t.Get(id).Type }

// CategoryOf is a convenience accessor.
func (t *Table) CategoryOf(id ID) Category { return t.Get(id).Category }
