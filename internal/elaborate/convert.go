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

package elaborate

import (
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// convert applies the ordered implicit-conversion rules when
// v's type doesn't already match want exactly: array-to-slice decay,
// mutability weakening on pointers/slices, and tagged-layer stripping.
// It reports ERROR_VALUE_TYPE_MISMATCH and returns v unchanged when none
// apply, so callers can keep using the (wrongly typed) value without a
// second error cascading from it.
func (fc *fnCtx) convert(v values.ID, want types.ID, node ast.ID) values.ID {
	got := fc.typeOf(v)
	if want == types.Invalid || got == types.Invalid || got == want {
		return v
	}
	store := fc.store

	// Rule 1: array-to-slice decay.
	if store.IsArray(got) && store.IsSlice(want) {
		arrayElem := store.Get(got).Elem
		wantElem := store.RemoveSlice(want)
		if arrayElem == wantElem {
			length := store.ArrayLength(got)
			lenVal := fc.vals.NewIntConstant(types.Isize, length)
			return fc.pushExpr(tir.Inst{Tag: tir.TagArrayToSlice, AST: node, Left: int32(v), Right: int32(lenVal)}, want, values.CategoryTemporary)
		}
	}

	// Rule 2: mutability weakening (mut pointer/slice -> immutable) is a
	// no-op at the representation level, so it lowers to TIR_NOP rather
	// than a cast.
	if store.IsMutPointer(got) && store.TagOf(want) == types.TagPtr && store.Get(got).Elem == store.Get(want).Elem {
		return fc.pushExpr(tir.Inst{Tag: tir.TagNop, AST: node, Left: int32(v)}, want, values.CategoryTemporary)
	}
	if store.IsMutSlice(got) && store.IsSlice(want) && !store.IsMutSlice(want) && store.RemoveSlice(got) == store.RemoveSlice(want) {
		return fc.pushExpr(tir.Inst{Tag: tir.TagNop, AST: node, Left: int32(v)}, want, values.CategoryTemporary)
	}

	// Rule 3: pointer type-erasure (pointer-to-T -> pointer-to-byte),
	// used when passing a typed pointer where an opaque `*byte` is
	// expected (e.g. allocator-style extern signatures).
	if (store.TagOf(got) == types.TagPtr || store.TagOf(got) == types.TagPtrMut) && want == store.NewPointer(types.Byte, store.IsMutPointer(got)) {
		return fc.pushExpr(tir.Inst{Tag: tir.TagPtrCast, AST: node, Left: int32(v)}, want, values.CategoryTemporary)
	}

	// Rule 4: tagged-layer stripping (tag[Args...] -> tag:inner), used
	// when a generic instantiation or decorated newtype is passed where
	// its plain underlying representation is expected.
	if stripped := store.StripTagged(got); stripped != types.Invalid && stripped == want {
		return fc.pushExpr(tir.Inst{Tag: tir.TagNop, AST: node, Left: int32(v)}, want, fc.catOf(v))
	}

	fc.reportf(diagsink.ErrValueTypeMismatch, node, fc.typeString(want), fc.typeString(got))
	return v
}
