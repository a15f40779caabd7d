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
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// analyzeIndexValue elaborates a TagIndex node in value position: either
// a built-in macro taking a type argument (`size_of[T]`) or an ordinary
// array/slice element read.
func (fc *fnCtx) analyzeIndexValue(node ast.ID, n ast.Node, entry rir.Entry) values.ID {
	argNodes := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	switch entry.Tag {
	case rir.TagMacroCall:
		return fc.analyzeMacro(node, symtab.BuiltinID(entry.Data), argNodes)

	case rir.TagIndexValue:
		operand := fc.analyzeValue(ast.ID(n.B), types.Invalid)
		opTy := fc.typeOf(operand)
		var elem types.ID
		var cat values.Category
		switch {
		case fc.store.IsArray(opTy):
			elem = fc.store.Get(opTy).Elem
			cat = fc.catOf(operand)
		case fc.store.IsSlice(opTy):
			elem = fc.store.RemoveSlice(opTy)
			cat = values.CategoryPlace
			if fc.store.IsMutSlice(opTy) {
				cat = values.CategoryMutablePlace
			}
		default:
			fc.reportf(diagsink.ErrIndexOperandRole, node, fc.typeString(opTy))
			return values.ErrorValue
		}
		if len(argNodes) != 1 {
			fc.reportf(diagsink.ErrArgumentCount, node, 1, len(argNodes))
			return values.ErrorValue
		}
		idx := fc.convert(fc.analyzeValue(argNodes[0], types.Isize), types.Isize, argNodes[0])
		return fc.pushExpr(tir.Inst{Tag: tir.TagIndex, AST: node, Left: int32(operand), Right: int32(idx)}, elem, cat)
	}
	fc.reportf(diagsink.ErrIndexOperandRole, node, "expression")
	return values.ErrorValue
}

// analyzeSliceValue elaborates `x[lo:hi]`, producing a slice over an
// array or an existing slice. An absent bound defaults to 0 (lo) or a
// sentinel meaning "to the end" (hi), matching tir.TagSlice's doc.
func (fc *fnCtx) analyzeSliceValue(node ast.ID, n ast.Node) values.ID {
	operand := fc.analyzeValue(ast.ID(n.B), types.Invalid)
	opTy := fc.typeOf(operand)

	var elem types.ID
	mut := false
	switch {
	case fc.store.IsArray(opTy):
		elem = fc.store.Get(opTy).Elem
	case fc.store.IsSlice(opTy):
		elem = fc.store.RemoveSlice(opTy)
		mut = fc.store.IsMutSlice(opTy)
	default:
		fc.reportf(diagsink.ErrIndexOperandRole, node, fc.typeString(opTy))
		return values.ErrorValue
	}

	extra := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	loNode, hiNode := extra[0], extra[1]
	var lo, hi values.ID
	if loNode != ast.NoID {
		lo = fc.convert(fc.analyzeValue(loNode, types.Isize), types.Isize, loNode)
	} else {
		lo = fc.vals.NewIntConstant(types.Isize, 0)
	}
	if hiNode != ast.NoID {
		hi = fc.convert(fc.analyzeValue(hiNode, types.Isize), types.Isize, hiNode)
	}

	resultTy := fc.store.NewMultiPointer(elem, mut)
	start, count := fc.tirFn.PushExtra(int32(lo), int32(hi))
	return fc.pushExpr(tir.Inst{Tag: tir.TagSlice, AST: node, Left: int32(operand), ExtraStart: start, ExtraCount: count}, resultTy, values.CategoryTemporary)
}

// analyzeListLit elaborates an array literal, taking its element type
// from hint when hint is an array type, else from its first element.
func (fc *fnCtx) analyzeListLit(node ast.ID, n ast.Node, hint types.ID) values.ID {
	elemNodes := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	if len(elemNodes) == 0 {
		fc.reportf(diagsink.ErrEmptyArray, node)
		return values.ErrorValue
	}

	elemHint := types.Invalid
	if hint != types.Invalid && fc.store.IsArray(hint) {
		elemHint = fc.store.Get(hint).Elem
	}

	first := fc.analyzeValue(elemNodes[0], elemHint)
	elemTy := fc.typeOf(first)
	ids := make([]int32, len(elemNodes))
	ids[0] = int32(first)
	for i := 1; i < len(elemNodes); i++ {
		v := fc.analyzeValue(elemNodes[i], elemTy)
		v = fc.convert(v, elemTy, elemNodes[i])
		ids[i] = int32(v)
	}

	lt := fc.store.NewArrayLength(int64(len(elemNodes)))
	arrTy := fc.store.NewArray(lt, elemTy)
	start, count := fc.tirFn.PushExtra(ids...)
	return fc.pushExpr(tir.Inst{Tag: tir.TagArrayLit, AST: node, ExtraStart: start, ExtraCount: count}, arrTy, values.CategoryTemporary)
}
