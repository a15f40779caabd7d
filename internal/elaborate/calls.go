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

// analyzeCallValue dispatches a TagCall node on the refined role its
// callee resolved to: an ordinary function call, a struct constructor
// (callee is a type), or a built-in macro invocation.
func (fc *fnCtx) analyzeCallValue(node ast.ID, n ast.Node, entry rir.Entry) values.ID {
	switch entry.Tag {
	case rir.TagConstructor:
		return fc.analyzeConstructorValue(node, n)
	case rir.TagMacroCall:
		argNodes := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
		return fc.analyzeMacro(node, symtab.BuiltinID(entry.Data), argNodes)
	case rir.TagCall:
		return fc.analyzeFunctionCall(node, n)
	}
	fc.reportf(diagsink.ErrNotCallable, node, "expression")
	return values.ErrorValue
}

func (fc *fnCtx) analyzeFunctionCall(node ast.ID, n ast.Node) values.ID {
	calleeNode := ast.ID(n.B)
	argNodes := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)

	callee := fc.analyzeValue(calleeNode, types.Invalid)
	fnTy := fc.typeOf(callee)
	if fc.store.TagOf(fnTy) != types.TagFunction {
		fc.reportf(diagsink.ErrNotCallable, node, fc.typeString(fnTy))
		return values.ErrorValue
	}
	fe := fc.store.Function(fnTy)
	if len(argNodes) != len(fe.Params) {
		fc.reportf(diagsink.ErrArgumentCount, node, len(fe.Params), len(argNodes))
		return values.ErrorValue
	}

	ret := fe.Ret
	var ids []int32
	if fe.TypeParamCount > 0 {
		argVals := make([]values.ID, len(argNodes))
		argTypes := make([]types.ID, len(argNodes))
		for i, a := range argNodes {
			argVals[i] = fc.analyzeValue(a, types.Invalid)
			argTypes[i] = fc.typeOf(argVals[i])
		}
		results := make([]types.ID, fe.TypeParamCount)
		ok := true
		for i, p := range fe.Params {
			if !fc.store.MatchTypeParameters(results, p, argTypes[i]) {
				ok = false
			}
		}
		for i, r := range results {
			if r == types.Invalid {
				fc.reportf(diagsink.ErrTypeArgumentInference, node, i)
				ok = false
			}
		}
		if !ok {
			return values.ErrorValue
		}
		ret = fc.store.ReplaceTypeParameters(results, ret)
		ids = make([]int32, len(argNodes))
		for i, p := range fe.Params {
			want := fc.store.ReplaceTypeParameters(results, p)
			v := fc.convert(argVals[i], want, argNodes[i])
			ids[i] = int32(v)
		}
	} else {
		ids = make([]int32, len(argNodes))
		for i, p := range fe.Params {
			v := fc.analyzeValue(argNodes[i], p)
			v = fc.convert(v, p, argNodes[i])
			ids[i] = int32(v)
		}
	}

	start, count := fc.tirFn.PushExtra(ids...)
	return fc.pushExpr(tir.Inst{Tag: tir.TagCall, AST: node, Left: int32(callee), ExtraStart: start, ExtraCount: count}, ret, values.CategoryTemporary)
}

// analyzeConstructorValue elaborates `Name(args...)` / `Name[Args...](args...)`
// where Name resolved to a struct type, instantiating a generic struct by
// unifying its field types against the argument types when no explicit
// type arguments were given (spec.md §4.3 "Generics").
func (fc *fnCtx) analyzeConstructorValue(node ast.ID, n ast.Node) values.ID {
	calleeNode := ast.ID(n.B)
	argNodes := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)

	ty := fc.analyzeType(calleeNode)
	if ty == types.Invalid {
		return values.ErrorValue
	}

	switch fc.store.TagOf(ty) {
	case types.TagStruct:
		e := fc.store.Get(ty)
		if e.StructTypeParamCount > 0 {
			if len(argNodes) != len(e.Fields) {
				fc.reportf(diagsink.ErrFieldCount, node, len(e.Fields), len(argNodes))
				return values.ErrorValue
			}
			argVals := make([]values.ID, len(argNodes))
			argTypes := make([]types.ID, len(argNodes))
			for i, a := range argNodes {
				argVals[i] = fc.analyzeValue(a, types.Invalid)
				argTypes[i] = fc.typeOf(argVals[i])
			}
			results := make([]types.ID, e.StructTypeParamCount)
			ok := true
			for i, f := range e.Fields {
				if !fc.store.MatchTypeParameters(results, f, argTypes[i]) {
					ok = false
				}
			}
			for i, r := range results {
				if r == types.Invalid {
					fc.reportf(diagsink.ErrTypeArgumentInference, node, i)
					ok = false
				}
			}
			if !ok {
				return values.ErrorValue
			}
			concrete := fc.store.InstantiateGeneric(ty, results, fc.e.Target)
			fields := fc.store.Get(fc.store.StripTagged(concrete)).Fields
			return fc.finishConstructor(node, concrete, fields, argNodes, argVals)
		}
		return fc.finishConstructor(node, ty, e.Fields, argNodes, nil)

	case types.TagTagged:
		inner := fc.store.StripTagged(ty)
		if inner == types.Invalid {
			fc.reportf(diagsink.ErrNotConstructible, node, fc.typeString(ty))
			return values.ErrorValue
		}
		return fc.finishConstructor(node, ty, fc.store.Get(inner).Fields, argNodes, nil)
	}

	fc.reportf(diagsink.ErrNotConstructible, node, fc.typeString(ty))
	return values.ErrorValue
}

// finishConstructor checks the field count and elaborates each argument
// against its field's type, emitting the TagStructLit. argVals, when
// non-nil, holds already-elaborated (pre-inference) argument values so
// the generic path doesn't elaborate each argument twice.
func (fc *fnCtx) finishConstructor(node ast.ID, ty types.ID, fields []types.ID, argNodes []ast.ID, argVals []values.ID) values.ID {
	if len(argNodes) != len(fields) {
		fc.reportf(diagsink.ErrFieldCount, node, len(fields), len(argNodes))
		return values.ErrorValue
	}
	ids := make([]int32, len(fields))
	for i, f := range fields {
		var v values.ID
		if argVals != nil {
			v = argVals[i]
		} else {
			v = fc.analyzeValue(argNodes[i], f)
		}
		v = fc.convert(v, f, argNodes[i])
		ids[i] = int32(v)
	}
	start, count := fc.tirFn.PushExtra(ids...)
	return fc.pushExpr(tir.Inst{Tag: tir.TagStructLit, AST: node, ExtraStart: start, ExtraCount: count}, ty, values.CategoryTemporary)
}

// analyzeMacro elaborates the four fixed `size_of`/`align_of`/
// `zero_extend`/`slice` built-ins (spec.md §6), reached either through a
// TagCall (value arguments) or a TagIndex (a type argument) node.
func (fc *fnCtx) analyzeMacro(node ast.ID, bid symtab.BuiltinID, argNodes []ast.ID) values.ID {
	switch bid {
	case symtab.BuiltinSizeOf, symtab.BuiltinAlignOf:
		if len(argNodes) != 1 {
			fc.reportf(diagsink.ErrArgumentCount, node, 1, len(argNodes))
			return values.ErrorValue
		}
		ty := fc.analyzeType(argNodes[0])
		if fc.store.IsLinear(ty) {
			fc.reportf(diagsink.ErrUnknownSize, node, fc.typeString(ty))
			return values.ErrorValue
		}
		if bid == symtab.BuiltinSizeOf {
			return fc.vals.NewIntConstant(types.Isize, fc.store.SizeOf(ty, fc.e.Target))
		}
		return fc.vals.NewIntConstant(types.Isize, fc.store.AlignOf(ty, fc.e.Target))

	case symtab.BuiltinZeroExtend:
		if len(argNodes) != 1 {
			fc.reportf(diagsink.ErrArgumentCount, node, 1, len(argNodes))
			return values.ErrorValue
		}
		v := fc.analyzeValue(argNodes[0], types.Invalid)
		ty := fc.typeOf(v)
		if !types.IsInt(ty) && ty != types.Byte && ty != types.Char {
			fc.reportf(diagsink.ErrOperandMismatch, node, fc.typeString(ty), "an integer type")
			return values.ErrorValue
		}
		return fc.pushExpr(tir.Inst{Tag: tir.TagZext, AST: node, Left: int32(v)}, types.Isize, values.CategoryTemporary)

	case symtab.BuiltinSlice:
		if len(argNodes) != 2 {
			fc.reportf(diagsink.ErrArgumentCount, node, 2, len(argNodes))
			return values.ErrorValue
		}
		ptr := fc.analyzeValue(argNodes[0], types.Invalid)
		ptrTy := fc.typeOf(ptr)
		if fc.store.TagOf(ptrTy) != types.TagPtr && fc.store.TagOf(ptrTy) != types.TagPtrMut {
			fc.reportf(diagsink.ErrSliceConstructorNeedsPointer, node)
			return values.ErrorValue
		}
		length := fc.convert(fc.analyzeValue(argNodes[1], types.Isize), types.Isize, argNodes[1])
		sliceTy := fc.store.NewMultiPointer(fc.store.Get(ptrTy).Elem, fc.store.IsMutPointer(ptrTy))
		return fc.pushExpr(tir.Inst{Tag: tir.TagArrayToSlice, AST: node, Left: int32(ptr), Right: int32(length)}, sliceTy, values.CategoryTemporary)
	}

	fc.reportf(diagsink.ErrNotCallable, node, "macro")
	return values.ErrorValue
}
