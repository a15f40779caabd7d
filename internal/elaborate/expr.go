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
	"github.com/Laia-Ortiga/jellyc/internal/role"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

var binTag = map[ast.BinaryOp]tir.Tag{
	ast.BinAdd: tir.TagAdd, ast.BinSub: tir.TagSub, ast.BinMul: tir.TagMul,
	ast.BinDiv: tir.TagDiv, ast.BinRem: tir.TagRem,
	ast.BinBitAnd: tir.TagBitAnd, ast.BinBitOr: tir.TagBitOr, ast.BinBitXor: tir.TagBitXor,
	ast.BinShl: tir.TagShl, ast.BinShr: tir.TagShr,
	ast.BinEq: tir.TagEq, ast.BinNe: tir.TagNe, ast.BinLt: tir.TagLt,
	ast.BinLe: tir.TagLe, ast.BinGt: tir.TagGt, ast.BinGe: tir.TagGe,
}

func isRelational(op ast.BinaryOp) bool {
	switch op {
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		return true
	}
	return false
}

// analyzeValue is stage 3's per-expression elaborator: it walks one
// value-role AST node, emitting whatever TIR sub-instructions it needs
// and returning the values.ID the expression yields. hint carries the
// expected type where context supplies one (an assignment's lhs type, a
// call argument's parameter type); nodes that don't need it ignore it.
func (fc *fnCtx) analyzeValue(node ast.ID, hint types.ID) values.ID {
	n := fc.tree.Get(node)
	entry := fc.rirOf(node)

	switch n.Tag {
	case ast.TagIntLit:
		ty := hint
		if ty == types.Invalid || !(types.IsInt(ty) || ty == types.Byte || ty == types.Char) {
			ty = types.I64
		}
		return fc.vals.NewIntConstant(ty, decodeIntLit(fc.strText(strtab.ID(n.A))))

	case ast.TagFloatLit:
		ty := hint
		if ty != types.F32 && ty != types.F64 {
			ty = types.F64
		}
		return fc.vals.NewFloatConstant(ty, decodeFloatLit(fc.strText(strtab.ID(n.A))))

	case ast.TagBoolLit:
		return fc.vals.NewIntConstant(types.Bool, int64(n.A))

	case ast.TagCharLit:
		return fc.vals.NewIntConstant(types.Char, int64(n.A))

	case ast.TagStringLit:
		ty := hint
		if ty == types.Invalid {
			ty = fc.store.NewMultiPointer(types.Byte, false)
		}
		off := fc.e.StringTable.Intern(values.Unescape(fc.strText(strtab.ID(n.A))))
		return fc.vals.NewStringConstant(ty, off)

	case ast.TagNullLit:
		ty := hint
		if ty == types.Invalid {
			ty = fc.store.NewPointer(types.Void, false)
		}
		return fc.vals.NewNullConstant(ty)

	case ast.TagIdent:
		return fc.analyzeIdentValue(node, entry)

	case ast.TagUnary:
		return fc.analyzeUnaryValue(node, n, entry)

	case ast.TagBinary:
		return fc.analyzeBinaryValue(node, n)

	case ast.TagAssign:
		return fc.analyzeAssignValue(node, n)

	case ast.TagCall:
		return fc.analyzeCallValue(node, n, entry)

	case ast.TagIndex:
		return fc.analyzeIndexValue(node, n, entry)

	case ast.TagSlice:
		return fc.analyzeSliceValue(node, n)

	case ast.TagListLit:
		return fc.analyzeListLit(node, n, hint)

	case ast.TagAccess:
		return fc.analyzeAccessValue(node, n, entry)

	case ast.TagInferredAccess:
		return fc.analyzeInferredAccess(node, entry, hint)

	case ast.TagBlock:
		last := fc.elaborateBlockInto(tir.NoInst, node)
		if last == tir.NoInst {
			return values.ErrorValue
		}
		if v, ok := fc.instValue[last]; ok {
			return v
		}
		return values.ErrorValue

	case ast.TagIf, ast.TagWhile, ast.TagFor, ast.TagSwitch:
		// These occupy statement position in practice; when they appear
		// where a value is expected (the implicit-return elevation of a
		// function's last statement, or a block's trailing expression)
		// the value they yield is whatever the enclosing pushStmt
		// recorded for their last inner instruction.
		last := fc.elaborateStatement(tir.NoInst, node)
		if v, ok := fc.instValue[last]; ok {
			return v
		}
		return values.ErrorValue
	}

	fc.reportf(diagsink.ErrExpectedValueType, node)
	return values.ErrorValue
}

func (fc *fnCtx) analyzeIdentValue(node ast.ID, entry rir.Entry) values.ID {
	switch entry.Tag {
	case rir.TagLocalID:
		if b, ok := fc.locals[entry.Data]; ok {
			return b.value
		}
		return values.ErrorValue

	case rir.TagGlobalID:
		did := symtab.DefID(entry.Data)
		fc.e.elaborateGlobal(did)
		info := fc.e.decls[did]
		if info == nil {
			return values.ErrorValue
		}
		switch info.tag {
		case ast.TagConst, ast.TagExternVar, ast.TagExternFunction, ast.TagFunctionDecl:
			return info.value
		}
		fc.reportf(diagsink.ErrExpectedValueType, node)
		return values.ErrorValue

	case rir.TagBuiltinID:
		// A bare macro name with no call/index around it (e.g. passed
		// where a value is syntactically expected) has no value form.
		fc.reportf(diagsink.ErrExpectedValueType, node)
		return values.ErrorValue
	}
	fc.reportf(diagsink.ErrUndefinedName, node, "")
	return values.ErrorValue
}

func (fc *fnCtx) analyzeUnaryValue(node ast.ID, n ast.Node, entry rir.Entry) values.ID {
	operand := ast.ID(n.B)
	switch entry.Tag {
	case rir.TagDeref:
		ptr := fc.analyzeValue(operand, types.Invalid)
		elem := fc.store.RemovePointer(fc.typeOf(ptr))
		if elem == types.Invalid {
			fc.reportf(diagsink.ErrDerefOperandRole, node, fc.typeString(fc.typeOf(ptr)))
			return values.ErrorValue
		}
		cat := values.CategoryPlace
		if fc.store.IsMutPointer(fc.typeOf(ptr)) {
			cat = values.CategoryMutablePlace
		}
		return fc.pushExpr(tir.Inst{Tag: tir.TagDeref, AST: node, Left: int32(ptr)}, elem, cat)

	case rir.TagAddressOf:
		v := fc.analyzeValue(operand, types.Invalid)
		cat := fc.catOf(v)
		mut := cat == values.CategoryMutablePlace
		ptrTy := fc.store.NewPointer(fc.typeOf(v), mut)
		if cat == values.CategoryTemporary {
			return fc.pushExpr(tir.Inst{Tag: tir.TagAddressOfTemporary, AST: node, Left: int32(v)}, ptrTy, values.CategoryTemporary)
		}
		if cat == values.CategoryInvalid {
			fc.reportf(diagsink.ErrAddrOperandRole, node, "expression")
			return values.ErrorValue
		}
		return fc.pushExpr(tir.Inst{Tag: tir.TagAddress, AST: node, Left: int32(v)}, ptrTy, values.CategoryTemporary)

	case rir.TagMultiAddress:
		// Passthrough (spec.md §4.2: "multivalue ⇒ multiaddress").
		return fc.analyzeValue(operand, types.Invalid)
	}

	// Arithmetic/logical unary ops carry no RIR refinement (role
	// analysis leaves TagNone for neg/not/bitnot).
	v := fc.analyzeValue(operand, types.Invalid)
	switch ast.UnaryOp(n.A) {
	case ast.UnaryNeg:
		ty := fc.typeOf(v)
		if !types.IsInt(ty) && !types.IsFloat(ty) {
			fc.reportf(diagsink.ErrOperandMismatch, node, fc.typeString(ty), fc.typeString(ty))
			return values.ErrorValue
		}
		return fc.pushExpr(tir.Inst{Tag: tir.TagSub, AST: node, Left: int32(fc.zeroOf(ty)), Right: int32(v)}, ty, values.CategoryTemporary)
	case ast.UnaryNot:
		return fc.pushExpr(tir.Inst{Tag: tir.TagEq, AST: node, Left: int32(v), Right: int32(fc.vals.NewIntConstant(types.Bool, 0))}, types.Bool, values.CategoryTemporary)
	case ast.UnaryBitNot:
		ty := fc.typeOf(v)
		return fc.pushExpr(tir.Inst{Tag: tir.TagBitXor, AST: node, Left: int32(v), Right: int32(fc.vals.NewIntConstant(ty, -1))}, ty, values.CategoryTemporary)
	}
	fc.reportf(diagsink.ErrExpectedValueType, node)
	return values.ErrorValue
}

func (fc *fnCtx) zeroOf(ty types.ID) values.ID {
	if types.IsFloat(ty) {
		return fc.vals.NewFloatConstant(ty, 0)
	}
	return fc.vals.NewIntConstant(ty, 0)
}

func (fc *fnCtx) analyzeBinaryValue(node ast.ID, n ast.Node) values.ID {
	rhsNode := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
	op := ast.BinaryOp(n.A)
	lhsNode := ast.ID(n.B)

	if op == ast.BinLogAnd || op == ast.BinLogOr {
		return fc.analyzeLogical(node, op, lhsNode, rhsNode)
	}

	lhs := fc.analyzeValue(lhsNode, types.Invalid)
	rhs := fc.analyzeValue(rhsNode, fc.typeOf(lhs))
	lt, rt := fc.typeOf(lhs), fc.typeOf(rhs)
	if lt != rt {
		rhs = fc.convert(rhs, lt, rhsNode)
		if fc.typeOf(rhs) != lt {
			return values.ErrorValue
		}
	}
	tag, ok := binTag[op]
	if !ok {
		fc.reportf(diagsink.ErrExpectedValueType, node)
		return values.ErrorValue
	}
	resultTy := lt
	if isRelational(op) {
		resultTy = types.Bool
	}

	// Constant folding isn't scoped to top-level `const` declarations:
	// a binary op over two constant operands folds here too, so
	// in-body overflow/div-by-zero are caught the same way.
	if isConstValue(fc.vals, lhs) && isConstValue(fc.vals, rhs) {
		return fc.e.foldBinaryConst(fc.vals, fc.file, node, op, lhs, rhs)
	}
	return fc.pushExpr(tir.Inst{Tag: tag, AST: node, Left: int32(lhs), Right: int32(rhs)}, resultTy, values.CategoryTemporary)
}

// analyzeLogical lowers && / || to a two-arm switch over the lhs value
// so short-circuiting and constant-folding both flow through the usual
// switch machinery (spec.md §4.3 "Logical-and/or is lowered to a
// switch with two integer branches").
func (fc *fnCtx) analyzeLogical(node ast.ID, op ast.BinaryOp, lhsNode, rhsNode ast.ID) values.ID {
	lhs := fc.convert(fc.analyzeValue(lhsNode, types.Bool), types.Bool, lhsNode)

	trueConst := fc.vals.NewIntConstant(types.Bool, 1)
	falseConst := fc.vals.NewIntConstant(types.Bool, 0)

	var trueVal, falseVal values.ID
	if op == ast.BinLogAnd {
		trueVal = fc.convert(fc.analyzeValue(rhsNode, types.Bool), types.Bool, rhsNode)
		falseVal = falseConst
	} else {
		trueVal = trueConst
		falseVal = fc.convert(fc.analyzeValue(rhsNode, types.Bool), types.Bool, rhsNode)
	}

	trueArm := fc.tirFn.Push(tir.Inst{Tag: tir.TagSwitchArm, AST: node, Left: int32(trueConst), Right: int32(trueVal)})
	falseArm := fc.tirFn.Push(tir.Inst{Tag: tir.TagSwitchArm, AST: node, Left: 0, Right: int32(falseVal)})
	start, count := fc.tirFn.PushExtra(int32(trueArm), int32(falseArm))
	return fc.pushExpr(tir.Inst{Tag: tir.TagSwitch, AST: node, Left: int32(lhs), ExtraStart: start, ExtraCount: count}, types.Bool, values.CategoryTemporary)
}

// analyzeAssignValue elaborates both plain `x = y` and compound `x op=
// y` forms. ast.go reuses ast.BinaryOp as the AssignOp payload (0 ==
// BinInvalid == plain assign), stored in the TIR instruction's Op field
// so lowering can expand it into a binary-then-store pair (spec.md
// §4.5 "Compound assignments").
func (fc *fnCtx) analyzeAssignValue(node ast.ID, n ast.Node) values.ID {
	rhsNode := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
	lhsNode := ast.ID(n.B)
	op := ast.BinaryOp(n.A)

	lhs := fc.analyzeValue(lhsNode, types.Invalid)
	lt := fc.typeOf(lhs)
	if fc.catOf(lhs) != values.CategoryMutablePlace {
		fc.reportNotMutablePlace(lhsNode)
	}
	if fc.store.IsLinear(lt) {
		fc.reportf(diagsink.ErrLinearAssignment, lhsNode, fc.typeString(lt))
	}

	rhs := fc.analyzeValue(rhsNode, lt)
	rhs = fc.convert(rhs, lt, rhsNode)

	return fc.pushExpr(tir.Inst{Tag: tir.TagAssign, AST: node, Left: int32(lhs), Right: int32(rhs), Op: int32(op)}, types.Void, values.CategoryTemporary)
}

// reportNotMutablePlace attaches NOTE_REPLACE_LET_WITH_MUT when the
// non-mutable place in question is a `let`-bound local, once per
// variable (spec.md §4.3 "Place-ness"). mutWarned is keyed per-file
// since role.LocalID is itself only unique within one file's local
// table.
func (fc *fnCtx) reportNotMutablePlace(node ast.ID) {
	entry := fc.rirOf(node)
	if entry.Tag == rir.TagLocalID {
		if b, ok := fc.locals[entry.Data]; ok && !b.mutable {
			key := role.LocalID(int32(fc.file)<<20 | entry.Data)
			d := diagsink.Diagnostic{Kind: diagsink.ErrNotMutablePlace, Loc: fc.locate(node)}
			if !fc.e.mutWarned[key] {
				name := fc.e.Locals[fc.file][entry.Data].Name
				d.Notes = append(d.Notes, diagsink.Diagnostic{Kind: diagsink.NoteReplaceLetWithMut, Loc: fc.locate(b.declNode), Args: []any{name}})
				fc.e.mutWarned[key] = true
			}
			fc.e.Sink.Report(d)
			return
		}
	}
	fc.reportf(diagsink.ErrNotMutablePlace, node)
}
