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
	"math"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// foldConstExpr elaborates a top-level `const` initializer under the
// constant-folding contract: it never emits TIR, since a global
// const has no enclosing function to hold one.
func (e *Elaborator) foldConstExpr(file symtab.FileID, tree *ast.Tree, node ast.ID, hint types.ID) values.ID {
	n := tree.Get(node)
	switch n.Tag {
	case ast.TagIntLit:
		ty := hint
		if ty == types.Invalid || !(types.IsInt(ty) || ty == types.Byte || ty == types.Char) {
			ty = types.I32
		}
		x := decodeIntLit(e.Strings.Text(strtab.ID(n.A)))
		e.checkIntRange(file, node, ty, x)
		return e.Values.NewIntConstant(ty, x)

	case ast.TagFloatLit:
		ty := hint
		if ty != types.F32 && ty != types.F64 {
			ty = types.F64
		}
		return e.Values.NewFloatConstant(ty, decodeFloatLit(e.Strings.Text(strtab.ID(n.A))))

	case ast.TagBoolLit:
		return e.Values.NewIntConstant(types.Bool, int64(n.A))

	case ast.TagCharLit:
		return e.Values.NewIntConstant(types.Char, int64(n.A))

	case ast.TagStringLit:
		ty := hint
		if ty == types.Invalid {
			ty = e.Types.NewMultiPointer(types.Byte, false)
		}
		text := values.Unescape(e.Strings.Text(strtab.ID(n.A)))
		off := e.StringTable.Intern(text)
		return e.Values.NewStringConstant(ty, off)

	case ast.TagNullLit:
		ty := hint
		if ty == types.Invalid {
			ty = e.Types.NewPointer(types.Void, false)
		}
		return e.Values.NewNullConstant(ty)

	case ast.TagUnary:
		operand := e.foldConstExpr(file, tree, ast.ID(n.B), hint)
		return e.foldUnaryConst(file, node, ast.UnaryOp(n.A), operand)

	case ast.TagBinary:
		rhsNode := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
		lhs := e.foldConstExpr(file, tree, ast.ID(n.B), hint)
		rhs := e.foldConstExpr(file, tree, rhsNode, e.Values.TypeOf(lhs))
		return e.foldBinaryConst(e.Values, file, node, ast.BinaryOp(n.A), lhs, rhs)

	case ast.TagIdent:
		entry := e.rir(file).Get(node)
		if entry.Tag == rir.TagGlobalID {
			did := symtab.DefID(entry.Data)
			e.elaborateGlobal(did)
			info := e.decls[did]
			if info != nil && info.tag == ast.TagConst {
				return info.value
			}
		}
	}
	e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrNotConstantInitializer, Loc: e.locate(file, node)})
	return values.ErrorValue
}

func (e *Elaborator) checkIntRange(file symtab.FileID, node ast.ID, ty types.ID, x int64) {
	width, ok := types.IntWidths[ty]
	if !ok {
		return
	}
	min := -(int64(1) << (width - 1))
	max := int64(1)<<(width-1) - 1
	if x < min || x > max {
		e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrConstIntOverflow, Loc: e.locate(file, node)})
	}
}

func (e *Elaborator) foldUnaryConst(file symtab.FileID, node ast.ID, op ast.UnaryOp, v values.ID) values.ID {
	ent := e.Values.Get(v)
	switch op {
	case ast.UnaryNeg:
		if ent.Variant == values.VariantFloat {
			return e.Values.NewFloatConstant(ent.Type, -ent.Float)
		}
		return e.Values.NewIntConstant(ent.Type, -ent.Int)
	case ast.UnaryNot:
		if ent.Int == 0 {
			return e.Values.NewIntConstant(types.Bool, 1)
		}
		return e.Values.NewIntConstant(types.Bool, 0)
	case ast.UnaryBitNot:
		return e.Values.NewIntConstant(ent.Type, ^ent.Int)
	}
	e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrNotConstantInitializer, Loc: e.locate(file, node)})
	return values.ErrorValue
}

// foldBinaryConst folds a binary op over two already-constant operands.
// vals is the value table the operands and result belong to: the
// global table for top-level const initializers, or a function's
// worker-local table when folding inside a body.
func (e *Elaborator) foldBinaryConst(vals *values.Table, file symtab.FileID, node ast.ID, op ast.BinaryOp, l, r values.ID) values.ID {
	le, re := vals.Get(l), vals.Get(r)
	if le.Variant == values.VariantFloat || re.Variant == values.VariantFloat {
		a, b := le.Float, re.Float
		if le.Variant != values.VariantFloat {
			a = float64(le.Int)
		}
		if re.Variant != values.VariantFloat {
			b = float64(re.Int)
		}
		switch op {
		case ast.BinAdd:
			return vals.NewFloatConstant(le.Type, a+b)
		case ast.BinSub:
			return vals.NewFloatConstant(le.Type, a-b)
		case ast.BinMul:
			return vals.NewFloatConstant(le.Type, a*b)
		case ast.BinDiv:
			return vals.NewFloatConstant(le.Type, a/b)
		}
	}
	a, b := le.Int, re.Int
	switch op {
	case ast.BinAdd:
		sum := a + b
		if addOverflows(a, b) {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrConstIntOverflow, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		e.checkIntRange(file, node, le.Type, sum)
		return vals.NewIntConstant(le.Type, sum)
	case ast.BinSub:
		diff := a - b
		if subOverflows(a, b) {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrConstIntOverflow, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		e.checkIntRange(file, node, le.Type, diff)
		return vals.NewIntConstant(le.Type, diff)
	case ast.BinMul:
		prod := a * b
		if mulOverflows(a, b) {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrConstIntOverflow, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		e.checkIntRange(file, node, le.Type, prod)
		return vals.NewIntConstant(le.Type, prod)
	case ast.BinDiv:
		if b == 0 || (a == math.MinInt64 && b == -1) {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrConstIntOverflow, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		return vals.NewIntConstant(le.Type, a/b)
	case ast.BinRem:
		if b == 0 {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrConstIntOverflow, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		return vals.NewIntConstant(le.Type, a%b)
	case ast.BinBitAnd:
		return vals.NewIntConstant(le.Type, a&b)
	case ast.BinBitOr:
		return vals.NewIntConstant(le.Type, a|b)
	case ast.BinBitXor:
		return vals.NewIntConstant(le.Type, a^b)
	case ast.BinShl:
		if b < 0 {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrNegativeShift, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		return vals.NewIntConstant(le.Type, a<<uint(b))
	case ast.BinShr:
		if b < 0 {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrNegativeShift, Loc: e.locate(file, node)})
			return values.ErrorValue
		}
		return vals.NewIntConstant(le.Type, a>>uint(b))
	case ast.BinEq:
		return boolConst(vals, a == b)
	case ast.BinNe:
		return boolConst(vals, a != b)
	case ast.BinLt:
		return boolConst(vals, a < b)
	case ast.BinLe:
		return boolConst(vals, a <= b)
	case ast.BinGt:
		return boolConst(vals, a > b)
	case ast.BinGe:
		return boolConst(vals, a >= b)
	case ast.BinLogAnd:
		return boolConst(vals, a != 0 && b != 0)
	case ast.BinLogOr:
		return boolConst(vals, a != 0 || b != 0)
	}
	e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrNotConstantInitializer, Loc: e.locate(file, node)})
	return values.ErrorValue
}

// isConstValue reports whether v is an integer or float constant,
// i.e. a value foldBinaryConst/foldUnaryConst can operate on directly.
func isConstValue(vals *values.Table, v values.ID) bool {
	variant := vals.Get(v).Variant
	return variant == values.VariantInt || variant == values.VariantFloat
}

// addOverflows/subOverflows/mulOverflows detect signed int64 wraparound,
// caught at the int64 level in addition to the narrower per-type-width
// check checkIntRange does.
func addOverflows(a, b int64) bool {
	sum := a + b
	return ((a ^ sum) & (b ^ sum)) < 0
}

func subOverflows(a, b int64) bool {
	diff := a - b
	return ((a ^ b) & (a ^ diff)) < 0
}

func mulOverflows(a, b int64) bool {
	if a == 0 || b == 0 {
		return false
	}
	p := a * b
	return p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64)
}

func boolConst(vals *values.Table, b bool) values.ID {
	if b {
		return vals.NewIntConstant(types.Bool, 1)
	}
	return vals.NewIntConstant(types.Bool, 0)
}
