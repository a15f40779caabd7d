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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

func TestFoldBinaryConstAddsIntegers(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)
	l := fc.vals.NewIntConstant(types.I64, 2)
	r := fc.vals.NewIntConstant(types.I64, 3)

	result := fc.e.foldBinaryConst(fc.vals, fc.file, node, ast.BinAdd, l, r)

	assert.False(t, fc.e.Sink.HasErrors())
	assert.Equal(t, int64(5), fc.vals.Get(result).Int)
}

func TestFoldBinaryConstDivByZeroOverflows(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)
	l := fc.vals.NewIntConstant(types.I64, 5)
	r := fc.vals.NewIntConstant(types.I64, 0)

	result := fc.e.foldBinaryConst(fc.vals, fc.file, node, ast.BinDiv, l, r)

	assert.Equal(t, values.ErrorValue, result)
	assertHasKind(t, fc.e.Sink, diagsink.ErrConstIntOverflow)
}

func TestFoldBinaryConstRemByZeroOverflows(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)
	l := fc.vals.NewIntConstant(types.I64, 5)
	r := fc.vals.NewIntConstant(types.I64, 0)

	result := fc.e.foldBinaryConst(fc.vals, fc.file, node, ast.BinRem, l, r)

	assert.Equal(t, values.ErrorValue, result)
	assertHasKind(t, fc.e.Sink, diagsink.ErrConstIntOverflow)
}

func TestFoldBinaryConstIntMinDividedByNegOneOverflows(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)
	l := fc.vals.NewIntConstant(types.I64, math.MinInt64)
	r := fc.vals.NewIntConstant(types.I64, -1)

	result := fc.e.foldBinaryConst(fc.vals, fc.file, node, ast.BinDiv, l, r)

	assert.Equal(t, values.ErrorValue, result, "INT_MIN / -1 must be treated as overflow, not silently wrapped")
	assertHasKind(t, fc.e.Sink, diagsink.ErrConstIntOverflow)
}

func TestFoldBinaryConstDivByNonZeroWorks(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)
	l := fc.vals.NewIntConstant(types.I64, 10)
	r := fc.vals.NewIntConstant(types.I64, 3)

	result := fc.e.foldBinaryConst(fc.vals, fc.file, node, ast.BinDiv, l, r)

	assert.False(t, fc.e.Sink.HasErrors())
	assert.Equal(t, int64(3), fc.vals.Get(result).Int)
}

func TestFoldBinaryConstAddOverflowReportsConstIntOverflow(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)
	l := fc.vals.NewIntConstant(types.I64, math.MaxInt64)
	r := fc.vals.NewIntConstant(types.I64, 1)

	result := fc.e.foldBinaryConst(fc.vals, fc.file, node, ast.BinAdd, l, r)

	assert.Equal(t, values.ErrorValue, result)
	assertHasKind(t, fc.e.Sink, diagsink.ErrConstIntOverflow)
}

func assertHasKind(t *testing.T, sink *diagsink.Sink, kind diagsink.Kind) {
	t.Helper()
	for _, d := range sink.All() {
		if d.Kind == kind {
			return
		}
	}
	t.Fatalf("expected a diagnostic of kind %v, got %v", kind, sink.All())
}

// TestAnalyzeBinaryValueFoldsConstantOperands exercises the in-body path:
// constant folding isn't scoped to top-level `const` declarations, so a
// binary op over two literal operands must fold to a constant value
// rather than emit a TIR instruction.
func TestAnalyzeBinaryValueFoldsConstantOperands(t *testing.T) {
	fc := newTestFnCtx(t)

	lhsText := fc.e.Strings.Intern("2147483647")
	rhsText := fc.e.Strings.Intern("1")
	lhsNode := fc.tree.Push(ast.Node{Tag: ast.TagIntLit, A: int32(lhsText)})
	rhsNode := fc.tree.Push(ast.Node{Tag: ast.TagIntLit, A: int32(rhsText)})
	start, count := fc.tree.PushExtra(rhsNode)
	binNode := fc.tree.Push(ast.Node{Tag: ast.TagBinary, A: int32(ast.BinAdd), B: int32(lhsNode), ExtraStart: start, ExtraCount: count})

	before := len(fc.tirFn.Insts)
	result := fc.analyzeBinaryValue(binNode, fc.tree.Get(binNode))

	assert.Equal(t, len(fc.tirFn.Insts), before, "folding a constant binary expression must not emit a TIR instruction")
	assert.Equal(t, int64(2147483648), fc.vals.Get(result).Int)
}

func TestAnalyzeBinaryValueOverflowInBodyReportsDiagnostic(t *testing.T) {
	fc := newTestFnCtx(t)

	lhsText := fc.e.Strings.Intern("9223372036854775807")
	rhsText := fc.e.Strings.Intern("1")
	lhsNode := fc.tree.Push(ast.Node{Tag: ast.TagIntLit, A: int32(lhsText)})
	rhsNode := fc.tree.Push(ast.Node{Tag: ast.TagIntLit, A: int32(rhsText)})
	start, count := fc.tree.PushExtra(rhsNode)
	binNode := fc.tree.Push(ast.Node{Tag: ast.TagBinary, A: int32(ast.BinAdd), B: int32(lhsNode), ExtraStart: start, ExtraCount: count})

	fc.analyzeBinaryValue(binNode, fc.tree.Get(binNode))

	assertHasKind(t, fc.e.Sink, diagsink.ErrConstIntOverflow)
}

func TestAnalyzeBinaryValueNonConstantOperandStillEmitsTIR(t *testing.T) {
	fc := newTestFnCtx(t)

	param := fc.vals.NewVariable(types.I64, false, 0)
	rhsText := fc.e.Strings.Intern("1")
	lhsNode := fc.tree.Push(ast.Node{Tag: ast.TagIdent})
	fc.locals[0] = &localBinding{ty: types.I64, value: param}
	fc.e.RIR[0].Set(lhsNode, rir.TagLocalID, 0)
	rhsNode := fc.tree.Push(ast.Node{Tag: ast.TagIntLit, A: int32(rhsText)})
	start, count := fc.tree.PushExtra(rhsNode)
	binNode := fc.tree.Push(ast.Node{Tag: ast.TagBinary, A: int32(ast.BinAdd), B: int32(lhsNode), ExtraStart: start, ExtraCount: count})

	result := fc.analyzeBinaryValue(binNode, fc.tree.Get(binNode))

	assert.NotEqual(t, values.ErrorValue, result)
	inst := fc.tirFn.Get(fc.producerInst(result))
	assert.Equal(t, tir.TagAdd, inst.Tag)
}
