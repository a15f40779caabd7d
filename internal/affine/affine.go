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
// Package affine implements stage 4, the substructural/affine checker
// (spec.md §4.4): per local of linear type, it tracks whether the local
// is still live, already consumed, or currently borrowed, and rejects a
// use that the local's current state forbids.
//
// The checker walks the same value graph stage 3 built rather than
// re-deriving it: a TIR instruction's operands are ValueIds, and a
// ValueId either names a local directly (VariantImmutableVar /
// VariantMutableVar, a leaf) or names a temporary whose producing
// instruction (values.Entry.TirInst) is walked recursively. Statement
// sequencing comes from Inst.Prev chains (see internal/tir's doc
// comment); nested bodies (if/loop/switch) are walked the same way,
// recursively.
package affine

import (
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// state is one local's substructural status.
type state uint8

const (
	notConsumed state = iota
	consumed
	borrowed
	borrowedMut
)

// category is the expected use classification spec.md §4.4 propagates
// from the enclosing instruction down to an operand.
type category uint8

const (
	catRValue category = iota
	catLValue
	catLValueMut
)

// Check walks fn's body and reports every substructural violation to
// sink. locate resolves a TIR instruction's AST node back to a source
// position for diagnostics.
//
// ErrLinearAssignment is not re-checked here: internal/elaborate's
// analyzeAssignValue already rejects a linear-typed assignment target
// unconditionally at stage 3 time, and that rule doesn't depend on
// control flow, so duplicating it in a path-sensitive pass would only
// risk a second diagnostic for the same line.
func Check(sink *diagsink.Sink, store *types.Store, vals *values.Table, fn *tir.Function, locate func(ast.ID) source.Location) {
	c := &checker{
		sink:   sink,
		store:  store,
		vals:   vals,
		fn:     fn,
		locate: locate,
		state:  make([]state, fn.LocalCount),
	}
	c.visitBlock(fn.Entry)
}

type checker struct {
	sink   *diagsink.Sink
	store  *types.Store
	vals   *values.Table
	fn     *tir.Function
	locate func(ast.ID) source.Location

	state []state

	// loopThresholds[i] is the local count as of the i-th enclosing
	// loop's entry; any local with an index below the top of this stack
	// predates the innermost loop and so is live across iterations.
	loopThresholds []int32

	// borrowedThisStmt records locals this statement put into borrowed
	// or borrowedMut state, so visitStmt can release them once the
	// statement finishes (the language has no explicit borrow-scope
	// syntax, so a borrow is conservatively scoped to the statement that
	// created it).
	borrowedThisStmt []int32

	curNode ast.ID
}

func (c *checker) growTo(n int32) {
	for int32(len(c.state)) < n {
		c.state = append(c.state, notConsumed)
	}
}

func (c *checker) name(idx int32) string {
	if int(idx) < len(c.fn.LocalNames) {
		return c.fn.LocalNames[idx]
	}
	return "<local>"
}

func (c *checker) report(kind diagsink.Kind, idx int32) {
	c.sink.Report(diagsink.Diagnostic{
		Kind: kind,
		Loc:  c.locate(c.curNode),
		Args: []any{c.name(idx)},
	})
}

// visitBlock walks a Prev-chained statement sequence in forward order.
func (c *checker) visitBlock(last tir.ID) {
	for _, id := range c.fn.Statements(last) {
		c.visitStmt(id)
	}
}

func (c *checker) visitStmt(id tir.ID) {
	inst := c.fn.Get(id)
	c.curNode = inst.AST
	c.borrowedThisStmt = c.borrowedThisStmt[:0]
	c.dispatchStmt(id, inst)
	c.releaseStatementBorrows()
}

func (c *checker) releaseStatementBorrows() {
	for _, idx := range c.borrowedThisStmt {
		if c.state[idx] == borrowed || c.state[idx] == borrowedMut {
			c.state[idx] = notConsumed
		}
	}
	c.borrowedThisStmt = c.borrowedThisStmt[:0]
}

func (c *checker) dispatchStmt(id tir.ID, inst tir.Inst) {
	switch inst.Tag {
	case tir.TagLet, tir.TagMut:
		c.visitValue(values.ID(inst.Left), catRValue)
		c.growTo(inst.Right + 1)
		c.state[inst.Right] = notConsumed

	case tir.TagIf:
		c.visitIf(inst)

	case tir.TagLoop:
		extra := c.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		condInst, bodyLast, stepLast := tir.ID(extra[0]), tir.ID(extra[1]), tir.ID(extra[2])
		c.loopThresholds = append(c.loopThresholds, int32(len(c.state)))
		if condInst != tir.NoInst {
			c.curNode = c.fn.Get(condInst).AST
			c.visitInst(condInst, catRValue)
		}
		c.visitBlock(bodyLast)
		if stepLast != tir.NoInst {
			c.visitBlock(stepLast)
		}
		c.loopThresholds = c.loopThresholds[:len(c.loopThresholds)-1]

	case tir.TagSwitch:
		c.visitSwitch(inst)

	case tir.TagReturn:
		if inst.Left != 0 {
			c.visitValue(values.ID(inst.Left), catRValue)
		}

	case tir.TagBreak, tir.TagContinue:
		// no operands

	default:
		c.visitInst(id, catRValue)
	}
}

func (c *checker) visitIf(inst tir.Inst) {
	c.visitValue(values.ID(inst.Left), catRValue)
	extra := c.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	thenLast, elseLast := tir.ID(extra[0]), tir.ID(extra[1])
	before := c.snapshot()
	c.visitBlock(thenLast)
	afterThen := c.snapshot()
	c.restore(before)
	if elseLast != tir.NoInst {
		c.visitBlock(elseLast)
	}
	afterElse := c.snapshot()
	c.merge(afterThen, afterElse)
}

func (c *checker) visitSwitch(inst tir.Inst) {
	if inst.Left != 0 {
		c.visitValue(values.ID(inst.Left), catRValue)
	}
	arms := c.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	before := c.snapshot()
	var merged []state
	for _, a := range arms {
		c.restore(before)
		arm := c.fn.Get(tir.ID(a))
		if arm.Left != 0 {
			c.visitValue(values.ID(arm.Left), catRValue)
		}
		if arm.Op != 0 {
			c.visitBlock(tir.ID(arm.Op))
		} else if arm.Right != 0 {
			c.visitValue(values.ID(arm.Right), catRValue)
		}
		after := c.snapshot()
		if merged == nil {
			merged = after
		} else {
			merged = mergeTwo(merged, after)
		}
	}
	if merged != nil {
		c.restore(merged)
	} else {
		c.restore(before)
	}
}

// visitInst walks a statement-chained instruction directly (no wrapping
// temporary ValueId is available, since it's the chain element itself).
func (c *checker) visitInst(id tir.ID, _ category) {
	inst := c.fn.Get(id)
	c.visitProducer(inst, catRValue)
}

// visitValue resolves v to a leaf local use or a temporary's producing
// instruction and dispatches on it.
func (c *checker) visitValue(v values.ID, cat category) {
	if v == values.ErrorValue {
		return
	}
	e := c.vals.Get(v)
	switch e.Variant {
	case values.VariantImmutableVar, values.VariantMutableVar:
		c.useLocal(e.LocalIndex, cat, e.Type)
	case values.VariantTemporary:
		c.visitProducer(c.fn.Get(tir.ID(e.TirInst)), cat)
	}
}

func hasSecondOperand(tag tir.Tag) bool {
	switch tag {
	case tir.TagAdd, tir.TagSub, tir.TagMul, tir.TagDiv, tir.TagRem,
		tir.TagBitAnd, tir.TagBitOr, tir.TagBitXor, tir.TagShl, tir.TagShr,
		tir.TagEq, tir.TagNe, tir.TagLt, tir.TagLe, tir.TagGt, tir.TagGe,
		tir.TagArrayToSlice:
		return true
	}
	return false
}

// visitProducer visits a temporary's producing instruction's operands,
// or an assignment/field/index/call/address node's specific operand
// layout.
func (c *checker) visitProducer(inst tir.Inst, cat category) {
	switch inst.Tag {
	case tir.TagAddress:
		operandCat := catLValue
		if c.vals.Get(values.ID(inst.Left)).Category == values.CategoryMutablePlace {
			operandCat = catLValueMut
		}
		c.visitValue(values.ID(inst.Left), operandCat)

	case tir.TagAddressOfTemporary, tir.TagDeref:
		c.visitValue(values.ID(inst.Left), catRValue)

	case tir.TagField:
		// A struct's resulting field type isn't recoverable from the
		// instruction alone; resolving the base's own linearity is
		// enough to decide whether reading through it moves it, since
		// StructTypeParamCount aside, a non-linear struct never holds a
		// field the checker needs to track as consuming the base.
		baseLinear := c.store.IsLinear(c.vals.TypeOf(values.ID(inst.Left)))
		if cat == catRValue {
			if baseLinear {
				c.visitValue(values.ID(inst.Left), catRValue)
			}
			return
		}
		c.visitValue(values.ID(inst.Left), cat)

	case tir.TagIndex:
		if cat == catRValue {
			if c.store.IsLinear(c.vals.TypeOf(values.ID(inst.Left))) {
				c.visitValue(values.ID(inst.Left), catRValue)
			}
		} else {
			c.visitValue(values.ID(inst.Left), cat)
		}
		c.visitValue(values.ID(inst.Right), catRValue)

	case tir.TagSlice:
		c.visitValue(values.ID(inst.Left), catRValue)
		for _, x := range c.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount) {
			if x != 0 {
				c.visitValue(values.ID(x), catRValue)
			}
		}

	case tir.TagCall:
		c.visitValue(values.ID(inst.Left), catRValue)
		for _, a := range c.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount) {
			c.visitValue(values.ID(a), catRValue)
		}

	case tir.TagStructLit, tir.TagArrayLit:
		for _, a := range c.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount) {
			c.visitValue(values.ID(a), catRValue)
		}

	case tir.TagAssign:
		c.visitAssign(inst)

	case tir.TagSwitch:
		c.visitSwitch(inst)

	case tir.TagIf:
		c.visitIf(inst)

	default:
		if inst.Left != 0 {
			c.visitValue(values.ID(inst.Left), catRValue)
		}
		if inst.Right != 0 && hasSecondOperand(inst.Tag) {
			c.visitValue(values.ID(inst.Right), catRValue)
		}
	}
}

func (c *checker) visitAssign(inst tir.Inst) {
	if inst.Op != 0 {
		c.visitValue(values.ID(inst.Left), catRValue)
	}
	c.visitAssignTarget(values.ID(inst.Left))
	c.visitValue(values.ID(inst.Right), catRValue)
}

// visitAssignTarget writes through a place: a direct local gets rebound
// to notConsumed (the old value, if any, was replaced, not read), while
// a place derived from a local (a.f = x, a[i] = x) only checks that the
// base isn't already moved or exclusively borrowed elsewhere, since the
// base binding itself doesn't change.
func (c *checker) visitAssignTarget(v values.ID) {
	e := c.vals.Get(v)
	switch e.Variant {
	case values.VariantImmutableVar, values.VariantMutableVar:
		c.assignLocal(e.LocalIndex)
	case values.VariantTemporary:
		inst := c.fn.Get(tir.ID(e.TirInst))
		switch inst.Tag {
		case tir.TagField, tir.TagIndex:
			c.visitValue(values.ID(inst.Left), catLValueMut)
		case tir.TagDeref:
			c.visitValue(values.ID(inst.Left), catRValue)
		}
	}
}

func (c *checker) useLocal(idx int32, cat category, declType types.ID) {
	c.growTo(idx + 1)
	switch cat {
	case catRValue:
		if !c.store.IsLinear(declType) {
			return
		}
		switch c.state[idx] {
		case notConsumed:
			if c.consumedAcrossLoop(idx) {
				c.report(diagsink.ErrConsumedInLoop, idx)
			}
			c.state[idx] = consumed
		case consumed:
			c.report(diagsink.ErrConsumedValueUsed, idx)
		case borrowed, borrowedMut:
			c.report(diagsink.ErrMoveBorrowed, idx)
		}

	case catLValue:
		switch c.state[idx] {
		case notConsumed:
			c.state[idx] = borrowed
			c.borrowedThisStmt = append(c.borrowedThisStmt, idx)
		case consumed:
			c.report(diagsink.ErrConsumedValueUsed, idx)
		case borrowed:
			// shared borrows may coexist
		case borrowedMut:
			c.report(diagsink.ErrBorrowedMutableShared, idx)
		}

	case catLValueMut:
		switch c.state[idx] {
		case notConsumed:
			c.state[idx] = borrowedMut
			c.borrowedThisStmt = append(c.borrowedThisStmt, idx)
		case consumed:
			c.report(diagsink.ErrConsumedValueUsed, idx)
		case borrowed:
			c.report(diagsink.ErrBorrowedMutableShared, idx)
		case borrowedMut:
			c.report(diagsink.ErrMultipleMutableBorrows, idx)
		}
	}
}

func (c *checker) assignLocal(idx int32) {
	c.growTo(idx + 1)
	switch c.state[idx] {
	case notConsumed, consumed:
		c.state[idx] = notConsumed
	case borrowed:
		c.report(diagsink.ErrBorrowedMutableShared, idx)
	case borrowedMut:
		c.report(diagsink.ErrMultipleMutableBorrows, idx)
	}
}

// consumedAcrossLoop reports whether idx predates the innermost
// enclosing loop, meaning a consuming use of it inside the loop body
// would run again on the next iteration.
func (c *checker) consumedAcrossLoop(idx int32) bool {
	if len(c.loopThresholds) == 0 {
		return false
	}
	return idx < c.loopThresholds[len(c.loopThresholds)-1]
}

func (c *checker) snapshot() []state {
	s := make([]state, len(c.state))
	copy(s, c.state)
	return s
}

func (c *checker) restore(s []state) {
	c.growTo(int32(len(s)))
	copy(c.state, s)
	c.state = c.state[:len(s)]
}

// merge reconciles two branch-end snapshots into the post-branch state:
// a local leaves the branch notConsumed only if every arm left it
// notConsumed; any disagreement (one arm consumed or borrowed it, the
// other didn't) is conservatively promoted to consumed, since a later
// rvalue use can no longer assume the value is intact on every path.
func (c *checker) merge(a, b []state) {
	c.restore(mergeTwo(a, b))
}

func mergeTwo(a, b []state) []state {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]state, n)
	for i := 0; i < n; i++ {
		var sa, sb state
		if i < len(a) {
			sa = a[i]
		}
		if i < len(b) {
			sb = b[i]
		}
		if sa == sb {
			out[i] = sa
		} else {
			out[i] = consumed
		}
	}
	return out
}
