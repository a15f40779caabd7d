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
// Package lower implements stage 5, TIR-to-MIR lowering (spec.md
// §4.5): it turns one function's tree-shaped TIR value graph plus its
// Prev-chained statement sequence into a flat, cross-function MIR
// instruction stream with explicit basic blocks.
//
// A local's ALLOC instruction id doubles as its "place": reading the
// local is simply referencing that id as an operand (the backend is
// expected to treat an ALLOC id used where a value is wanted as a load
// from that slot), writing it is an ASSIGN whose A operand is the same
// id. Struct and array literals are spilled to anonymous ALLOC slots
// the same way, so every aggregate value in MIR has an address.
package lower

import (
	"math"

	"github.com/Laia-Ortiga/jellyc/internal/mir"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

var tirToMIRCast = map[tir.Tag]mir.Tag{
	tir.TagItof:    mir.TagItof,
	tir.TagFtoi:    mir.TagFtoi,
	tir.TagSext:    mir.TagSext,
	tir.TagZext:    mir.TagZext,
	tir.TagItrunc:  mir.TagItrunc,
	tir.TagFtrunc:  mir.TagFtrunc,
	tir.TagFext:    mir.TagFext,
	tir.TagPtrCast: mir.TagPtrCast,
}

var tirToMIRBinary = map[tir.Tag]mir.Tag{
	tir.TagAdd:    mir.TagAdd,
	tir.TagSub:    mir.TagSub,
	tir.TagMul:    mir.TagMul,
	tir.TagDiv:    mir.TagDiv,
	tir.TagRem:    mir.TagRem,
	tir.TagBitAnd: mir.TagBitAnd,
	tir.TagBitOr:  mir.TagBitOr,
	tir.TagBitXor: mir.TagBitXor,
	tir.TagShl:    mir.TagShl,
	tir.TagShr:    mir.TagShr,
	tir.TagEq:     mir.TagEq,
	tir.TagNe:     mir.TagNe,
	tir.TagLt:     mir.TagLt,
	tir.TagLe:     mir.TagLe,
	tir.TagGt:     mir.TagGt,
	tir.TagGe:     mir.TagGe,
}

// Function lowers one elaborated function into prog, starting a new
// mir.Function entry. paramTypes/retType come from the function's
// FUNCTION type (types.Entry.Params/Ret); store and vals are the
// function's own thread-local tables (FunctionResult.Locals/Vals).
// instValue is FunctionResult.InstValue, consulted when a branch body's
// trailing statement needs to be recognized as the branch's yielded
// value (an if/switch used in expression position) rather than a bare
// side-effecting statement.
func Function(prog *mir.Program, target types.Target, store *types.Store, vals *values.Table, fn *tir.Function, instValue map[tir.ID]values.ID, name string, paramTypes []types.ID, retType types.ID) *mir.Function {
	mfn := prog.StartFunction(name, paramTypes, retType)

	l := &lowerer{
		prog:      prog,
		store:     store,
		vals:      vals,
		fn:        fn,
		target:    target,
		instValue: instValue,
		cache:     make(map[values.ID]mir.ID),
	}

	l.newBlock()

	localTypes := make([]types.ID, fn.LocalCount)
	for i, pt := range paramTypes {
		if int32(i) < fn.LocalCount {
			localTypes[i] = pt
		}
	}
	for id := 1; id < len(fn.Insts); id++ {
		inst := fn.Insts[id]
		if inst.Tag == tir.TagLet || inst.Tag == tir.TagMut {
			localTypes[inst.Right] = vals.TypeOf(values.ID(inst.Left))
		}
	}
	l.allocs = make([]mir.ID, fn.LocalCount)
	for i := int32(0); i < fn.LocalCount; i++ {
		l.allocs[i] = l.alloc(localTypes[i])
	}
	for i := range paramTypes {
		p := prog.Push(mir.Inst{Tag: mir.TagParam, Type: paramTypes[i], A: int32(i)})
		prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(l.allocs[i]), B: int32(p)})
	}

	l.visitBlock(fn.Entry)
	if !l.blockTerminated() {
		// Stage 3 rejects a non-void function whose body can fall off the
		// end without a return, so reaching here means retType is void.
		prog.Push(mir.Inst{Tag: mir.TagRetVoid})
	}

	mfn.Blocks = l.blocks
	mfn.LocalTypes = localTypes
	prog.FinishFunction(mfn)
	return mfn
}

type loopTargets struct {
	continueTarget int32
	breakTarget    int32
}

type lowerer struct {
	prog   *mir.Program
	store  *types.Store
	vals   *values.Table
	fn     *tir.Function
	target types.Target

	instValue map[tir.ID]values.ID
	allocs    []mir.ID
	cache     map[values.ID]mir.ID
	blocks    []mir.ID
	loops     []loopTargets
}

func (l *lowerer) alloc(ty types.ID) mir.ID {
	size := l.store.SizeOf(ty, l.target)
	return l.prog.Push(mir.Inst{Tag: mir.TagAlloc, Type: ty, A: int32(size)})
}

// newBlock records the current stream position as the start of a fresh
// block. Calls must happen in the same order their block indices are
// referenced by branch instructions (emission is single-threaded and
// strictly sequential).
func (l *lowerer) newBlock() int32 {
	idx := int32(len(l.blocks))
	l.blocks = append(l.blocks, mir.ID(len(l.prog.Insts)))
	return idx
}

func (l *lowerer) blockTerminated() bool {
	n := len(l.prog.Insts)
	if n == 0 {
		return false
	}
	return mir.IsTerminator(l.prog.Insts[n-1].Tag)
}

func (l *lowerer) br(target int32) {
	if l.blockTerminated() {
		return
	}
	l.prog.Push(mir.Inst{Tag: mir.TagBr, A: target})
}

// visitBlock lowers a Prev-chained statement sequence in order.
func (l *lowerer) visitBlock(last tir.ID) {
	for _, id := range l.fn.Statements(last) {
		if l.blockTerminated() {
			continue
		}
		l.lowerStmt(id)
	}
}

func (l *lowerer) lowerStmt(id tir.ID) {
	inst := l.fn.Get(id)
	switch inst.Tag {
	case tir.TagLet, tir.TagMut:
		v := l.lowerValue(values.ID(inst.Left))
		l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(l.allocs[inst.Right]), B: int32(v)})

	case tir.TagIf:
		l.lowerIf(inst, nil)

	case tir.TagLoop:
		l.lowerLoop(inst)

	case tir.TagSwitch:
		l.lowerSwitchStmt(inst)

	case tir.TagReturn:
		if inst.Left != 0 {
			v := l.lowerValue(values.ID(inst.Left))
			l.prog.Push(mir.Inst{Tag: mir.TagRet, A: int32(v)})
		} else {
			l.prog.Push(mir.Inst{Tag: mir.TagRetVoid})
		}

	case tir.TagBreak:
		if n := len(l.loops); n > 0 {
			l.br(l.loops[n-1].breakTarget)
		}

	case tir.TagContinue:
		if n := len(l.loops); n > 0 {
			l.br(l.loops[n-1].continueTarget)
		}

	default:
		l.lowerInst(inst)
	}
}

// lowerIf lowers a two-way branch used as a statement: neither arm
// produces a value the rest of the function can see.
func (l *lowerer) lowerIf(inst tir.Inst, _ *mir.ID) {
	cond := l.lowerValue(values.ID(inst.Left))
	extra := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	thenLast, elseLast := tir.ID(extra[0]), tir.ID(extra[1])

	thenIdx := int32(len(l.blocks))
	elseIdx := thenIdx + 1
	mergeIdx := elseIdx + 1
	if elseLast == tir.NoInst {
		mergeIdx = elseIdx
	}
	l.prog.Push(mir.Inst{Tag: mir.TagBrIf, A: int32(cond), B: thenIdx, C: elseIdx})

	l.newBlock()
	l.visitBlock(thenLast)
	l.br(mergeIdx)

	if elseLast != tir.NoInst {
		l.newBlock()
		l.visitBlock(elseLast)
		l.br(mergeIdx)
	}

	l.newBlock()
}

func (l *lowerer) lowerLoop(inst tir.Inst) {
	extra := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	condInst, bodyLast, stepLast := tir.ID(extra[0]), tir.ID(extra[1]), tir.ID(extra[2])

	condIdx := int32(len(l.blocks))
	l.br(condIdx)
	l.newBlock()

	var cond mir.ID
	if condInst != tir.NoInst {
		cond = l.lowerTIRInst(l.fn.Get(condInst))
	} else {
		cond = l.prog.Push(mir.Inst{Tag: mir.TagInt, Type: types.Bool, A: 1})
	}

	bodyIdx := int32(len(l.blocks))
	stepIdx := condIdx
	exitIdx := bodyIdx + 1
	if stepLast != tir.NoInst {
		stepIdx = bodyIdx + 1
		exitIdx = stepIdx + 1
	}
	l.prog.Push(mir.Inst{Tag: mir.TagBrIf, A: int32(cond), B: bodyIdx, C: exitIdx})

	l.loops = append(l.loops, loopTargets{continueTarget: stepIdx, breakTarget: exitIdx})
	l.newBlock()
	l.visitBlock(bodyLast)
	l.br(stepIdx)

	if stepLast != tir.NoInst {
		l.newBlock()
		l.visitBlock(stepLast)
		l.br(condIdx)
	}
	l.loops = l.loops[:len(l.loops)-1]

	l.newBlock()
}

func (l *lowerer) lowerSwitchStmt(inst tir.Inst) {
	l.lowerSwitch(inst, nil)
}

// lowerSwitch lowers an N-way dispatch: each non-else arm compares the
// discriminant against its constant pattern, falling through to the
// next arm's test on mismatch; the else arm (or, for an exhaustive enum
// switch with none written, the last arm) is the final fallthrough
// target.
func (l *lowerer) lowerSwitch(inst tir.Inst, dest *mir.ID) {
	var disc mir.ID
	if inst.Left != 0 {
		disc = l.lowerValue(values.ID(inst.Left))
	}
	arms := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	mergeIdx := int32(-1) // resolved once every arm has been measured

	armBlocks := make([]int32, 0, len(arms))
	testBlocks := make([]int32, 0, len(arms))
	for range arms {
		testBlocks = append(testBlocks, 0)
		armBlocks = append(armBlocks, 0)
	}

	// Reserve a test block per non-else arm and a body block per arm, in
	// arm order, then a trailing merge block.
	next := int32(len(l.blocks))
	for i, a := range arms {
		arm := l.fn.Get(tir.ID(a))
		if arm.Left != 0 {
			testBlocks[i] = next
			next++
		}
		armBlocks[i] = next
		next++
	}
	mergeIdx = next

	l.br(firstNonZero(testBlocks, armBlocks))
	for i, a := range arms {
		arm := l.fn.Get(tir.ID(a))
		if arm.Left != 0 {
			l.newBlock()
			pat := l.lowerValue(values.ID(arm.Left))
			eq := l.prog.Push(mir.Inst{Tag: mir.TagEq, A: int32(disc), B: int32(pat)})
			falseTarget := mergeIdx
			if i+1 < len(arms) {
				falseTarget = firstNonZero(testBlocks[i+1:], armBlocks[i+1:])
			}
			l.prog.Push(mir.Inst{Tag: mir.TagBrIf, A: int32(eq), B: armBlocks[i], C: falseTarget})
		}

		l.newBlock()
		if arm.Op != 0 {
			if dest != nil {
				if v := l.lowerBlockValue(tir.ID(arm.Op)); v != 0 {
					l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(*dest), B: int32(v)})
				}
			} else {
				l.visitBlock(tir.ID(arm.Op))
			}
		} else if arm.Right != 0 && dest != nil {
			v := l.lowerValue(values.ID(arm.Right))
			l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(*dest), B: int32(v)})
		} else if arm.Right != 0 {
			l.lowerValue(values.ID(arm.Right))
		}
		l.br(mergeIdx)
	}

	l.newBlock()
}

func firstNonZero(primary, fallback []int32) int32 {
	if len(primary) > 0 && primary[0] != 0 {
		return primary[0]
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return 0
}

// lowerValue resolves v to its MIR id, memoizing temporaries so a value
// referenced more than once is computed only the first time.
func (l *lowerer) lowerValue(v values.ID) mir.ID {
	if v == values.ErrorValue {
		return l.prog.Push(mir.Inst{Tag: mir.TagNull})
	}
	if id, ok := l.cache[v]; ok {
		return id
	}
	e := l.vals.Get(v)
	var id mir.ID
	switch e.Variant {
	case values.VariantImmutableVar, values.VariantMutableVar:
		id = l.allocs[e.LocalIndex]
	case values.VariantInt:
		id = l.prog.Push(mir.Inst{Tag: mir.TagInt, Type: e.Type, A: int32(e.Int), B: int32(e.Int >> 32)})
	case values.VariantFloat:
		bits := int64(float64BitsOf(e.Float))
		id = l.prog.Push(mir.Inst{Tag: mir.TagFloat, Type: e.Type, A: int32(bits), B: int32(bits >> 32)})
	case values.VariantNull:
		id = l.prog.Push(mir.Inst{Tag: mir.TagNull, Type: e.Type})
	case values.VariantString:
		id = l.prog.Push(mir.Inst{Tag: mir.TagString, Type: e.Type, A: e.StringOffset})
	case values.VariantFunction, values.VariantExternFunction, values.VariantExternVar:
		id = l.prog.Push(mir.Inst{Tag: mir.TagTirValue, Type: e.Type, A: int32(e.Name)})
	case values.VariantTemporary:
		producer := l.fn.Get(tir.ID(e.TirInst))
		switch producer.Tag {
		case tir.TagIf:
			id = l.lowerIfValue(producer, e.Type)
		case tir.TagSwitch:
			id = l.lowerSwitchValue(producer, e.Type)
		default:
			id = l.lowerTIRInst(producer)
		}
	}
	l.cache[v] = id
	return id
}

func float64BitsOf(f float64) uint64 {
	return math.Float64bits(f)
}

func (l *lowerer) lowerInst(inst tir.Inst) mir.ID {
	return l.lowerTIRInst(inst)
}

// lowerTIRInst lowers one TIR instruction's operation (not its identity
// as a value): arithmetic/cast/call/aggregate/access nodes map onto a
// single MIR op or a short fixed sequence.
func (l *lowerer) lowerTIRInst(inst tir.Inst) mir.ID {
	if mt, ok := tirToMIRBinary[inst.Tag]; ok {
		a := l.lowerValue(values.ID(inst.Left))
		b := l.lowerValue(values.ID(inst.Right))
		return l.prog.Push(mir.Inst{Tag: mt, A: int32(a), B: int32(b)})
	}
	if mt, ok := tirToMIRCast[inst.Tag]; ok {
		a := l.lowerValue(values.ID(inst.Left))
		return l.prog.Push(mir.Inst{Tag: mt, A: int32(a)})
	}

	switch inst.Tag {
	case tir.TagNop:
		return l.lowerValue(values.ID(inst.Left))

	case tir.TagArrayToSlice:
		a := l.lowerValue(values.ID(inst.Left))
		ptr := l.prog.Push(mir.Inst{Tag: mir.TagAddress, A: int32(a)})
		length := l.lowerValue(values.ID(inst.Right))
		return l.prog.Push(mir.Inst{Tag: mir.TagNewSlice, A: int32(ptr), B: int32(length)})

	case tir.TagAddress:
		a := l.lowerValue(values.ID(inst.Left))
		return l.prog.Push(mir.Inst{Tag: mir.TagAddress, A: int32(a)})

	case tir.TagAddressOfTemporary:
		v := l.lowerValue(values.ID(inst.Left))
		ty := l.vals.TypeOf(values.ID(inst.Left))
		slot := l.alloc(ty)
		l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(slot), B: int32(v)})
		return l.prog.Push(mir.Inst{Tag: mir.TagAddress, A: int32(slot)})

	case tir.TagDeref:
		a := l.lowerValue(values.ID(inst.Left))
		return l.prog.Push(mir.Inst{Tag: mir.TagDeref, A: int32(a)})

	case tir.TagField:
		a := l.lowerValue(values.ID(inst.Left))
		return l.prog.Push(mir.Inst{Tag: mir.TagAccess, A: int32(a), B: inst.Right})

	case tir.TagIndex:
		return l.lowerIndex(inst)

	case tir.TagSlice:
		return l.lowerSlice(inst)

	case tir.TagCall:
		return l.lowerCall(inst)

	case tir.TagStructLit:
		return l.lowerStructLit(inst)

	case tir.TagArrayLit:
		return l.lowerArrayLit(inst)

	case tir.TagAssign:
		return l.lowerAssign(inst)
	}
	return l.prog.Push(mir.Inst{Tag: mir.TagNull})
}

func (l *lowerer) lowerIndex(inst tir.Inst) mir.ID {
	baseTy := l.vals.TypeOf(values.ID(inst.Left))
	base := l.lowerValue(values.ID(inst.Left))
	idxVal := values.ID(inst.Right)
	if l.store.IsSlice(baseTy) {
		idx := l.lowerValue(idxVal)
		return l.prog.Push(mir.Inst{Tag: mir.TagSliceIndex, A: int32(base), B: int32(idx)})
	}
	if e := l.vals.Get(idxVal); e.Variant == values.VariantInt {
		return l.prog.Push(mir.Inst{Tag: mir.TagConstIndex, A: int32(base), B: int32(e.Int)})
	}
	idx := l.lowerValue(idxVal)
	return l.prog.Push(mir.Inst{Tag: mir.TagIndex, A: int32(base), B: int32(idx)})
}

func (l *lowerer) elementPlace(baseTy types.ID, base, idx mir.ID) mir.ID {
	if l.store.IsSlice(baseTy) {
		return l.prog.Push(mir.Inst{Tag: mir.TagSliceIndex, A: int32(base), B: int32(idx)})
	}
	return l.prog.Push(mir.Inst{Tag: mir.TagIndex, A: int32(base), B: int32(idx)})
}

func (l *lowerer) lowerSlice(inst tir.Inst) mir.ID {
	baseTy := l.vals.TypeOf(values.ID(inst.Left))
	base := l.lowerValue(values.ID(inst.Left))
	extra := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	lo := l.lowerValue(values.ID(extra[0]))

	elemPlace := l.elementPlace(baseTy, base, lo)
	ptr := l.prog.Push(mir.Inst{Tag: mir.TagAddress, A: int32(elemPlace)})

	var length mir.ID
	if extra[1] != 0 {
		hi := l.lowerValue(values.ID(extra[1]))
		length = l.prog.Push(mir.Inst{Tag: mir.TagSub, A: int32(hi), B: int32(lo)})
	} else if l.store.IsSlice(baseTy) {
		sliceLen := l.prog.Push(mir.Inst{Tag: mir.TagAccess, A: int32(base), B: 1})
		length = l.prog.Push(mir.Inst{Tag: mir.TagSub, A: int32(sliceLen), B: int32(lo)})
	} else {
		n := l.store.ArrayLength(baseTy)
		total := l.prog.Push(mir.Inst{Tag: mir.TagInt, Type: types.Isize, A: int32(n), B: int32(n >> 32)})
		length = l.prog.Push(mir.Inst{Tag: mir.TagSub, A: int32(total), B: int32(lo)})
	}
	return l.prog.Push(mir.Inst{Tag: mir.TagNewSlice, A: int32(ptr), B: int32(length)})
}

func (l *lowerer) lowerCall(inst tir.Inst) mir.ID {
	callee := l.lowerValue(values.ID(inst.Left))
	args := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	ids := make([]int32, len(args))
	for i, a := range args {
		ids[i] = int32(l.lowerValue(values.ID(a)))
	}
	start, count := l.prog.PushExtra(ids...)
	return l.prog.Push(mir.Inst{Tag: mir.TagCall, A: int32(callee), ExtraStart: start, ExtraCount: count})
}

func (l *lowerer) lowerStructLit(inst tir.Inst) mir.ID {
	fields := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	// The struct's own type isn't carried on the TIR instruction; the
	// caller (a let/assign/arg) always converts the literal through its
	// declared type first, so every field value's own type already
	// matches the destination layout and no slot type is needed here
	// beyond sizing: the slot is sized as the sum of field sizes since
	// the field list is exactly the struct's Fields in order.
	size := int64(0)
	for _, f := range fields {
		size += l.store.SizeOf(l.vals.TypeOf(values.ID(f)), l.target)
	}
	slot := l.prog.Push(mir.Inst{Tag: mir.TagAlloc, A: int32(size)})
	for i, f := range fields {
		v := l.lowerValue(values.ID(f))
		place := l.prog.Push(mir.Inst{Tag: mir.TagAccess, A: int32(slot), B: int32(i)})
		l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(place), B: int32(v)})
	}
	return slot
}

func (l *lowerer) lowerArrayLit(inst tir.Inst) mir.ID {
	elems := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	if len(elems) == 0 {
		return l.prog.Push(mir.Inst{Tag: mir.TagAlloc})
	}
	elemTy := l.vals.TypeOf(values.ID(elems[0]))
	elemSize := l.store.SizeOf(elemTy, l.target)
	slot := l.prog.Push(mir.Inst{Tag: mir.TagAlloc, Type: elemTy, A: int32(elemSize) * int32(len(elems))})
	for i, e := range elems {
		v := l.lowerValue(values.ID(e))
		place := l.prog.Push(mir.Inst{Tag: mir.TagConstIndex, A: int32(slot), B: int32(i)})
		l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(place), B: int32(v)})
	}
	return slot
}

// lowerAssign lowers a plain or compound assignment. A compound `x op=
// y` reads x's current value, combines it with y under op, then stores
// the result back through the same target place (spec.md §4.5
// "Compound assignments").
func (l *lowerer) lowerAssign(inst tir.Inst) mir.ID {
	target := l.assignTargetPlace(values.ID(inst.Left))
	rhs := l.lowerValue(values.ID(inst.Right))
	if inst.Op != 0 {
		cur := l.lowerValue(values.ID(inst.Left))
		mt := binaryOpTag(inst.Op)
		rhs = l.prog.Push(mir.Inst{Tag: mt, A: int32(cur), B: int32(rhs)})
	}
	l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(target), B: int32(rhs)})
	return rhs
}

// assignTargetPlace resolves an lvalue ValueId to the MIR id a TagAssign
// should write through, without going through lowerValue's read-biased
// cache (writing and reading the same place are different operations
// even though both resolve to the same underlying id today).
func (l *lowerer) assignTargetPlace(v values.ID) mir.ID {
	e := l.vals.Get(v)
	switch e.Variant {
	case values.VariantImmutableVar, values.VariantMutableVar:
		return l.allocs[e.LocalIndex]
	case values.VariantTemporary:
		inst := l.fn.Get(tir.ID(e.TirInst))
		switch inst.Tag {
		case tir.TagField:
			base := l.lowerValue(values.ID(inst.Left))
			return l.prog.Push(mir.Inst{Tag: mir.TagAccess, A: int32(base), B: inst.Right})
		case tir.TagIndex:
			return l.lowerIndex(inst)
		case tir.TagDeref:
			base := l.lowerValue(values.ID(inst.Left))
			return l.prog.Push(mir.Inst{Tag: mir.TagDeref, A: int32(base)})
		}
	}
	return l.lowerValue(v)
}

func binaryOpTag(op int32) mir.Tag {
	// ast.BinaryOp values line up with tir's arithmetic tags by
	// construction (internal/elaborate's binTag table), so the compound
	// assignment's stashed Op is itself already a tir.Tag-compatible
	// binary operator code; translate it the same way a plain binary
	// expression would be.
	if mt, ok := tirToMIRBinary[tir.Tag(op)]; ok {
		return mt
	}
	return mir.TagAdd
}

// lowerIfValue lowers an if used in expression position: both arms
// assign their tail value into a shared slot before converging, and the
// slot is the expression's resulting value.
func (l *lowerer) lowerIfValue(inst tir.Inst, ty types.ID) mir.ID {
	slot := l.alloc(ty)
	cond := l.lowerValue(values.ID(inst.Left))
	extra := l.fn.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
	thenLast, elseLast := tir.ID(extra[0]), tir.ID(extra[1])

	thenIdx := int32(len(l.blocks))
	elseIdx := thenIdx + 1
	mergeIdx := elseIdx + 1
	l.prog.Push(mir.Inst{Tag: mir.TagBrIf, A: int32(cond), B: thenIdx, C: elseIdx})

	l.newBlock()
	if v := l.lowerBlockValue(thenLast); v != 0 {
		l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(slot), B: int32(v)})
	}
	l.br(mergeIdx)

	l.newBlock()
	if elseLast != tir.NoInst {
		if v := l.lowerBlockValue(elseLast); v != 0 {
			l.prog.Push(mir.Inst{Tag: mir.TagAssign, A: int32(slot), B: int32(v)})
		}
	}
	l.br(mergeIdx)

	l.newBlock()
	return slot
}

// lowerBlockValue lowers a statement block and returns the MIR id of
// its trailing expression-statement's value, if any (0 otherwise).
// When stage 3 recorded last's yielded value in instValue (the case for
// a trailing if/switch-as-expression), that value is the source of
// truth; every earlier statement still runs for its side effects, and
// last itself is resolved through lowerValue rather than lowerStmt so it
// isn't lowered twice. Otherwise a trailing non-control-flow statement's
// own computed value is taken directly, matching a plain expression
// used as a block's tail.
func (l *lowerer) lowerBlockValue(last tir.ID) mir.ID {
	stmts := l.fn.Statements(last)
	if v, ok := l.instValue[last]; ok {
		for _, id := range stmts[:len(stmts)-1] {
			if l.blockTerminated() {
				continue
			}
			l.lowerStmt(id)
		}
		if l.blockTerminated() {
			return 0
		}
		return l.lowerValue(v)
	}
	var result mir.ID
	for i, id := range stmts {
		if l.blockTerminated() {
			continue
		}
		inst := l.fn.Get(id)
		if i == len(stmts)-1 && !tir.IsTerminator(inst.Tag) && inst.Tag != tir.TagLet && inst.Tag != tir.TagMut &&
			inst.Tag != tir.TagIf && inst.Tag != tir.TagLoop && inst.Tag != tir.TagSwitch {
			result = l.lowerTIRInst(inst)
			continue
		}
		l.lowerStmt(id)
	}
	return result
}

func (l *lowerer) lowerSwitchValue(inst tir.Inst, ty types.ID) mir.ID {
	slot := l.alloc(ty)
	dest := slot
	l.lowerSwitch(inst, &dest)
	return slot
}
