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
	"strings"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// elaborateBlockInto elaborates every statement of a block, threading
// the Prev chain through from prev, and returns the id of the last
// instruction reached (tir.NoInst for an empty block).
func (fc *fnCtx) elaborateBlockInto(prev tir.ID, node ast.ID) tir.ID {
	n := fc.tree.Get(node)
	for _, stmt := range fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
		prev = fc.elaborateStatement(prev, stmt)
	}
	return prev
}

func (fc *fnCtx) elaborateStatement(prev tir.ID, node ast.ID) tir.ID {
	n := fc.tree.Get(node)
	switch n.Tag {
	case ast.TagLet, ast.TagMut:
		return fc.elaborateLocalDecl(prev, node, n)
	case ast.TagIf:
		return fc.elaborateIf(prev, node, n)
	case ast.TagWhile:
		return fc.elaborateWhile(prev, node, n)
	case ast.TagFor:
		return fc.elaborateFor(prev, node, n)
	case ast.TagSwitch:
		return fc.elaborateSwitch(prev, node, n)
	case ast.TagReturn:
		return fc.elaborateReturn(prev, node, n)
	case ast.TagBreak:
		if fc.loopDepth == 0 {
			fc.reportf(diagsink.ErrMisplacedBreak, node)
		}
		return fc.pushStmt(prev, tir.Inst{Tag: tir.TagBreak, AST: node})
	case ast.TagContinue:
		if fc.loopDepth == 0 {
			fc.reportf(diagsink.ErrMisplacedContinue, node)
		}
		return fc.pushStmt(prev, tir.Inst{Tag: tir.TagContinue, AST: node})
	case ast.TagExprStmt:
		return fc.elaborateExprStmt(prev, node, n)
	case ast.TagBlock:
		return fc.elaborateBlockInto(prev, node)
	}
	v := fc.analyzeValue(node, types.Invalid)
	return fc.chainValue(prev, v)
}

func (fc *fnCtx) elaborateLocalDecl(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	entry := fc.rirOf(node)
	var hint types.ID
	if n.B != int32(ast.NoID) {
		hint = fc.analyzeType(ast.ID(n.B))
	}
	initNode := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
	init := fc.analyzeValue(initNode, hint)
	ty := hint
	if ty == types.Invalid {
		ty = fc.typeOf(init)
	} else {
		init = fc.convert(init, ty, initNode)
	}

	localIndex := fc.tirFn.LocalCount
	fc.tirFn.LocalCount++
	mutable := n.Tag == ast.TagMut
	v := fc.vals.NewVariable(ty, mutable, localIndex)
	fc.locals[entry.Data] = &localBinding{ty: ty, mutable: mutable, value: v, localIndex: localIndex, declNode: node}
	fc.tirFn.LocalNames = append(fc.tirFn.LocalNames, fc.e.Locals[fc.file][entry.Data].Name)

	tag := tir.TagLet
	if mutable {
		tag = tir.TagMut
	}
	return fc.pushStmt(prev, tir.Inst{Tag: tag, AST: node, Left: int32(init), Right: localIndex})
}

func (fc *fnCtx) elaborateIf(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	condNode := ast.ID(n.B)
	children := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	thenNode := children[0]
	var elseNode ast.ID = ast.NoID
	if len(children) > 1 {
		elseNode = children[1]
	}

	cond := fc.convert(fc.analyzeValue(condNode, types.Bool), types.Bool, condNode)
	thenLast := fc.elaborateStatement(tir.NoInst, thenNode)
	var elseLast tir.ID = tir.NoInst
	if elseNode != ast.NoID {
		elseLast = fc.elaborateStatement(tir.NoInst, elseNode)
	}

	id := fc.pushStmt(prev, tir.Inst{Tag: tir.TagIf, AST: node, Left: int32(cond)})
	start, count := fc.tirFn.PushExtra(int32(thenLast), int32(elseLast))
	inst := fc.tirFn.Get(id)
	inst.ExtraStart, inst.ExtraCount = start, count
	fc.tirFn.Insts[id] = inst
	if tv, ok := fc.instValue[thenLast]; ok {
		fc.instValue[id] = tv
	}
	return id
}

func (fc *fnCtx) elaborateWhile(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	condNode := ast.ID(n.B)
	children := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	bodyNode := children[0]

	cond := fc.convert(fc.analyzeValue(condNode, types.Bool), types.Bool, condNode)
	fc.loopDepth++
	bodyLast := fc.elaborateStatement(tir.NoInst, bodyNode)
	fc.loopDepth--

	id := fc.pushStmt(prev, tir.Inst{Tag: tir.TagLoop, AST: node})
	start, count := fc.tirFn.PushExtra(int32(fc.producerInst(cond)), int32(bodyLast), 0)
	inst := fc.tirFn.Get(id)
	inst.ExtraStart, inst.ExtraCount = start, count
	fc.tirFn.Insts[id] = inst
	return id
}

func (fc *fnCtx) elaborateFor(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	clauses := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	initNode, condNode, stepNode, bodyNode := clauses[0], clauses[1], clauses[2], clauses[3]

	if initNode != ast.NoID {
		prev = fc.elaborateStatement(prev, initNode)
	}
	var cond values.ID
	if condNode != ast.NoID {
		cond = fc.convert(fc.analyzeValue(condNode, types.Bool), types.Bool, condNode)
	} else {
		cond = fc.vals.NewIntConstant(types.Bool, 1)
	}

	fc.loopDepth++
	bodyLast := fc.elaborateStatement(tir.NoInst, bodyNode)
	var stepLast tir.ID = tir.NoInst
	if stepNode != ast.NoID {
		stepLast = fc.elaborateStatement(tir.NoInst, stepNode)
	}
	fc.loopDepth--

	id := fc.pushStmt(prev, tir.Inst{Tag: tir.TagLoop, AST: node})
	start, count := fc.tirFn.PushExtra(int32(fc.producerInst(cond)), int32(bodyLast), int32(stepLast))
	inst := fc.tirFn.Get(id)
	inst.ExtraStart, inst.ExtraCount = start, count
	fc.tirFn.Insts[id] = inst
	return id
}

func (fc *fnCtx) elaborateReturn(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	if n.B == int32(ast.NoID) {
		if fc.retType != types.Void {
			fc.reportf(diagsink.ErrReturnWithoutValue, node, fc.fnName)
		}
		return fc.pushStmt(prev, tir.Inst{Tag: tir.TagReturn, AST: node})
	}
	if fc.retType == types.Void {
		fc.reportf(diagsink.ErrReturnWithValue, node, fc.fnName)
	}
	valNode := ast.ID(n.B)
	v := fc.convert(fc.analyzeValue(valNode, fc.retType), fc.retType, valNode)
	return fc.pushStmt(prev, tir.Inst{Tag: tir.TagReturn, AST: node, Left: int32(v)})
}

// elaborateExprStmt handles a bare expression statement, which role
// analysis may have refined to an implicit function-body return (the
// trailing expression of a function with no explicit `return`) or to a
// type-only expression evaluated solely for a compile-time check
// (size_of[T] written as a statement).
func (fc *fnCtx) elaborateExprStmt(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	inner := ast.ID(n.B)
	entry := fc.rirOf(node)
	if entry.Tag == rir.TagImplicitReturn {
		v := fc.convert(fc.analyzeValue(inner, fc.retType), fc.retType, inner)
		return fc.pushStmt(prev, tir.Inst{Tag: tir.TagReturn, AST: node, Left: int32(v)})
	}
	if entry.Tag == rir.TagStatementType {
		fc.analyzeType(inner)
		return prev
	}
	v := fc.analyzeValue(inner, types.Invalid)
	return fc.chainValue(prev, v)
}

// elaborateSwitch elaborates a switch statement/expression, checking for
// duplicate case values and, when the discriminant is an enum with no
// else arm, exhaustiveness over its declared members.
func (fc *fnCtx) elaborateSwitch(prev tir.ID, node ast.ID, n ast.Node) tir.ID {
	var disc values.ID
	if n.B != int32(ast.NoID) {
		disc = fc.analyzeValue(ast.ID(n.B), types.Invalid)
	}
	discTy := types.Invalid
	if disc != values.ErrorValue && n.B != int32(ast.NoID) {
		discTy = fc.typeOf(disc)
	}

	armNodes := fc.tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	seen := map[int64]bool{}
	hasElse := false
	var resultTy types.ID
	armIDs := make([]int32, len(armNodes))

	for i, arm := range armNodes {
		an := fc.tree.Get(arm)
		entry := fc.rirOf(arm)
		var patVal values.ID
		if entry.Tag == rir.TagSwitchElseArm {
			if hasElse {
				fc.reportf(diagsink.ErrDuplicateSwitchCase, arm, "else")
			}
			hasElse = true
		} else {
			patVal = fc.analyzeValue(ast.ID(an.A), discTy)
			if discTy != types.Invalid {
				patVal = fc.convert(patVal, discTy, ast.ID(an.A))
			}
			key := fc.vals.Get(patVal).Int
			if seen[key] {
				fc.reportf(diagsink.ErrDuplicateSwitchCase, arm, "case")
			}
			seen[key] = true
		}

		bodyLast := fc.elaborateStatement(tir.NoInst, ast.ID(an.B))
		var bodyVal values.ID
		if v, ok := fc.instValue[bodyLast]; ok {
			bodyVal = v
			if resultTy == types.Invalid {
				resultTy = fc.typeOf(bodyVal)
			} else if fc.typeOf(bodyVal) != resultTy {
				bodyVal = fc.convert(bodyVal, resultTy, ast.ID(an.B))
			}
		}
		armID := fc.tirFn.Push(tir.Inst{Tag: tir.TagSwitchArm, AST: arm, Left: int32(patVal), Right: int32(bodyVal), Op: int32(bodyLast)})
		armIDs[i] = int32(armID)
	}

	if discTy != types.Invalid && fc.store.TagOf(discTy) == types.TagEnum {
		members := fc.e.enumMembers[discTy]
		var missing []string
		for name, mc := range members {
			if !seen[mc.value] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 && !hasElse {
			fc.reportf(diagsink.ErrSwitchNotExhaustive, node, strings.Join(missing, ", "))
		}
		if len(missing) == 0 && hasElse {
			fc.reportf(diagsink.ErrElseCaseUnreachable, node)
		}
	}

	start, count := fc.tirFn.PushExtra(armIDs...)
	id := fc.pushStmt(prev, tir.Inst{Tag: tir.TagSwitch, AST: node, Left: int32(disc), ExtraStart: start, ExtraCount: count})
	if resultTy != types.Invalid {
		fc.instValue[id] = fc.vals.NewTemporary(resultTy, int32(id), values.CategoryTemporary)
	}
	return id
}
