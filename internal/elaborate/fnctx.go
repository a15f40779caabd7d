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
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// localBinding is one let/mut/param binding's elaborated state: its type,
// the single Value id every reference to it resolves to (locals aren't
// re-materialized per use — their place-ness is fixed at declaration,
// unlike a temporary's derived category), and its TIR local slot.
type localBinding struct {
	ty         types.ID
	mutable    bool
	value      values.ID
	localIndex int32
	declNode   ast.ID // for NOTE_REPLACE_LET_WITH_MUT, once per variable
}

// fnCtx is the per-function elaboration worker: its own thread-local
// type/value Stores, its own TIR function, and the local-binding table
// keyed by the RIR LocalID role analysis assigned (spec.md §5: a
// worker's tables are never merged back into the global ones).
type fnCtx struct {
	e     *Elaborator
	file  symtab.FileID
	tree  *ast.Tree
	store *types.Store
	vals  *values.Table
	tirFn *tir.Function

	instValue map[tir.ID]values.ID
	locals    map[int32]*localBinding
	typeParams map[int32]types.ID

	retType   types.ID
	fnName    string
	loopDepth int
}

func (e *Elaborator) newFnCtx(p *pendingBody) *fnCtx {
	return &fnCtx{
		e:          e,
		file:       p.file,
		tree:       p.tree,
		store:      e.Types.NewWorker(),
		vals:       e.Values.NewWorker(),
		tirFn:      tir.NewFunction(),
		instValue:  make(map[tir.ID]values.ID),
		locals:     make(map[int32]*localBinding),
		typeParams: p.typeParamTypes,
		retType:    p.retType,
	}
}

// ElaborateFunctionBody runs stage 3's per-function local part (spec.md
// §4.3): it's safe to call concurrently for distinct DefIDs once
// RunGlobal has returned, since every external reference a body can make
// was already resolved to a global id/type during the serial phase.
func (e *Elaborator) ElaborateFunctionBody(id symtab.DefID) *FunctionResult {
	p, ok := e.pending[id]
	if !ok {
		return nil
	}
	fr := p.result
	fc := e.newFnCtx(p)
	fc.fnName = fr.Name

	for i, pt := range p.params {
		v := fc.vals.NewVariable(pt, false, int32(i))
		fc.locals[p.paramLocalIDs[i]] = &localBinding{ty: pt, value: v, localIndex: int32(i)}
		fc.tirFn.LocalNames = append(fc.tirFn.LocalNames, fc.e.Locals[p.file][p.paramLocalIDs[i]].Name)
	}
	fc.tirFn.LocalCount = int32(len(p.params))

	bodyNode := p.bodyNode
	if bodyNode != ast.NoID {
		last := fc.elaborateBlockInto(tir.NoInst, bodyNode)
		fc.tirFn.Entry = last
		fc.checkReturns(last)
	}

	fr.TIR = fc.tirFn
	fr.Locals = fc.store
	fr.Vals = fc.vals
	fr.InstValue = fc.instValue
	return fr
}

// checkReturns implements the "missing return" / bare-return-mismatch
// diagnostics from spec.md §7; it inspects only the last statement of
// the outermost body, matching the original's single-point check (a
// return buried in an earlier unconditional branch still requires a
// trailing return at the textual end, mirroring typical AOT compilers
// that don't do full reachability analysis here; stage 4 does none
// either).
func (fc *fnCtx) checkReturns(last tir.ID) {
	if fc.retType == types.Void {
		return
	}
	if last == tir.NoInst || fc.tirFn.Get(last).Tag != tir.TagReturn {
		fc.e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrMissingReturn, Args: []any{fc.fnName}})
	}
}

func (fc *fnCtx) locate(node ast.ID) source.Location {
	return fc.e.locate(fc.file, node)
}

func (fc *fnCtx) rirOf(node ast.ID) rir.Entry {
	return fc.e.rir(fc.file).Get(node)
}

// pushStmt appends a statement-level instruction, chaining it onto prev
// via Inst.Prev (see internal/tir's doc comment on Prev).
func (fc *fnCtx) pushStmt(prev tir.ID, i tir.Inst) tir.ID {
	i.Prev = prev
	return fc.tirFn.Push(i)
}

// pushExpr appends a pure sub-expression instruction (no Prev chaining;
// reached only through the ValueId it produces) and records the value it
// produces.
func (fc *fnCtx) pushExpr(i tir.Inst, ty types.ID, cat values.Category) values.ID {
	id := fc.tirFn.Push(i)
	v := fc.vals.NewTemporary(ty, int32(id), cat)
	fc.instValue[id] = v
	return v
}

func (fc *fnCtx) typeOf(v values.ID) types.ID { return fc.vals.TypeOf(v) }
func (fc *fnCtx) catOf(v values.ID) values.Category { return fc.vals.CategoryOf(v) }

// producerInst returns the TIR instruction that computed v, or NoInst
// when v has no owning instruction (a local read, a bare constant). Loop
// headers (TagLoop) record this instead of the condition's ValueId
// directly, since the condition must be recomputed every iteration.
func (fc *fnCtx) producerInst(v values.ID) tir.ID {
	e := fc.vals.Get(v)
	if e.Variant == values.VariantTemporary {
		return tir.ID(e.TirInst)
	}
	return tir.NoInst
}

// chainValue splices a pure sub-expression instruction (pushed via
// pushExpr, so Prev is still NoInst) onto prev, turning it into this
// statement sequence's next link. Values with no producing instruction
// leave the chain at prev unchanged.
func (fc *fnCtx) chainValue(prev tir.ID, v values.ID) tir.ID {
	id := fc.producerInst(v)
	if id == tir.NoInst {
		return prev
	}
	inst := fc.tirFn.Get(id)
	inst.Prev = prev
	fc.tirFn.Insts[id] = inst
	return id
}

func (fc *fnCtx) typeString(id types.ID) string {
	return fc.store.String(id, fc.e.Strings)
}

func (fc *fnCtx) reportf(kind diagsink.Kind, node ast.ID, args ...any) {
	fc.e.Sink.Report(diagsink.Diagnostic{Kind: kind, Loc: fc.locate(node), Args: args})
}

func (fc *fnCtx) analyzeType(node ast.ID) types.ID {
	if node == ast.NoID {
		return types.Void
	}
	n := fc.tree.Get(node)
	entry := fc.rirOf(node)
	if n.Tag == ast.TagIdent && entry.Tag == rir.TagLocalID {
		if ty, ok := fc.typeParams[entry.Data]; ok {
			return ty
		}
	}
	return fc.e.analyzeTypeIn(fc.store, fc.file, fc.tree, node)
}

// strText is a small convenience used throughout statement/expression
// elaboration.
func (fc *fnCtx) strText(id strtab.ID) string { return fc.e.Strings.Text(id) }
