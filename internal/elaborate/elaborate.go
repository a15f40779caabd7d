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
// Package elaborate implements stage 3, the type elaborator (spec.md
// §4.3): it walks global definitions in dependency order producing
// interned types, the value table, per-function TIR, and the four
// declaration lists code generation consumes.
package elaborate

import (
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/role"
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// declInfo records what a global DefID elaborated to, so later
// references (via RIR_GLOBAL_ID) can be resolved without re-walking the
// definition's AST.
type declInfo struct {
	tag   ast.Tag
	typ   types.ID    // STRUCT / ENUM / NEWTYPE
	value values.ID   // CONST / FUNCTION / EXTERN_FUNCTION / EXTERN_VAR
}

// enumConst records one enum member's resolved value for EnumName.Member
// scope-access lookups.
type enumConst struct {
	value int64
	index int
}

// FunctionResult is one function's elaborated body plus the thread-local
// type/value stores its TIR operands are expressed in (spec.md §5: a
// worker's results are never merged back into the global tables).
type FunctionResult struct {
	Def    symtab.DefID
	Name   string
	Value  values.ID
	Type   types.ID // FUNCTION type
	TIR    *tir.Function
	Locals *types.Store  // thread-local worker backed by Elaborator.Types
	Vals   *values.Table // thread-local worker backed by Elaborator.Values
	IsMain bool

	// InstValue maps an expression-producing TIR instruction to the
	// value it yields, so stage 4/5 can resolve a statement-sequence's
	// final value (e.g. a loop condition's last instruction) without a
	// second elaboration pass.
	InstValue map[tir.ID]values.ID
}

// pendingBody is the signature-elaboration output ElaborateFunctionBody
// needs to elaborate a function's body independently, possibly on a
// different goroutine than the one that ran elaborateFunctionSignature
// (spec.md §5: function bodies are parallelizable once every global
// signature is resolved).
type pendingBody struct {
	file           symtab.FileID
	tree           *ast.Tree
	bodyNode       ast.ID
	params         []types.ID
	paramLocalIDs  []int32
	retType        types.ID
	typeParamTypes map[int32]types.ID
	result         *FunctionResult
}

// Elaborator holds the whole-compilation state stage 3 builds: the
// global type/value/string tables, resolved declaration info per global,
// and the declaration lists the rest of the pipeline reads.
type Elaborator struct {
	Prog    *symtab.Program
	Strings *strtab.Table
	Sink    *diagsink.Sink
	Trees   []*ast.Tree
	RIR     map[symtab.FileID]*rir.Table
	Locals  map[symtab.FileID][]role.Local

	Types       *types.Store
	Values      *values.Table
	StringTable *values.StringTable
	Target      types.Target

	decls           map[symtab.DefID]*declInfo
	structFieldName map[int32][]strtab.ID // keyed by the struct's declaration-site AST node id (types.Entry.Scope), shared by every generic instantiation of that struct
	enumMembers     map[types.ID]map[string]enumConst
	mutWarned       map[role.LocalID]bool

	// typeParamTypes is live only while walking one generic struct's or
	// function's header; analyzeTypeIn consults it to resolve a
	// TYPE_PARAMETER identifier to its placeholder type. Keyed by the
	// RIR-assigned LocalID, which is only unique within the current
	// file/definition being walked (role analysis never interleaves two
	// definitions), so reuse across definitions is safe.
	typeParamTypes map[int32]types.ID

	pending map[symtab.DefID]*pendingBody

	Structs         []types.ID
	ExternVars      []values.ID
	ExternFunctions []values.ID
	Functions       []*FunctionResult
	Main            values.ID
}

// New creates an Elaborator sharing the program's string table,
// diagnostic sink, and stage 1/2 outputs.
func New(prog *symtab.Program, strings *strtab.Table, sink *diagsink.Sink, trees []*ast.Tree,
	roleTables map[symtab.FileID]*rir.Table, locals map[symtab.FileID][]role.Local, target types.Target) *Elaborator {
	return &Elaborator{
		Prog:            prog,
		Strings:         strings,
		Sink:            sink,
		Trees:           trees,
		RIR:             roleTables,
		Locals:          locals,
		Types:           types.NewGlobal(),
		Values:          values.NewGlobal(),
		StringTable:     values.NewStringTable(),
		Target:          target,
		decls:           make(map[symtab.DefID]*declInfo),
		structFieldName: make(map[int32][]strtab.ID),
		enumMembers:     make(map[types.ID]map[string]enumConst),
		mutWarned:       make(map[role.LocalID]bool),
		typeParamTypes:  make(map[int32]types.ID),
		pending:         make(map[symtab.DefID]*pendingBody),
	}
}

func (e *Elaborator) tree(file symtab.FileID) *ast.Tree { return e.Trees[file] }
func (e *Elaborator) rir(file symtab.FileID) *rir.Table { return e.RIR[file] }

// RunGlobal elaborates every global in dependency order: struct/enum/
// newtype headers and bodies, constants, extern declarations, and
// function signatures (bodies are elaborated afterward, one call to
// ElaborateFunctionBody per function, safe to run concurrently since the
// global tables are read-only from this point on).
func (e *Elaborator) RunGlobal(order []symtab.DefID) {
	for _, id := range order {
		e.elaborateGlobal(id)
	}
}

func (e *Elaborator) elaborateGlobal(id symtab.DefID) {
	if _, ok := e.decls[id]; ok {
		return
	}
	ref := e.Prog.Def(id)
	tree := e.tree(ref.File)
	n := tree.Get(ref.Node)
	info := &declInfo{tag: n.Tag}
	e.decls[id] = info

	switch n.Tag {
	case ast.TagStructDecl:
		info.typ = e.elaborateStruct(ref.File, tree, ref.Node, n)
		e.Structs = append(e.Structs, info.typ)
	case ast.TagEnumDecl:
		info.typ = e.elaborateEnum(ref.File, tree, ref.Node, n)
	case ast.TagNewtypeDecl:
		info.typ = e.elaborateNewtype(ref.File, tree, ref.Node, n)
	case ast.TagConst:
		info.value = e.elaborateConst(ref.File, tree, ref.Node, n)
	case ast.TagExternFunction:
		info.value = e.elaborateExternFunction(ref.File, tree, ref.Node, n)
		e.ExternFunctions = append(e.ExternFunctions, info.value)
	case ast.TagExternVar:
		info.value = e.elaborateExternVar(ref.File, tree, ref.Node, n)
		e.ExternVars = append(e.ExternVars, info.value)
	case ast.TagFunctionDecl:
		fr := e.elaborateFunctionSignature(id, ref.File, tree, ref.Node, n)
		info.value = fr.Value
		info.typ = fr.Type
		e.Functions = append(e.Functions, fr)
		if fr.Name == "main" {
			e.Main = fr.Value
			fr.IsMain = true
			if len(e.Types.Get(fr.Type).Params) != 0 || e.Types.Get(fr.Type).Ret != types.Void {
				e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrMainSignature, Loc: e.locate(ref.File, ref.Node)})
			}
		}
	}
}

func (e *Elaborator) locate(file symtab.FileID, node ast.ID) source.Location {
	tree := e.tree(file)
	pos := tree.Get(node).Pos
	return source.Location{File: tree.File, Span: source.Span{Start: pos, End: pos}, Caret: pos}
}

// Locator returns a function that resolves an AST node id back to a
// source.Location within fr's home file, for stage 4/5 (internal/affine,
// internal/lower) to attach diagnostics/debug info without needing their
// own copy of the file/tree tables.
func (e *Elaborator) Locator(fr *FunctionResult) func(ast.ID) source.Location {
	file := e.Prog.Def(fr.Def).File
	return func(node ast.ID) source.Location { return e.locate(file, node) }
}
