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
// Package role implements stage 2, the role analyzer (spec.md §4.2): a
// three-colour DFS over global definitions that fixes every AST node's
// RIR slot exactly once and produces the dependency order stage 3 walks.
package role

import (
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
)

// Role is analyze_node's return value: the coarse semantic kind of an
// AST node, independent of its RIR tag.
type Role uint8

const (
	RoleInvalid Role = iota
	RoleVisiting
	RoleType
	RoleTagType
	RoleValue
	RoleMultivalue
	RoleModule
	RoleBuiltinMacro
	RoleMacro
)

// color is the DFS visitation state for the global dependency walk.
type color uint8

const (
	colorUnvisited color = iota
	colorVisiting
	colorDone
)

// LocalID indexes into Analyzer's per-function local table.
type LocalID int32

// Local is one let/mut/param/type-param binding visible to a function
// body.
type Local struct {
	Name    string
	Mutable bool
	IsType  bool // true for a type-parameter binding
}

// localScope is one link of the nested-scope stack role analysis
// maintains while walking function, struct, for, if, while, switch, and
// block bodies.
type localScope struct {
	parent *localScope
	names  map[string]LocalID
}

// Analyzer runs stage 2 across every file of a compilation, sharing the
// program's symbol tables, string table, and diagnostic sink with the
// rest of the pipeline.
type Analyzer struct {
	Prog    *symtab.Program
	Strings *strtab.Table
	Sink    *diagsink.Sink
	RIR     map[symtab.FileID]*rir.Table

	// Dependency DFS state, keyed by global DefID.
	colors   map[symtab.DefID]color
	order    []symtab.DefID
	visiting []symtab.DefID // current DFS stack, for ERROR_RECURSIVE_DEPENDENCY notes
	trees    []*ast.Tree

	// Local table, one list per file, appended to across every global
	// def's walk (Locals itself is exposed for the next stage to read
	// back local names for diagnostics).
	Locals map[symtab.FileID][]Local

	importedOnce map[importKey]bool
}

type importKey struct {
	file   symtab.FileID
	module string
}

// New creates an Analyzer ready to walk prog's globals.
func New(prog *symtab.Program, strings *strtab.Table, sink *diagsink.Sink) *Analyzer {
	return &Analyzer{
		Prog:         prog,
		Strings:      strings,
		Sink:         sink,
		RIR:          make(map[symtab.FileID]*rir.Table),
		colors:       make(map[symtab.DefID]color),
		Locals:       make(map[symtab.FileID][]Local),
		importedOnce: make(map[importKey]bool),
	}
}

// rirFor returns (creating if needed) the RIR table for file.
func (a *Analyzer) rirFor(file symtab.FileID) *rir.Table {
	t, ok := a.RIR[file]
	if !ok {
		t = rir.New()
		a.RIR[file] = t
	}
	return t
}

// AnalyzeAll walks every global definition and returns the dependency
// order stage 3 uses to resolve globals by id.
func (a *Analyzer) AnalyzeAll(trees []*ast.Tree) []symtab.DefID {
	a.trees = trees
	for id := range a.Prog.Defs {
		a.visitDef(symtab.DefID(id))
	}
	return a.order
}

// visitDef runs the three-colour DFS described in spec.md §4.2: a
// visiting definition re-encountered is a cycle; a done definition is
// skipped; otherwise the definition's body is walked (which may recurse
// into other globals through identifier resolution, via resolveSymbol)
// and then appended to the order vector.
func (a *Analyzer) visitDef(id symtab.DefID) {
	trees := a.trees
	switch a.colors[id] {
	case colorDone:
		return
	case colorVisiting:
		ref := a.Prog.Def(id)
		d := diagsink.Diagnostic{
			Kind: diagsink.ErrRecursiveDependency,
			Loc:  a.locate(trees, ref.File, ref.Node),
			Args: []any{a.defName(trees, ref)},
		}
		for _, w := range a.visiting {
			wr := a.Prog.Def(w)
			d.Notes = append(d.Notes, diagsink.Diagnostic{
				Kind: diagsink.NoteRecursionHere,
				Loc:  a.locate(trees, wr.File, wr.Node),
			})
		}
		a.Sink.Report(d)
		return
	}
	a.colors[id] = colorVisiting
	a.visiting = append(a.visiting, id)
	ref := a.Prog.Def(id)
	tree := trees[ref.File]
	a.analyzeNode(trees, ref.File, tree, ref.Node, nil)
	a.visiting = a.visiting[:len(a.visiting)-1]
	a.colors[id] = colorDone
	a.order = append(a.order, id)
}

func (a *Analyzer) defName(trees []*ast.Tree, ref symtab.DefRef) string {
	tree := trees[ref.File]
	n := tree.Get(ref.Node)
	return a.Strings.Text(strtab.ID(n.A))
}

func (a *Analyzer) locate(trees []*ast.Tree, file symtab.FileID, node ast.ID) source.Location {
	tree := trees[file]
	pos := tree.Get(node).Pos
	return source.Location{File: tree.File, Span: source.Span{Start: pos, End: pos}, Caret: pos}
}

// pushScope creates a nested local scope whose enclosing scope is
// parent.
func pushScope(parent *localScope) *localScope {
	return &localScope{parent: parent, names: make(map[string]LocalID)}
}

func (a *Analyzer) declareLocal(trees []*ast.Tree, file symtab.FileID, scope *localScope, name string, mutable, isType bool, node ast.ID) LocalID {
	if _, ok := scope.names[name]; ok {
		a.Sink.Report(diagsink.Diagnostic{
			Kind: diagsink.ErrMultipleDefinition,
			Loc:  a.locate(trees, file, node),
			Args: []any{name},
		})
	}
	locals := a.Locals[file]
	id := LocalID(len(locals))
	locals = append(locals, Local{Name: name, Mutable: mutable, IsType: isType})
	a.Locals[file] = locals
	scope.names[name] = id
	return id
}

func lookupLocal(scope *localScope, name string) (LocalID, bool) {
	for s := scope; s != nil; s = s.parent {
		if id, ok := s.names[name]; ok {
			return id, true
		}
	}
	return 0, false
}
