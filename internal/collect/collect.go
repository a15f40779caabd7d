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
// Package collect implements stage 1, the global symbol collector
// (spec.md §4.1): for each file it walks top-level declarations, unwraps
// an optional `public` marker, rejects duplicate names, and inserts
// every global into the file/module/extern scopes the later stages read.
package collect

import (
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
)

// Collector runs stage 1 across every file of a compilation.
type Collector struct {
	Prog    *symtab.Program
	Strings *strtab.Table
	Sink    *diagsink.Sink
	trees   []*ast.Tree
}

// New creates a Collector sharing the program's string table and
// diagnostic sink with the rest of the pipeline.
func New(strings *strtab.Table, sink *diagsink.Sink) *Collector {
	return &Collector{Prog: symtab.NewProgram(), Strings: strings, Sink: sink}
}

// CollectFile registers tree's module and every top-level declaration,
// returning the FileID later stages use to look the file back up.
func (c *Collector) CollectFile(tree *ast.Tree) symtab.FileID {
	modID := c.Prog.EnsureModule(tree.ModuleName)
	fileID := symtab.FileID(len(c.Prog.Files))
	c.Prog.Files = append(c.Prog.Files, symtab.FileScope{
		Path:    tree.File.Path,
		Module:  modID,
		Imports: symtab.Scope{},
	})
	c.trees = append(c.trees, tree)

	for _, item := range tree.Items {
		c.collectItem(fileID, modID, tree, item)
	}
	return fileID
}

func (c *Collector) collectItem(fileID symtab.FileID, modID symtab.ModuleID, tree *ast.Tree, item ast.ID) {
	n := tree.Get(item)
	public := false
	target := item
	if n.Tag == ast.TagPublic {
		public = true
		target = ast.ID(n.B)
		n = tree.Get(target)
	}

	switch n.Tag {
	case ast.TagImport:
		name := c.Strings.Text(strtab.ID(n.A))
		modRef := c.Prog.EnsureModule(name)
		c.Prog.Files[fileID].Imports[name] = symtab.Symbol{Kind: symtab.SymModule, Index: int32(modRef)}

	case ast.TagFunctionDecl:
		defID, ok := c.define(fileID, modID, public, n.A, target)
		if ok {
			c.Prog.Functions = append(c.Prog.Functions, defID)
		}

	case ast.TagStructDecl, ast.TagEnumDecl, ast.TagNewtypeDecl, ast.TagConst:
		c.define(fileID, modID, public, n.A, target)

	case ast.TagExternFunction:
		defID, ok := c.define(fileID, modID, public, n.A, target)
		if ok {
			c.checkExtern(fileID, target, defID, n.A)
		}

	case ast.TagExternVar:
		defID, ok := c.define(fileID, modID, public, n.A, target)
		if ok {
			c.checkExtern(fileID, target, defID, n.A)
		}
	}
}

func (c *Collector) define(fileID symtab.FileID, modID symtab.ModuleID, public bool, nameID int32, node ast.ID) (symtab.DefID, bool) {
	name := c.Strings.Text(strtab.ID(nameID))
	mod := c.Prog.Module(modID)
	scope := mod.Private
	if public {
		scope = mod.Public
	}
	other := mod.Public
	if public {
		other = mod.Private
	}
	if prev, ok := scope[name]; ok {
		c.reportDuplicate(fileID, node, name, prev)
		return 0, false
	}
	if prev, ok := other[name]; ok {
		c.reportDuplicate(fileID, node, name, prev)
		return 0, false
	}
	defID := c.Prog.AddDef(symtab.DefRef{Node: node, File: fileID})
	scope[name] = symtab.Symbol{Kind: symtab.SymGlobal, Index: int32(defID)}
	return defID, true
}

func (c *Collector) checkExtern(fileID symtab.FileID, node ast.ID, defID symtab.DefID, nameID int32) {
	name := c.Strings.Text(strtab.ID(nameID))
	if prevDef, ok := c.Prog.ExternNames[name]; ok {
		prevRef := c.Prog.Def(prevDef)
		c.Sink.Report(diagsink.Diagnostic{
			Kind: diagsink.ErrMultipleExternDefinition,
			Loc:  c.locate(fileID, node),
			Args: []any{name},
			Notes: []diagsink.Diagnostic{{
				Kind: diagsink.NotePreviousDefinition,
				Loc:  c.locate(prevRef.File, prevRef.Node),
			}},
		})
		return
	}
	c.Prog.ExternNames[name] = defID
}

func (c *Collector) reportDuplicate(fileID symtab.FileID, node ast.ID, name string, prev symtab.Symbol) {
	d := diagsink.Diagnostic{
		Kind: diagsink.ErrMultipleDefinition,
		Loc:  c.locate(fileID, node),
		Args: []any{name},
	}
	if prev.Kind == symtab.SymGlobal {
		prevRef := c.Prog.Def(symtab.DefID(prev.Index))
		d.Notes = append(d.Notes, diagsink.Diagnostic{
			Kind: diagsink.NotePreviousDefinition,
			Loc:  c.locate(prevRef.File, prevRef.Node),
		})
	} else {
		d.Notes = append(d.Notes, diagsink.Diagnostic{Kind: diagsink.NotePreviousDefinition})
	}
	c.Sink.Report(d)
}

func (c *Collector) locate(fileID symtab.FileID, node ast.ID) source.Location {
	if int(fileID) >= len(c.trees) {
		return source.Location{}
	}
	tree := c.trees[fileID]
	pos := tree.Get(node).Pos
	return source.Location{File: tree.File, Span: source.Span{Start: pos, End: pos}, Caret: pos}
}
