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
// Package symtab holds the symbol and scope tables spec.md §3 "Symbols"
// describes: a process-wide global definition table, per-module
// public/private scopes, and per-file import scopes. The local symbol
// tables stage 2 builds while walking a function body live in
// internal/role.
package symtab

import "github.com/Laia-Ortiga/jellyc/internal/ast"

// ModuleID indexes into a Program's Modules slice.
type ModuleID int32

// DefID indexes into a Program's Defs slice — the process-wide
// definition table every RIR_GLOBAL_ID ultimately points at.
type DefID int32

// FileID indexes a source file within a Program.
type FileID int32

// DefRef is (AST node, file) for a single global definition, i.e. the
// original's AstRef.
type DefRef struct {
	Node ast.ID
	File FileID
}

// SymbolKind is the coarse kind a name resolves to.
type SymbolKind uint8

const (
	SymUndefined SymbolKind = iota
	SymBuiltin
	SymGlobal
	SymLocal
	SymModule
)

// Symbol is (kind, index-into-the-table-that-kind-implies): a built-in
// id, a DefID, or — during role analysis — a per-file LocalID.
type Symbol struct {
	Kind  SymbolKind
	Index int32
}

var Undefined = Symbol{Kind: SymUndefined}

// BuiltinID enumerates the fixed-name built-ins spec.md §6 requires.
type BuiltinID int32

const (
	BuiltinInvalid BuiltinID = iota
	BuiltinI8
	BuiltinI16
	BuiltinI32
	BuiltinI64
	BuiltinIsize
	BuiltinF32
	BuiltinF64
	BuiltinBool
	BuiltinByte
	BuiltinChar
	BuiltinVoid
	BuiltinSizeTag   // `Size
	BuiltinAlignTag  // `Alignment
	BuiltinSizeOf    // `size_of
	BuiltinAlignOf   // `align_of
	BuiltinZeroExtend // `zero_extend
	BuiltinSlice      // `slice
	BuiltinAffine     // `Affine
	BuiltinArrayLength // `ArrayLength
)

// BuiltinNames is the fixed spelling table from spec.md §6.
var BuiltinNames = map[string]BuiltinID{
	"i8": BuiltinI8, "i16": BuiltinI16, "i32": BuiltinI32, "i64": BuiltinI64,
	"isize": BuiltinIsize, "f32": BuiltinF32, "f64": BuiltinF64,
	"bool": BuiltinBool, "byte": BuiltinByte, "char": BuiltinChar, "void": BuiltinVoid,
	"Size": BuiltinSizeTag, "Alignment": BuiltinAlignTag,
	"size_of": BuiltinSizeOf, "align_of": BuiltinAlignOf,
	"zero_extend": BuiltinZeroExtend, "slice": BuiltinSlice,
	"Affine": BuiltinAffine, "ArrayLength": BuiltinArrayLength,
}

// Scope is a name -> Symbol mapping. Used for module public/private
// scopes and file import scopes; role analysis's local scope chain
// lives in internal/role since it also needs a parent link and
// per-function lifetime.
type Scope map[string]Symbol

// Module is a module's public and private top-level scopes.
type Module struct {
	Name    string
	Public  Scope
	Private Scope
}

// FileScope holds a file's own module assignment and the names it has
// imported (name -> SymModule symbol).
type FileScope struct {
	Path    string
	Module  ModuleID
	Imports Scope
}

// UnimportedModuleNames returns module names the program knows about
// that fs has not imported, used by role analysis's NOTE_FORGOT_IMPORT.
func (p *Program) UnimportedModuleNames(fs FileScope) []string {
	var out []string
	for name := range p.ModuleByName {
		if _, ok := fs.Imports[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Program is the whole-compilation symbol state stage 1 produces and
// stages 2/3 read.
type Program struct {
	Modules      []Module
	ModuleByName map[string]ModuleID
	Files        []FileScope
	Defs         []DefRef
	Functions    []DefID
	ExternNames  map[string]DefID
}

// NewProgram creates an empty Program ready for collection.
func NewProgram() *Program {
	return &Program{
		ModuleByName: make(map[string]ModuleID),
		ExternNames:  make(map[string]DefID),
	}
}

// Module dereferences a ModuleID.
func (p *Program) Module(id ModuleID) *Module {
	return &p.Modules[id]
}

// Def dereferences a DefID.
func (p *Program) Def(id DefID) DefRef {
	return p.Defs[id]
}

// AddDef appends a new global definition and returns its id.
func (p *Program) AddDef(ref DefRef) DefID {
	p.Defs = append(p.Defs, ref)
	return DefID(len(p.Defs) - 1)
}

// EnsureModule returns the ModuleID for name, creating it if unseen.
func (p *Program) EnsureModule(name string) ModuleID {
	if id, ok := p.ModuleByName[name]; ok {
		return id
	}
	id := ModuleID(len(p.Modules))
	p.Modules = append(p.Modules, Module{Name: name, Public: Scope{}, Private: Scope{}})
	p.ModuleByName[name] = id
	return id
}
