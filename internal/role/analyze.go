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

package role

import (
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
)

// builtinRole classifies a resolved BuiltinID as a type, a built-in
// macro, or the tag-type role the `Size`/`Alignment`/`Affine` forms need
// (spec.md §4.2's dispatch for index-of-builtin).
func builtinRole(id symtab.BuiltinID) Role {
	switch id {
	case symtab.BuiltinI8, symtab.BuiltinI16, symtab.BuiltinI32, symtab.BuiltinI64,
		symtab.BuiltinIsize, symtab.BuiltinF32, symtab.BuiltinF64, symtab.BuiltinBool,
		symtab.BuiltinByte, symtab.BuiltinChar, symtab.BuiltinVoid:
		return RoleType
	case symtab.BuiltinSizeTag, symtab.BuiltinAlignTag, symtab.BuiltinAffine, symtab.BuiltinArrayLength:
		return RoleTagType
	case symtab.BuiltinSizeOf, symtab.BuiltinAlignOf, symtab.BuiltinZeroExtend, symtab.BuiltinSlice:
		return RoleBuiltinMacro
	}
	return RoleInvalid
}

// analyzeNode is analyze_node(ref) -> role from spec.md §4.2: it
// dispatches on the AST tag, writes the node's RIR slot (tag, data) at
// most once, and recurses into children, introducing/consulting the
// local-scope chain as needed.
func (a *Analyzer) analyzeNode(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope) Role {
	if node == ast.NoID {
		return RoleInvalid
	}
	table := a.rirFor(file)
	n := tree.Get(node)

	switch n.Tag {
	case ast.TagIntLit, ast.TagFloatLit, ast.TagStringLit, ast.TagBoolLit, ast.TagCharLit, ast.TagNullLit:
		return RoleValue

	case ast.TagIdent:
		return a.analyzeIdent(trees, file, tree, node, scope, strtab.ID(n.A))

	case ast.TagUnary:
		return a.analyzeUnary(trees, file, tree, node, scope, n)

	case ast.TagBinary:
		rhs := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		a.analyzeNode(trees, file, tree, rhs, scope)
		return RoleValue

	case ast.TagAssign:
		rhs := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		a.analyzeNode(trees, file, tree, rhs, scope)
		return RoleValue

	case ast.TagCall:
		return a.analyzeCall(trees, file, tree, node, scope, n)

	case ast.TagIndex:
		return a.analyzeIndex(trees, file, tree, node, scope, n)

	case ast.TagSlice:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		for _, c := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
			a.analyzeNode(trees, file, tree, c, scope)
		}
		return RoleValue

	case ast.TagListLit:
		for _, c := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
			a.analyzeNode(trees, file, tree, c, scope)
		}
		return RoleValue

	case ast.TagAccess:
		return a.analyzeAccess(trees, file, tree, node, scope, n)

	case ast.TagInferredAccess:
		table.Set(node, rir.TagInferredAccess, n.A)
		return RoleValue

	case ast.TagBlock:
		inner := pushScope(scope)
		children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
		for _, c := range children {
			a.analyzeNode(trees, file, tree, c, inner)
		}
		return RoleValue

	case ast.TagLet, ast.TagMut, ast.TagConst:
		return a.analyzeBinding(trees, file, tree, node, scope, n)

	case ast.TagIf:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
		a.analyzeNode(trees, file, tree, children[0], pushScope(scope))
		if len(children) > 1 && children[1] != ast.NoID {
			a.analyzeNode(trees, file, tree, children[1], pushScope(scope))
		}
		return RoleValue

	case ast.TagWhile:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
		a.analyzeNode(trees, file, tree, children[0], pushScope(scope))
		return RoleValue

	case ast.TagFor:
		inner := pushScope(scope)
		clauses := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
		for _, c := range clauses {
			a.analyzeNode(trees, file, tree, c, inner)
		}
		return RoleValue

	case ast.TagSwitch:
		return a.analyzeSwitch(trees, file, tree, node, scope, n)

	case ast.TagSwitchArm:
		if n.A != int32(ast.NoID) {
			a.analyzeNode(trees, file, tree, ast.ID(n.A), scope)
		} else {
			table.Set(node, rir.TagSwitchElseArm, 0)
		}
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		return RoleValue

	case ast.TagReturn:
		if n.B != int32(ast.NoID) {
			a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		}
		return RoleValue

	case ast.TagBreak, ast.TagContinue:
		return RoleValue

	case ast.TagExprStmt:
		inner := ast.ID(n.B)
		r := a.analyzeNode(trees, file, tree, inner, scope)
		if table.Get(node).Tag == rir.TagImplicitReturn {
			return RoleValue
		}
		if r == RoleType {
			table.Set(node, rir.TagStatementType, 0)
		} else {
			table.Set(node, rir.TagStatementValue, 0)
		}
		return RoleValue

	case ast.TagFunctionDecl:
		return a.analyzeFunctionDecl(trees, file, tree, node, n)

	case ast.TagStructDecl:
		inner := pushScope(scope)
		for _, c := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
			a.analyzeNode(trees, file, tree, c, inner)
		}
		return RoleType

	case ast.TagEnumDecl:
		if n.B != int32(ast.NoID) {
			a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		}
		for _, m := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
			mn := tree.Get(m)
			if mn.B != int32(ast.NoID) {
				a.analyzeNode(trees, file, tree, ast.ID(mn.B), scope)
			}
		}
		return RoleType

	case ast.TagNewtypeDecl:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		return RoleType

	case ast.TagExternFunction:
		inner := pushScope(scope)
		for _, c := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
			a.analyzeNode(trees, file, tree, c, inner)
		}
		if n.B != int32(ast.NoID) {
			a.analyzeNode(trees, file, tree, ast.ID(n.B), inner)
		}
		return RoleValue

	case ast.TagExternVar:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		return RoleValue

	case ast.TagPublic:
		return a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)

	case ast.TagPointerType:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		return RoleType

	case ast.TagMultiPtrType:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		return RoleType

	case ast.TagArrayType:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		lenExpr := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
		a.analyzeNode(trees, file, tree, lenExpr, scope)
		return RoleType

	case ast.TagParam:
		return a.analyzeParamLike(trees, file, tree, node, scope, n, false)

	case ast.TagTypeParam:
		name := a.Strings.Text(strtab.ID(n.A))
		id := a.declareLocal(trees, file, scope, name, false, true, node)
		table.Set(node, rir.TagLocalID, int32(id))
		return RoleType

	case ast.TagField:
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
		return RoleType
	}
	return RoleInvalid
}

func (a *Analyzer) analyzeIdent(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, nameID strtab.ID) Role {
	table := a.rirFor(file)
	name := a.Strings.Text(nameID)

	if id, ok := lookupLocal(scope, name); ok {
		table.Set(node, rir.TagLocalID, int32(id))
		locals := a.Locals[file]
		if locals[id].IsType {
			return RoleType
		}
		return RoleValue
	}

	fs := a.Prog.Files[file]
	if sym, ok := fs.Imports[name]; ok {
		return a.resolveSymbol(trees, table, node, sym)
	}
	mod := a.Prog.Module(fs.Module)
	if sym, ok := mod.Private[name]; ok {
		return a.resolveSymbol(trees, table, node, sym)
	}
	if sym, ok := mod.Public[name]; ok {
		return a.resolveSymbol(trees, table, node, sym)
	}
	if bid, ok := symtab.BuiltinNames[name]; ok {
		table.Set(node, rir.TagBuiltinID, int32(bid))
		return builtinRole(bid)
	}

	d := diagsink.Diagnostic{
		Kind: diagsink.ErrUndefinedName,
		Loc:  a.locate(trees, file, node),
		Args: []any{name},
	}
	if key := (importKey{file: file, module: name}); !a.importedOnce[key] {
		for _, unimported := range a.Prog.UnimportedModuleNames(fs) {
			if unimported == name {
				d.Notes = append(d.Notes, diagsink.Diagnostic{Kind: diagsink.NoteForgotImport, Args: []any{name}})
				a.importedOnce[key] = true
				break
			}
		}
	}
	a.Sink.Report(d)
	return RoleInvalid
}

func (a *Analyzer) resolveSymbol(trees []*ast.Tree, table *rir.Table, node ast.ID, sym symtab.Symbol) Role {
	switch sym.Kind {
	case symtab.SymModule:
		table.Set(node, rir.TagGlobalID, sym.Index)
		return RoleModule
	case symtab.SymGlobal:
		table.Set(node, rir.TagGlobalID, sym.Index)
		a.visitDef(symtab.DefID(sym.Index))
		ref := a.Prog.Def(symtab.DefID(sym.Index))
		return a.globalRole(trees, ref)
	}
	return RoleInvalid
}

// globalRole reports whether a global definition is a type or a value
// without fully elaborating it (stage 3's job); only the AST tag at the
// definition site is needed to decide.
func (a *Analyzer) globalRole(trees []*ast.Tree, ref symtab.DefRef) Role {
	tree := trees[ref.File]
	switch tree.Get(ref.Node).Tag {
	case ast.TagStructDecl, ast.TagEnumDecl, ast.TagNewtypeDecl:
		return RoleType
	default:
		return RoleValue
	}
}

func (a *Analyzer) analyzeUnary(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node) Role {
	table := a.rirFor(file)
	operandRole := a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	switch n.A {
	case int32(ast.UnaryDeref):
		switch operandRole {
		case RoleType:
			table.Set(node, rir.TagPointerType, 0)
			return RoleType
		case RoleValue:
			table.Set(node, rir.TagDeref, 0)
			return RoleValue
		default:
			a.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrDerefOperandRole, Loc: a.locate(trees, file, node), Args: []any{"expression"}})
			return RoleInvalid
		}
	case int32(ast.UnaryAddr):
		switch operandRole {
		case RoleValue:
			table.Set(node, rir.TagAddressOf, 0)
			return RoleValue
		case RoleMultivalue:
			table.Set(node, rir.TagMultiAddress, 0)
			return RoleMultivalue
		default:
			a.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrAddrOperandRole, Loc: a.locate(trees, file, node), Args: []any{"expression"}})
			return RoleInvalid
		}
	default:
		return RoleValue
	}
}

func (a *Analyzer) analyzeAccess(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node) Role {
	table := a.rirFor(file)
	operandRole := a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	switch operandRole {
	case RoleModule:
		return a.resolveModuleMember(trees, file, tree, node, n)
	case RoleType:
		table.Set(node, rir.TagScopeAccess, n.A)
		return RoleValue
	case RoleValue:
		table.Set(node, rir.TagTypeAccess, n.A)
		return RoleValue
	default:
		a.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrAccessOperandRole, Loc: a.locate(trees, file, node), Args: []any{"expression"}})
		return RoleInvalid
	}
}

// resolveModuleMember finishes `module.Name`'s role-analysis (spec.md
// §4.2's "module ⇒ inline as GLOBAL_ID"): it looks Name up in the
// operand module's public scope (falling back to private for a
// NotePrivateDefinition diagnostic) and records THIS access node's RIR
// slot as the resolved global, not the operand's.
func (a *Analyzer) resolveModuleMember(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) Role {
	table := a.rirFor(file)
	operand := table.Get(ast.ID(n.B))
	mod := a.Prog.Module(symtab.ModuleID(operand.Data))
	name := a.Strings.Text(strtab.ID(n.A))
	if sym, ok := mod.Public[name]; ok {
		return a.resolveSymbol(trees, table, node, sym)
	}
	d := diagsink.Diagnostic{
		Kind: diagsink.ErrUndefinedName,
		Loc:  a.locate(trees, file, node),
		Args: []any{name},
	}
	if _, ok := mod.Private[name]; ok {
		d.Notes = append(d.Notes, diagsink.Diagnostic{Kind: diagsink.NotePrivateDefinition, Args: []any{name}})
	}
	a.Sink.Report(d)
	return RoleInvalid
}

func (a *Analyzer) analyzeCall(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node) Role {
	table := a.rirFor(file)
	calleeRole := a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	for _, arg := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
		a.analyzeNode(trees, file, tree, arg, scope)
	}
	switch calleeRole {
	case RoleType:
		table.Set(node, rir.TagConstructor, 0)
		return RoleValue
	case RoleValue:
		table.Set(node, rir.TagCall, 0)
		return RoleValue
	case RoleBuiltinMacro:
		calleeEntry := table.Get(ast.ID(n.B))
		table.Set(node, rir.TagMacroCall, calleeEntry.Data)
		return RoleValue
	default:
		a.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrCallOperandRole, Loc: a.locate(trees, file, node), Args: []any{"expression"}})
		return RoleInvalid
	}
}

func (a *Analyzer) analyzeIndex(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node) Role {
	table := a.rirFor(file)
	operandRole := a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	for _, idx := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
		a.analyzeNode(trees, file, tree, idx, scope)
	}
	switch operandRole {
	case RoleBuiltinMacro:
		calleeEntry := table.Get(ast.ID(n.B))
		table.Set(node, rir.TagMacroCall, calleeEntry.Data)
		return RoleValue
	case RoleTagType, RoleType:
		// RoleTagType covers `Size[T]`/`Alignment[T]`/`Affine[T]`;
		// RoleType covers a user generic struct's explicit `Name[Args...]`
		// instantiation (analyzeTaggedType in internal/elaborate handles
		// both the same way, keyed off the operand rather than this tag).
		table.Set(node, rir.TagTaggedType, 0)
		return RoleType
	case RoleValue, RoleMultivalue:
		table.Set(node, rir.TagIndexValue, 0)
		return RoleValue
	default:
		a.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrIndexOperandRole, Loc: a.locate(trees, file, node), Args: []any{"expression"}})
		return RoleInvalid
	}
}

func (a *Analyzer) analyzeSwitch(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node) Role {
	if n.B != int32(ast.NoID) {
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	}
	for _, arm := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
		a.analyzeNode(trees, file, tree, arm, pushScope(scope))
	}
	return RoleValue
}

func (a *Analyzer) analyzeBinding(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node) Role {
	table := a.rirFor(file)
	if n.B != int32(ast.NoID) {
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	}
	init := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
	a.analyzeNode(trees, file, tree, init, scope)

	name := a.Strings.Text(strtab.ID(n.A))
	mutable := n.Tag == ast.TagMut
	id := a.declareLocal(trees, file, scope, name, mutable, false, node)
	table.Set(node, rir.TagLocalID, int32(id))
	return RoleValue
}

func (a *Analyzer) analyzeParamLike(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, scope *localScope, n ast.Node, mutable bool) Role {
	table := a.rirFor(file)
	a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	name := a.Strings.Text(strtab.ID(n.A))
	id := a.declareLocal(trees, file, scope, name, mutable, false, node)
	table.Set(node, rir.TagLocalID, int32(id))
	return RoleValue
}

// analyzeFunctionDecl walks a function's type parameters, parameters,
// return type, and body in a fresh local scope, elevating the body's
// last expression statement to an implicit return when the function
// declares a return type (spec.md §4.2).
func (a *Analyzer) analyzeFunctionDecl(trees []*ast.Tree, file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) Role {
	table := a.rirFor(file)
	scope := pushScope(nil)
	children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	if len(children) == 0 {
		return RoleValue
	}
	body := children[len(children)-1]
	rest := children[:len(children)-1]
	for _, c := range rest {
		a.analyzeNode(trees, file, tree, c, scope)
	}
	if n.B != int32(ast.NoID) {
		a.analyzeNode(trees, file, tree, ast.ID(n.B), scope)
	}
	hasReturnType := n.B != int32(ast.NoID)

	bodyNode := tree.Get(body)
	if hasReturnType && bodyNode.Tag == ast.TagBlock {
		stmts := tree.ExtraSlice(bodyNode.ExtraStart, bodyNode.ExtraCount)
		if len(stmts) > 0 {
			last := stmts[len(stmts)-1]
			lastNode := tree.Get(last)
			if lastNode.Tag == ast.TagExprStmt {
				table.Set(last, rir.TagImplicitReturn, 0)
			}
		}
	}
	a.analyzeNode(trees, file, tree, body, scope)
	return RoleValue
}
