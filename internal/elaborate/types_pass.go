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
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/types"
)

// analyzeType is analyze_type(node) from spec.md §4.3's elaboration
// contract, read against the global Store (worker-local callers pass
// their own Store instead via analyzeTypeIn).
func (e *Elaborator) analyzeType(file symtab.FileID, tree *ast.Tree, node ast.ID) types.ID {
	return e.analyzeTypeIn(e.Types, file, tree, node)
}

func (e *Elaborator) analyzeTypeIn(store *types.Store, file symtab.FileID, tree *ast.Tree, node ast.ID) types.ID {
	if node == ast.NoID {
		return types.Void
	}
	table := e.rir(file)
	n := tree.Get(node)
	entry := table.Get(node)

	switch n.Tag {
	case ast.TagIdent:
		switch entry.Tag {
		case rir.TagLocalID:
			// Only a type parameter may occupy a type position among
			// locals; elaborateTypeParams pre-registers its TYPE_PARAMETER
			// type under its LocalID before the rest of the signature is
			// walked.
			if ty, ok := e.typeParamTypes[entry.Data]; ok {
				return ty
			}
			return types.Invalid
		case rir.TagGlobalID:
			did := symtab.DefID(entry.Data)
			e.elaborateGlobal(did)
			info := e.decls[did]
			if info == nil || (info.tag != ast.TagStructDecl && info.tag != ast.TagEnumDecl && info.tag != ast.TagNewtypeDecl) {
				e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrExpectedType, Loc: e.locate(file, node)})
				return types.Invalid
			}
			return info.typ
		case rir.TagBuiltinID:
			return e.builtinType(symtab.BuiltinID(entry.Data))
		}
		e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrExpectedType, Loc: e.locate(file, node)})
		return types.Invalid

	case ast.TagUnary:
		if n.A == int32(ast.UnaryDeref) {
			elem := e.analyzeTypeIn(store, file, tree, ast.ID(n.B))
			return store.NewPointer(elem, false)
		}
		return types.Invalid

	case ast.TagPointerType:
		elem := e.analyzeTypeIn(store, file, tree, ast.ID(n.B))
		return store.NewPointer(elem, n.A != 0)

	case ast.TagMultiPtrType:
		elem := e.analyzeTypeIn(store, file, tree, ast.ID(n.B))
		return store.NewMultiPointer(elem, n.A != 0)

	case ast.TagArrayType:
		elem := e.analyzeTypeIn(store, file, tree, ast.ID(n.B))
		lenExpr := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
		length := e.constIntValue(file, tree, lenExpr)
		lt := store.NewArrayLength(length)
		return store.NewArray(lt, elem)

	case ast.TagIndex:
		// Tagged-type application, e.g. `Size[i32]`, a user generic
		// struct instantiation, or the Affine[T] wrapper.
		return e.analyzeTaggedType(store, file, tree, node, n)

	case ast.TagAccess:
		// module.Name form: role already folded this into a GLOBAL_ID
		// identifier at the access node itself.
		did := symtab.DefID(entry.Data)
		e.elaborateGlobal(did)
		info := e.decls[did]
		if info == nil {
			return types.Invalid
		}
		return info.typ
	}
	e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrExpectedType, Loc: e.locate(file, node)})
	return types.Invalid
}

func (e *Elaborator) builtinType(id symtab.BuiltinID) types.ID {
	switch id {
	case symtab.BuiltinI8:
		return types.I8
	case symtab.BuiltinI16:
		return types.I16
	case symtab.BuiltinI32:
		return types.I32
	case symtab.BuiltinI64:
		return types.I64
	case symtab.BuiltinIsize:
		return types.Isize
	case symtab.BuiltinF32:
		return types.F32
	case symtab.BuiltinF64:
		return types.F64
	case symtab.BuiltinBool:
		return types.Bool
	case symtab.BuiltinByte:
		return types.Byte
	case symtab.BuiltinChar:
		return types.Char
	case symtab.BuiltinVoid:
		return types.Void
	}
	return types.Invalid
}

// analyzeTaggedType handles `Size[T]`, `Alignment[T]`, `Affine[T]`, and a
// user generic struct's `Name[Args...]` instantiation, all unified on
// the TAGGED representation (see internal/types/generics.go).
func (e *Elaborator) analyzeTaggedType(store *types.Store, file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) types.ID {
	base := ast.ID(n.B)
	baseEntry := e.rir(file).Get(base)
	args := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	argTypes := make([]types.ID, len(args))
	for i, a := range args {
		argTypes[i] = e.analyzeTypeIn(store, file, tree, a)
	}

	if baseEntry.Tag == rir.TagBuiltinID {
		bid := symtab.BuiltinID(baseEntry.Data)
		if (bid == symtab.BuiltinSizeTag || bid == symtab.BuiltinAlignTag) && len(argTypes) == 1 {
			return store.NewTagged(types.Invalid, types.Isize, argTypes)
		}
		if bid == symtab.BuiltinAffine && len(argTypes) == 1 {
			return store.NewLinear(argTypes[0])
		}
	}
	if baseEntry.Tag == rir.TagGlobalID {
		did := symtab.DefID(baseEntry.Data)
		e.elaborateGlobal(did)
		info := e.decls[did]
		if info != nil && info.tag == ast.TagStructDecl {
			return store.InstantiateGeneric(info.typ, argTypes, e.Target)
		}
	}
	e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrExpectedType, Loc: e.locate(file, node)})
	return types.Invalid
}

// constIntValue elaborates a constant-integer AST node (array lengths,
// enum explicit values) without needing a live TIR function — it folds
// literals and const references directly.
func (e *Elaborator) constIntValue(file symtab.FileID, tree *ast.Tree, node ast.ID) int64 {
	n := tree.Get(node)
	switch n.Tag {
	case ast.TagIntLit:
		return decodeIntLit(e.Strings.Text(strtab.ID(n.A)))
	case ast.TagIdent:
		entry := e.rir(file).Get(node)
		if entry.Tag == rir.TagGlobalID {
			did := symtab.DefID(entry.Data)
			e.elaborateGlobal(did)
			info := e.decls[did]
			if info != nil && info.tag == ast.TagConst {
				ent := e.Values.Get(info.value)
				return ent.Int
			}
		}
	}
	e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrNotConstantInitializer, Loc: e.locate(file, node)})
	return 0
}
