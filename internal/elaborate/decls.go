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
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// withTypeParams runs fn with e.typeParamTypes populated from the
// TagTypeParam children found among nodes, returning the count declared
// (spec.md §4.3 "Generics"). Callers restore the outer map themselves is
// unnecessary since generic headers never nest.
func (e *Elaborator) withTypeParams(file symtab.FileID, tree *ast.Tree, nodes []ast.ID) int32 {
	e.typeParamTypes = make(map[int32]types.ID)
	var count int32
	for _, c := range nodes {
		cn := tree.Get(c)
		if cn.Tag != ast.TagTypeParam {
			continue
		}
		localID := e.rir(file).Get(c).Data
		e.typeParamTypes[localID] = e.Types.NewTypeParameter(count, strtab.ID(cn.A))
		count++
	}
	return count
}

func (e *Elaborator) elaborateStruct(file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) types.ID {
	children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	typeParamCount := e.withTypeParams(file, tree, children)

	id := e.Types.NewStruct(int32(node), strtab.ID(n.A), typeParamCount)

	var fields []types.ID
	var fieldNames []strtab.ID
	for _, c := range children {
		cn := tree.Get(c)
		if cn.Tag != ast.TagField {
			continue
		}
		fields = append(fields, e.analyzeType(file, tree, ast.ID(cn.B)))
		fieldNames = append(fieldNames, strtab.ID(cn.A))
	}
	if len(fields) == 0 {
		e.Sink.Report(diagsink.Diagnostic{
			Kind: diagsink.ErrEmptyStruct, Loc: e.locate(file, node),
			Args: []any{e.Strings.Text(strtab.ID(n.A))},
		})
	}
	isLinear := false
	for _, f := range fields {
		if e.Types.IsLinear(f) {
			isLinear = true
			break
		}
	}
	size, align := e.Types.LayoutStruct(fields, e.Target)
	e.Types.SetStructFields(id, fields, size, align, isLinear)
	e.structFieldName[int32(node)] = fieldNames
	return id
}

func (e *Elaborator) elaborateEnum(file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) types.ID {
	repr := types.I32
	if n.B != int32(ast.NoID) {
		repr = e.analyzeType(file, tree, ast.ID(n.B))
		if !types.IsInt(repr) {
			e.Sink.Report(diagsink.Diagnostic{Kind: diagsink.ErrEnumReprNotInteger, Loc: e.locate(file, node)})
		}
	}
	id := e.Types.NewEnum(int32(node), strtab.ID(n.A), repr)

	members := make(map[string]enumConst)
	next := int64(0)
	for i, m := range tree.ExtraSlice(n.ExtraStart, n.ExtraCount) {
		mn := tree.Get(m)
		val := next
		if mn.B != int32(ast.NoID) {
			val = e.constIntValue(file, tree, ast.ID(mn.B))
		}
		next = val + 1
		members[e.Strings.Text(strtab.ID(mn.A))] = enumConst{value: val, index: i}
	}
	e.enumMembers[id] = members
	return id
}

func (e *Elaborator) elaborateNewtype(file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) types.ID {
	underlying := e.analyzeType(file, tree, ast.ID(n.B))
	extra := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	var arity int64
	if len(extra) > 0 {
		arity = e.constIntValue(file, tree, extra[0])
	}
	return e.Types.NewNewtype(strtab.ID(n.A), int32(arity), underlying)
}

func (e *Elaborator) elaborateExternFunction(file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) values.ID {
	children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	var params []types.ID
	for _, c := range children {
		cn := tree.Get(c)
		if cn.Tag == ast.TagParam {
			params = append(params, e.analyzeType(file, tree, ast.ID(cn.B)))
		}
	}
	ret := e.analyzeType(file, tree, ast.ID(n.B))
	fnType := e.Types.NewFunction(0, params, ret)
	return e.Values.NewExternFunction(fnType, strtab.ID(n.A))
}

func (e *Elaborator) elaborateExternVar(file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) values.ID {
	ty := e.analyzeType(file, tree, ast.ID(n.B))
	return e.Values.NewExternVar(ty, strtab.ID(n.A))
}

func (e *Elaborator) elaborateConst(file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) values.ID {
	var hint types.ID
	if n.B != int32(ast.NoID) {
		hint = e.analyzeType(file, tree, ast.ID(n.B))
	}
	init := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)[0]
	return e.foldConstExpr(file, tree, init, hint)
}

// elaborateFunctionSignature resolves a function's type, registers its
// value, and stashes everything ElaborateFunctionBody needs to finish the
// body later — possibly from a different worker goroutine once every
// global signature (this one included) is resolved (spec.md §5).
func (e *Elaborator) elaborateFunctionSignature(id symtab.DefID, file symtab.FileID, tree *ast.Tree, node ast.ID, n ast.Node) *FunctionResult {
	children := tree.ExtraSlice(n.ExtraStart, n.ExtraCount)
	if len(children) == 0 {
		fr := &FunctionResult{Def: id, Name: e.Strings.Text(strtab.ID(n.A))}
		return fr
	}
	body := children[len(children)-1]
	rest := children[:len(children)-1]

	typeParamCount := e.withTypeParams(file, tree, rest)

	var params []types.ID
	var paramLocalIDs []int32
	for _, c := range rest {
		cn := tree.Get(c)
		if cn.Tag != ast.TagParam {
			continue
		}
		params = append(params, e.analyzeType(file, tree, ast.ID(cn.B)))
		paramLocalIDs = append(paramLocalIDs, e.rir(file).Get(c).Data)
	}
	ret := e.analyzeType(file, tree, ast.ID(n.B))
	fnType := e.Types.NewFunction(typeParamCount, params, ret)

	name := e.Strings.Text(strtab.ID(n.A))
	val := e.Values.NewFunction(fnType, strtab.ID(n.A))
	fr := &FunctionResult{Def: id, Name: name, Value: val, Type: fnType}

	typeParams := e.typeParamTypes
	e.pending[id] = &pendingBody{
		file: file, tree: tree, bodyNode: body,
		params: params, paramLocalIDs: paramLocalIDs, retType: ret,
		typeParamTypes: typeParams, result: fr,
	}
	return fr
}
