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
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// analyzeAccessValue elaborates `x.name`, dispatching on the refined
// role role analysis gave the operand: a struct field read (TagTypeAccess)
// or an enum member reference (TagScopeAccess).
func (fc *fnCtx) analyzeAccessValue(node ast.ID, n ast.Node, entry rir.Entry) values.ID {
	operand := ast.ID(n.B)
	switch entry.Tag {
	case rir.TagTypeAccess:
		v := fc.analyzeValue(operand, types.Invalid)
		ty := fc.typeOf(v)
		structTy := ty
		if fc.store.TagOf(ty) == types.TagTagged {
			structTy = fc.store.StripTagged(ty)
		}
		if fc.store.TagOf(structTy) != types.TagStruct {
			fc.reportf(diagsink.ErrAccessOperandRole, node, fc.typeString(ty))
			return values.ErrorValue
		}
		name := fc.strText(strtab.ID(entry.Data))
		idx, fieldTy, ok := fc.fieldIndex(structTy, name)
		if !ok {
			fc.reportf(diagsink.ErrUnknownField, node, name)
			return values.ErrorValue
		}
		return fc.pushExpr(tir.Inst{Tag: tir.TagField, AST: node, Left: int32(v), Right: idx}, fieldTy, fc.catOf(v))

	case rir.TagScopeAccess:
		ty := fc.analyzeType(operand)
		name := fc.strText(strtab.ID(entry.Data))
		if m, ok := fc.e.enumMembers[ty][name]; ok {
			return fc.vals.NewIntConstant(ty, m.value)
		}
		fc.reportf(diagsink.ErrUnknownField, node, name)
		return values.ErrorValue
	}
	fc.reportf(diagsink.ErrAccessOperandRole, node, "expression")
	return values.ErrorValue
}

// analyzeInferredAccess elaborates the `.Name` shorthand (an enum member
// reference whose enum is inferred from the surrounding hint, e.g. an
// assignment's lhs type), spec.md §4.3's "inferred access".
func (fc *fnCtx) analyzeInferredAccess(node ast.ID, entry rir.Entry, hint types.ID) values.ID {
	name := fc.strText(strtab.ID(entry.Data))
	if hint == types.Invalid {
		fc.reportf(diagsink.ErrCannotInferType, node)
		return values.ErrorValue
	}
	enumTy := hint
	if fc.store.TagOf(hint) == types.TagTagged {
		enumTy = fc.store.StripTagged(hint)
	}
	if fc.store.TagOf(enumTy) != types.TagEnum {
		fc.reportf(diagsink.ErrCannotInferType, node)
		return values.ErrorValue
	}
	if m, ok := fc.e.enumMembers[enumTy][name]; ok {
		return fc.vals.NewIntConstant(enumTy, m.value)
	}
	fc.reportf(diagsink.ErrUnknownField, node, name)
	return values.ErrorValue
}

// fieldIndex looks up name among structTy's fields. Field names are
// keyed by the struct's declaration-site Scope, not by structTy itself,
// so a monomorphized instantiation (which allocates a fresh types.ID,
// see types.Store.InstantiateGeneric) still finds its generic
// declaration's field names.
func (fc *fnCtx) fieldIndex(structTy types.ID, name string) (int32, types.ID, bool) {
	e := fc.store.Get(structTy)
	names := fc.e.structFieldName[e.Scope]
	for i, nid := range names {
		if i >= len(e.Fields) {
			break
		}
		if fc.strText(nid) == name {
			return int32(i), e.Fields[i], true
		}
	}
	return 0, types.Invalid, false
}
