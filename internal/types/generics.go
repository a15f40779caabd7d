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

package types

// MatchTypeParameters implements spec.md §4.3's match_type_parameters:
// it walks param and arg in parallel, pinning each TYPE_PARAMETER it
// finds in param to the concrete type occupying the same position in
// arg. results is indexed by type-parameter index and must be
// pre-sized to the generic's type-parameter count (unfilled slots hold
// Invalid). Returns false on the first structural mismatch or a
// parameter pinned to two different concrete types.
func (s *Store) MatchTypeParameters(results []ID, param, arg ID) bool {
	if IsPrimitive(param) {
		return param == arg
	}
	pe := s.Get(param)
	if pe.Tag == TagTypeParameter {
		idx := pe.ParamIndex
		if results[idx] == Invalid {
			results[idx] = arg
			return true
		}
		return results[idx] == arg
	}
	if IsPrimitive(arg) {
		return false
	}
	ae := s.Get(arg)
	if pe.Tag != ae.Tag {
		return false
	}
	switch pe.Tag {
	case TagArray:
		return s.MatchTypeParameters(results, pe.LengthType, ae.LengthType) &&
			s.MatchTypeParameters(results, pe.Elem, ae.Elem)
	case TagArrayLength:
		return pe.Length == ae.Length
	case TagPtr, TagPtrMut, TagMultiPtr, TagMultiPtrMut, TagLinear:
		return s.MatchTypeParameters(results, pe.Elem, ae.Elem)
	case TagFunction:
		if len(pe.Params) != len(ae.Params) {
			return false
		}
		for i := range pe.Params {
			if !s.MatchTypeParameters(results, pe.Params[i], ae.Params[i]) {
				return false
			}
		}
		return s.MatchTypeParameters(results, pe.Ret, ae.Ret)
	case TagTagged:
		if pe.Newtype != ae.Newtype || len(pe.Args) != len(ae.Args) {
			return false
		}
		for i := range pe.Args {
			if !s.MatchTypeParameters(results, pe.Args[i], ae.Args[i]) {
				return false
			}
		}
		return true
	default:
		// Nominal types (struct/enum/newtype) carry no further structure
		// to unify against; they must be the identical declaration.
		return param == arg
	}
}

// ReplaceTypeParameters substitutes each TYPE_PARAMETER(i) appearing
// inside generic with args[i], rebuilding structural types as needed
// (spec.md §4.3's replace_type_parameters). Nominal types with no type
// parameters of their own pass through unchanged.
func (s *Store) ReplaceTypeParameters(args []ID, generic ID) ID {
	if IsPrimitive(generic) {
		return generic
	}
	e := s.Get(generic)
	switch e.Tag {
	case TagTypeParameter:
		if int(e.ParamIndex) < len(args) {
			return args[e.ParamIndex]
		}
		return generic
	case TagArray:
		return s.NewArray(s.ReplaceTypeParameters(args, e.LengthType), s.ReplaceTypeParameters(args, e.Elem))
	case TagPtr:
		return s.NewPointer(s.ReplaceTypeParameters(args, e.Elem), false)
	case TagPtrMut:
		return s.NewPointer(s.ReplaceTypeParameters(args, e.Elem), true)
	case TagMultiPtr:
		return s.NewMultiPointer(s.ReplaceTypeParameters(args, e.Elem), false)
	case TagMultiPtrMut:
		return s.NewMultiPointer(s.ReplaceTypeParameters(args, e.Elem), true)
	case TagLinear:
		return s.NewLinear(s.ReplaceTypeParameters(args, e.Elem))
	case TagFunction:
		params := make([]ID, len(e.Params))
		for i, p := range e.Params {
			params[i] = s.ReplaceTypeParameters(args, p)
		}
		return s.NewFunction(0, params, s.ReplaceTypeParameters(args, e.Ret))
	case TagTagged:
		newArgs := make([]ID, len(e.Args))
		for i, a := range e.Args {
			newArgs[i] = s.ReplaceTypeParameters(args, a)
		}
		inner := s.ReplaceTypeParameters(args, e.Inner)
		return s.NewTagged(e.Newtype, inner, newArgs)
	default:
		return generic
	}
}

// InstantiateGeneric builds (or retrieves, if already instantiated with
// the same arguments) the TAGGED type representing genericStruct with
// its type parameters substituted by args. The TAGGED wrapper is
// interned by (genericStruct, args), so the same arguments yield the same
// id; the substituted struct and its size/alignment are rebuilt on every
// call, and the id keeps the first one built. This mirrors how `Size[T]`/`Alignment[T]`/`Affine[T]` already
// reuse TAGGED (spec.md's TAGGED payload doc: "instantiated generic /
// decorated newtype").
func (s *Store) InstantiateGeneric(genericStruct ID, args []ID, target Target) ID {
	fields := s.Get(genericStruct).Fields
	concreteFields := make([]ID, len(fields))
	for i, f := range fields {
		concreteFields[i] = s.ReplaceTypeParameters(args, f)
	}
	inner := s.NewStruct(s.Get(genericStruct).Scope, s.Get(genericStruct).Name, 0)
	size, align := s.LayoutStruct(concreteFields, target)
	isLinear := false
	for _, f := range concreteFields {
		if s.IsLinear(f) {
			isLinear = true
			break
		}
	}
	s.SetStructFields(inner, concreteFields, size, align, isLinear)
	return s.NewTagged(genericStruct, inner, args)
}
