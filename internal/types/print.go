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

import (
	"fmt"
	"strings"

	"github.com/Laia-Ortiga/jellyc/internal/strtab"
)

var primitiveNames = map[ID]string{
	Void: "void", I8: "i8", I16: "i16", I32: "i32", I64: "i64", Isize: "isize",
	F32: "f32", F64: "f64", Bool: "bool", Byte: "byte", Char: "char",
	SizeTag: "Size", AlignmentTag: "Alignment", Invalid: "<invalid>",
}

// String renders id for debug output and diagnostic messages, supplying
// the debug-printer surface the original carries in print.c (spec.md's
// "Supplemented features" #1) without literally porting its C.
func (s *Store) String(id ID, tab *strtab.Table) string {
	if IsPrimitive(id) {
		if name, ok := primitiveNames[id]; ok {
			return name
		}
		return "<invalid>"
	}
	e := s.Get(id)
	switch e.Tag {
	case TagArray:
		return fmt.Sprintf("%s[%d]", s.String(e.Elem, tab), s.ArrayLength(id))
	case TagArrayLength:
		return fmt.Sprintf("%d", e.Length)
	case TagPtr:
		return "*" + s.String(e.Elem, tab)
	case TagPtrMut:
		return "*mut " + s.String(e.Elem, tab)
	case TagMultiPtr:
		return "@" + s.String(e.Elem, tab)
	case TagMultiPtrMut:
		return "@mut " + s.String(e.Elem, tab)
	case TagFunction:
		parts := make([]string, len(e.Params))
		for i, p := range e.Params {
			parts[i] = s.String(p, tab)
		}
		return fmt.Sprintf("function(%s) -> %s", strings.Join(parts, ", "), s.String(e.Ret, tab))
	case TagStruct:
		return tab.Text(e.Name)
	case TagEnum:
		return tab.Text(e.Name)
	case TagNewtype:
		return tab.Text(e.Name)
	case TagTagged:
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = s.String(a, tab)
		}
		return fmt.Sprintf("%s[%s]", s.String(e.Newtype, tab), strings.Join(parts, ", "))
	case TagLinear:
		return "Affine[" + s.String(e.Elem, tab) + "]"
	case TagTypeParameter:
		return tab.Text(e.Name)
	}
	return "<invalid>"
}
