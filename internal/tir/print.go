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

package tir

import (
	"fmt"
	"strings"
)

var tagNames = [...]string{
	TagInvalid: "invalid",
	TagAdd:     "add", TagSub: "sub", TagMul: "mul", TagDiv: "div", TagRem: "rem",
	TagBitAnd: "bitand", TagBitOr: "bitor", TagBitXor: "bitxor",
	TagShl: "shl", TagShr: "shr",
	TagEq: "eq", TagNe: "ne", TagLt: "lt", TagLe: "le", TagGt: "gt", TagGe: "ge",
	TagAssign:             "assign",
	TagAddress:            "address",
	TagAddressOfTemporary: "address_of_temp",
	TagDeref:              "deref",
	TagItof:               "itof", TagFtoi: "ftoi", TagSext: "sext", TagZext: "zext",
	TagItrunc: "itrunc", TagFtrunc: "ftrunc", TagFext: "fext",
	TagPtrCast: "ptrcast", TagArrayToSlice: "array_to_slice", TagNop: "nop",
	TagCall: "call", TagIndex: "index", TagSlice: "slice", TagField: "field",
	TagStructLit: "struct_lit", TagArrayLit: "array_lit",
	TagIf: "if", TagLoop: "loop", TagSwitch: "switch", TagSwitchArm: "switch_arm",
	TagBreak: "break", TagContinue: "continue", TagReturn: "return",
	TagLet: "let", TagMut: "mut", TagFunction: "function",
}

func tagName(t Tag) string {
	if int(t) < len(tagNames) && tagNames[t] != "" {
		return tagNames[t]
	}
	return "?"
}

// Debug renders fn's instruction stream as greppable text, one line per
// instruction in storage order with its tag and payload fields resolved,
// the way internal/types' Store.String renders a type id (spec.md's
// "Supplemented features" #1). It does not attempt to reconstruct
// surface syntax; it's a dump, not a pretty-printer.
func (f *Function) Debug() string {
	var b strings.Builder
	fmt.Fprintf(&b, "function locals=%d entry=t%d\n", f.LocalCount, f.Entry)
	for id := ID(1); int(id) < len(f.Insts); id++ {
		b.WriteString("  ")
		b.WriteString(f.debugInst(id))
		b.WriteByte('\n')
	}
	return b.String()
}

func (f *Function) debugInst(id ID) string {
	inst := f.Get(id)
	name := tagName(inst.Tag)
	line := fmt.Sprintf("t%d = %s", id, name)
	switch inst.Tag {
	case TagLet, TagMut:
		line += fmt.Sprintf(" local%d, t%d", inst.Right, inst.Left)
	case TagField:
		line += fmt.Sprintf(" t%d, #%d", inst.Left, inst.Right)
	case TagAssign:
		if inst.Op != 0 {
			line += fmt.Sprintf(" t%d, t%d, op=%d", inst.Left, inst.Right, inst.Op)
		} else {
			line += fmt.Sprintf(" t%d, t%d", inst.Left, inst.Right)
		}
	case TagIf:
		extra := f.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		line += fmt.Sprintf(" cond=t%d then=t%d else=t%d", inst.Left, extra[0], extra[1])
	case TagLoop:
		extra := f.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		line += fmt.Sprintf(" cond=t%d body=t%d step=t%d", extra[0], extra[1], extra[2])
	case TagSwitch:
		arms := f.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		parts := make([]string, len(arms))
		for i, a := range arms {
			parts[i] = fmt.Sprintf("t%d", a)
		}
		line += fmt.Sprintf(" discr=t%d arms=[%s]", inst.Left, strings.Join(parts, ", "))
	case TagSwitchArm:
		line += fmt.Sprintf(" pattern=t%d value=t%d body=t%d", inst.Left, inst.Right, inst.Op)
	case TagReturn:
		if inst.Left == 0 {
			line += " void"
		} else {
			line += fmt.Sprintf(" t%d", inst.Left)
		}
	case TagCall, TagStructLit, TagArrayLit:
		extra := f.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		parts := make([]string, len(extra))
		for i, a := range extra {
			parts[i] = fmt.Sprintf("t%d", a)
		}
		if inst.Tag == TagCall {
			line += fmt.Sprintf(" callee=t%d args=[%s]", inst.Left, strings.Join(parts, ", "))
		} else {
			line += fmt.Sprintf(" [%s]", strings.Join(parts, ", "))
		}
	case TagSlice:
		extra := f.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		line += fmt.Sprintf(" t%d, lo=t%d, hi=t%d", inst.Left, extra[0], extra[1])
	case TagBreak, TagContinue, TagNop, TagInvalid:
	default:
		if inst.Right != 0 {
			line += fmt.Sprintf(" t%d, t%d", inst.Left, inst.Right)
		} else if inst.Left != 0 {
			line += fmt.Sprintf(" t%d", inst.Left)
		}
	}
	return line
}
