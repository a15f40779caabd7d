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

package mir

import (
	"fmt"
	"strings"
)

var tagNames = map[Tag]string{
	TagInvalid: "invalid",
	TagAlloc:   "alloc", TagParam: "param", TagInt: "int", TagFloat: "float",
	TagString: "string", TagNull: "null", TagTirValue: "tirvalue",
	TagAddress: "address", TagDeref: "deref", TagAssign: "assign",
	TagNewSlice: "newslice",
	TagAdd: "add", TagSub: "sub", TagMul: "mul", TagDiv: "div", TagRem: "rem",
	TagBitAnd: "bitand", TagBitOr: "bitor", TagBitXor: "bitxor",
	TagShl: "shl", TagShr: "shr",
	TagEq: "eq", TagNe: "ne", TagLt: "lt", TagLe: "le", TagGt: "gt", TagGe: "ge",
	TagItof: "itof", TagFtoi: "ftoi", TagSext: "sext", TagZext: "zext",
	TagItrunc: "itrunc", TagFtrunc: "ftrunc", TagFext: "fext",
	TagPtrCast: "ptrcast", TagArrayToSlice: "array_to_slice",
	TagCall: "call", TagIndex: "index", TagSliceIndex: "slice_index",
	TagConstIndex: "const_index", TagAccess: "access",
	TagBr: "br", TagBrIf: "br_if", TagBrIfNot: "br_if_not",
	TagRet: "ret", TagRetVoid: "ret_void",
}

// Debug renders fn's instruction range as greppable text: one line per
// block, one line per instruction, mirroring the original's print.c
// dump format without literally reproducing its layout (spec.md's
// "Supplemented features" #1).
func (p *Program) Debug(fn *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s\n", fn.Name)
	for blockIdx, start := range fn.Blocks {
		end := fn.End
		if blockIdx+1 < len(fn.Blocks) {
			end = fn.Blocks[blockIdx+1]
		}
		fmt.Fprintf(&b, "  block%d:\n", blockIdx)
		for id := start; id < end; id++ {
			b.WriteString("    ")
			b.WriteString(p.debugInst(id))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (p *Program) debugInst(id ID) string {
	inst := p.Get(id)
	name := tagNames[inst.Tag]
	if name == "" {
		name = "?"
	}
	switch inst.Tag {
	case TagBr:
		return fmt.Sprintf("m%d = br block%d", id, inst.A)
	case TagBrIf:
		return fmt.Sprintf("m%d = br_if m%d, block%d, block%d", id, inst.A, inst.B, inst.C)
	case TagBrIfNot:
		return fmt.Sprintf("m%d = br_if_not m%d, block%d, block%d", id, inst.A, inst.B, inst.C)
	case TagRet:
		return fmt.Sprintf("m%d = ret m%d", id, inst.A)
	case TagRetVoid:
		return fmt.Sprintf("m%d = ret_void", id)
	case TagCall:
		args := p.ExtraSlice(inst.ExtraStart, inst.ExtraCount)
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprintf("m%d", a)
		}
		return fmt.Sprintf("m%d = call m%d(%s)", id, inst.A, strings.Join(parts, ", "))
	case TagAlloc, TagParam, TagInt, TagString:
		return fmt.Sprintf("m%d = %s %d", id, name, inst.A)
	case TagAssign:
		return fmt.Sprintf("m%d = assign m%d, m%d", id, inst.A, inst.B)
	}
	if inst.B != 0 || inst.A != 0 {
		return fmt.Sprintf("m%d = %s m%d, m%d", id, name, inst.A, inst.B)
	}
	return fmt.Sprintf("m%d = %s m%d", id, name, inst.A)
}
