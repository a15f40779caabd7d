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

package values

import "encoding/binary"

// StringTable is the byte-encoded string constant pool from spec.md §6:
// each entry is a contiguous region with a 4-byte little-endian length
// prefix, the raw bytes, and a trailing NUL (for the convenience of text
// emitters that want a C string without re-deriving the length).
type StringTable struct {
	buf    []byte
	offset map[string]int32
}

// NewStringTable creates an empty StringTable.
func NewStringTable() *StringTable {
	return &StringTable{offset: make(map[string]int32)}
}

// Intern appends s's encoded form (deduplicated) and returns the byte
// offset of its region, i.e. the offset a VariantString value's
// StringOffset field stores.
func (st *StringTable) Intern(s string) int32 {
	if off, ok := st.offset[s]; ok {
		return off
	}
	off := int32(len(st.buf))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	st.buf = append(st.buf, lenBuf[:]...)
	st.buf = append(st.buf, s...)
	st.buf = append(st.buf, 0)
	st.offset[s] = off
	return off
}

// Len returns the length encoded at offset off, without needing to
// re-decode the raw bytes.
func (st *StringTable) Len(off int32) int32 {
	return int32(binary.LittleEndian.Uint32(st.buf[off : off+4]))
}

// Bytes returns the decoded text at offset off (excluding the length
// prefix and trailing NUL).
func (st *StringTable) Bytes(off int32) []byte {
	n := st.Len(off)
	return st.buf[off+4 : off+4+n]
}

// Raw exposes the full encoded buffer, for code generation to embed
// verbatim.
func (st *StringTable) Raw() []byte { return st.buf }

// Unescape decodes the escape sequences spec.md §6 recognizes in parsed
// string literals: \n \t \\ \' \" \xHH.
func Unescape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			out = append(out, c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		case '\'':
			out = append(out, '\'')
		case '"':
			out = append(out, '"')
		case 'x':
			if i+2 < len(s) {
				hi := hexDigit(s[i+1])
				lo := hexDigit(s[i+2])
				out = append(out, byte(hi<<4|lo))
				i += 2
			}
		default:
			out = append(out, '\\', s[i])
		}
	}
	return string(out)
}

func hexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
