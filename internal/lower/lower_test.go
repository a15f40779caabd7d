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

package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laia-Ortiga/jellyc/internal/mir"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

// buildReturnConstant builds `fn answer() i32 { return 42; }`.
func buildReturnConstant(vals *values.Table) (*tir.Function, values.ID) {
	fn := tir.NewFunction()
	fn.LocalCount = 0

	constVal := vals.NewIntConstant(types.I32, 42)
	ret := fn.Push(tir.Inst{Tag: tir.TagReturn, Left: int32(constVal)})
	fn.Entry = ret
	return fn, constVal
}

func TestFunctionLowersBareReturn(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()
	fn, _ := buildReturnConstant(vals)

	prog := mir.NewProgram()
	mfn := Function(prog, types.Target64, store, vals, fn, nil, "answer", nil, types.I32)

	require.NotNil(t, mfn)
	assert.Equal(t, "answer", mfn.Name)
	assert.Len(t, mfn.Blocks, 1, "a function with no branches lowers to a single block")

	var sawRet bool
	for id := mfn.Start; id < mfn.End; id++ {
		if prog.Get(id).Tag == mir.TagRet {
			sawRet = true
		}
	}
	assert.True(t, sawRet, "expected a TagRet terminator in the lowered stream")
}

func TestFunctionAppendsImplicitRetVoidForVoidBody(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 1
	fn.LocalNames = []string{"x"}
	constVal := vals.NewIntConstant(types.I32, 1)
	letStmt := fn.Push(tir.Inst{Tag: tir.TagLet, Left: int32(constVal), Right: 0})
	fn.Entry = letStmt

	prog := mir.NewProgram()
	mfn := Function(prog, types.Target64, store, vals, fn, nil, "sideeffect", nil, types.Void)

	last := prog.Get(mfn.End - 1)
	assert.Equal(t, mir.TagRetVoid, last.Tag, "a body that falls off the end without a return must get an implicit ret_void")
}

func TestFunctionAllocatesOneSlotPerLocal(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 2
	fn.LocalNames = []string{"a", "b"}
	c1 := vals.NewIntConstant(types.I32, 1)
	c2 := vals.NewIntConstant(types.I32, 2)
	let1 := fn.Push(tir.Inst{Tag: tir.TagLet, Left: int32(c1), Right: 0})
	let2 := fn.Push(tir.Inst{Tag: tir.TagLet, Left: int32(c2), Right: 1, Prev: let1})
	fn.Entry = let2

	prog := mir.NewProgram()
	mfn := Function(prog, types.Target64, store, vals, fn, nil, "twoLocals", nil, types.Void)

	assert.Len(t, mfn.LocalTypes, 2)
	allocCount := 0
	for id := mfn.Start; id < mfn.End; id++ {
		if prog.Get(id).Tag == mir.TagAlloc {
			allocCount++
		}
	}
	assert.Equal(t, 2, allocCount)
}

func TestFunctionLowersParameters(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 1
	fn.LocalNames = []string{"x"}
	ret := fn.Push(tir.Inst{Tag: tir.TagReturn, Left: 0})
	fn.Entry = ret

	prog := mir.NewProgram()
	mfn := Function(prog, types.Target64, store, vals, fn, nil, "identity", []types.ID{types.I32}, types.Void)

	var sawParam bool
	for id := mfn.Start; id < mfn.End; id++ {
		if prog.Get(id).Tag == mir.TagParam {
			sawParam = true
		}
	}
	assert.True(t, sawParam, "a non-empty paramTypes slice must emit a TagParam per parameter")
}
