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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/rir"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
	"github.com/Laia-Ortiga/jellyc/internal/symtab"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

func newTestFnCtx(t *testing.T) *fnCtx {
	t.Helper()
	tree := ast.NewTree(nil, "test")
	elab := &Elaborator{
		Sink:    diagsink.New(diagsink.Options{}),
		Trees:   []*ast.Tree{tree},
		Types:   types.NewGlobal(),
		Values:  values.NewGlobal(),
		Strings: strtab.New(),
		RIR:     map[symtab.FileID]*rir.Table{0: rir.New()},
	}
	return &fnCtx{
		e:         elab,
		file:      0,
		tree:      tree,
		store:     elab.Types.NewWorker(),
		vals:      elab.Values.NewWorker(),
		tirFn:     tir.NewFunction(),
		instValue: make(map[tir.ID]values.ID),
		locals:    make(map[int32]*localBinding),
	}
}

func testNode(fc *fnCtx) ast.ID {
	return fc.tree.Push(ast.Node{})
}

func TestConvertMutabilityWeakeningLowersToNop(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)

	mutPtr := fc.store.NewPointer(types.I32, true)
	immPtr := fc.store.NewPointer(types.I32, false)
	v := fc.vals.NewVariable(mutPtr, true, 0)

	result := fc.convert(v, immPtr, node)

	assert.False(t, fc.e.Sink.HasErrors())
	inst := fc.tirFn.Get(fc.producerInst(result))
	assert.Equal(t, tir.TagNop, inst.Tag, "mut-pointer-to-immutable weakening must lower to a NOP, not a cast")
	assert.Equal(t, immPtr, fc.typeOf(result))
}

func TestConvertMutSliceWeakeningLowersToNop(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)

	mutSlice := fc.store.NewMultiPointer(types.I32, true)
	immSlice := fc.store.NewMultiPointer(types.I32, false)
	v := fc.vals.NewVariable(mutSlice, true, 0)

	result := fc.convert(v, immSlice, node)

	assert.False(t, fc.e.Sink.HasErrors())
	inst := fc.tirFn.Get(fc.producerInst(result))
	assert.Equal(t, tir.TagNop, inst.Tag)
}

func TestConvertPointerErasureTargetsByteNotVoid(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)

	typed := fc.store.NewPointer(types.I32, false)
	bytePtr := fc.store.NewPointer(types.Byte, false)
	v := fc.vals.NewVariable(typed, false, 0)

	result := fc.convert(v, bytePtr, node)

	assert.False(t, fc.e.Sink.HasErrors(), "converting a typed pointer to *byte must succeed")
	inst := fc.tirFn.Get(fc.producerInst(result))
	assert.Equal(t, tir.TagPtrCast, inst.Tag)
	assert.Equal(t, bytePtr, fc.typeOf(result))
}

func TestConvertPointerToVoidIsNotAllowed(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)

	typed := fc.store.NewPointer(types.I32, false)
	voidPtr := fc.store.NewPointer(types.Void, false)
	v := fc.vals.NewVariable(typed, false, 0)

	fc.convert(v, voidPtr, node)

	assert.True(t, fc.e.Sink.HasErrors(), "a typed pointer converting to *void (never defined as a conversion target) must be rejected")
}

func TestConvertTaggedLayerStrippingStillWorks(t *testing.T) {
	fc := newTestFnCtx(t)
	node := testNode(fc)

	newtype := fc.store.NewNewtype(0, 0, types.I32)
	tagged := fc.store.NewTagged(newtype, types.I32, nil)
	v := fc.vals.NewVariable(tagged, false, 0)

	result := fc.convert(v, types.I32, node)

	assert.False(t, fc.e.Sink.HasErrors())
	inst := fc.tirFn.Get(fc.producerInst(result))
	assert.Equal(t, tir.TagNop, inst.Tag)
}
