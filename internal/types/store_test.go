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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPointerInternsStructurallyEqualTypes(t *testing.T) {
	g := NewGlobal()
	a := g.NewPointer(I32, false)
	b := g.NewPointer(I32, false)
	assert.Equal(t, a, b, "two *i32 pointers must intern to the same id")
}

func TestNewPointerDistinguishesMutability(t *testing.T) {
	g := NewGlobal()
	imm := g.NewPointer(I32, false)
	mut := g.NewPointer(I32, true)
	assert.NotEqual(t, imm, mut)
}

func TestWorkerInternsAgainstGlobal(t *testing.T) {
	g := NewGlobal()
	global := g.NewPointer(Bool, false)

	w := g.NewWorker()
	local := w.NewPointer(Bool, false)

	assert.Equal(t, global, local, "a worker probing for an existing global type must reuse it, not allocate a local duplicate")
}

func TestWorkerAllocatesLocalIDForNovelType(t *testing.T) {
	g := NewGlobal()
	w := g.NewWorker()

	id := w.NewPointer(I32, true)
	assert.True(t, id.IsLocal(), "a type never seen by the global store must get a local id")

	again := w.NewPointer(I32, true)
	assert.Equal(t, id, again, "the same worker interning the same shape twice must return the same id")
}

func TestStructAndEnumAreNeverDeduplicated(t *testing.T) {
	g := NewGlobal()
	a := g.NewStruct(0, 1, 0)
	b := g.NewStruct(0, 1, 0)
	assert.NotEqual(t, a, b, "nominal types allocate fresh even with identical fields")
	c := g.NewEnum(0, 1, I32)
	d := g.NewEnum(0, 1, I32)
	assert.NotEqual(t, c, d, "nominal types allocate fresh even with an identical representation")
}

func TestGenericFunctionTypeNeverDeduplicated(t *testing.T) {
	g := NewGlobal()
	a := g.NewFunction(1, []ID{I32}, Bool)
	b := g.NewFunction(1, []ID{I32}, Bool)
	assert.NotEqual(t, a, b, "a generic function type carries its own type parameters and is never shared")
}

func TestNonGenericFunctionTypeIsInterned(t *testing.T) {
	g := NewGlobal()
	a := g.NewFunction(0, []ID{I32, Bool}, Void)
	b := g.NewFunction(0, []ID{I32, Bool}, Void)
	assert.Equal(t, a, b)
}
