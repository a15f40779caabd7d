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

package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetClearTest(t *testing.T) {
	s := New(10)
	assert.False(t, s.Test(3))
	s.Set(3)
	assert.True(t, s.Test(3))
	s.Clear(3)
	assert.False(t, s.Test(3))
}

func TestSetGrowsPastInitialCapacity(t *testing.T) {
	s := New(1)
	s.Set(200)
	assert.True(t, s.Test(200))
	assert.False(t, s.Test(199))
}

func TestUnion(t *testing.T) {
	a := New(64)
	b := New(64)
	a.Set(1)
	b.Set(2)
	a.Union(b)
	assert.True(t, a.Test(1))
	assert.True(t, a.Test(2))
}

func TestIntersectKeepsOnlySharedBits(t *testing.T) {
	a := New(64)
	b := New(64)
	a.Set(1)
	a.Set(2)
	b.Set(2)
	a.Intersect(b)
	assert.False(t, a.Test(1))
	assert.True(t, a.Test(2))
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(64)
	a.Set(5)
	clone := a.Clone()
	clone.Set(6)
	assert.True(t, a.Test(5))
	assert.False(t, a.Test(6))
	assert.True(t, clone.Test(6))
}

func TestEqual(t *testing.T) {
	a := New(64)
	b := New(128)
	assert.True(t, a.Equal(b))
	a.Set(100)
	assert.False(t, a.Equal(b))
	b.Set(100)
	assert.True(t, a.Equal(b))
}

func TestAny(t *testing.T) {
	a := New(64)
	assert.False(t, a.Any())
	a.Set(30)
	assert.True(t, a.Any())
}
