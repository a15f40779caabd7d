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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugRendersReturnInstruction(t *testing.T) {
	fn := NewFunction()
	ret := fn.Push(Inst{Tag: TagReturn, Left: 7})
	fn.Entry = ret

	out := fn.Debug()
	assert.True(t, strings.Contains(out, "return t7"))
}

func TestDebugRendersBareReturnAsVoid(t *testing.T) {
	fn := NewFunction()
	ret := fn.Push(Inst{Tag: TagReturn})
	fn.Entry = ret

	out := fn.Debug()
	assert.True(t, strings.Contains(out, "return void"))
}

func TestDebugRendersIfWithExtraOperands(t *testing.T) {
	fn := NewFunction()
	thenLast := fn.Push(Inst{Tag: TagNop})
	start, count := fn.PushExtra(int32(thenLast), 0)
	ifInst := fn.Push(Inst{Tag: TagIf, Left: 3, ExtraStart: start, ExtraCount: count})
	fn.Entry = ifInst

	out := fn.Debug()
	assert.True(t, strings.Contains(out, "cond=t3"))
	assert.True(t, strings.Contains(out, "then=t"))
}

func TestTagNameFallsBackToQuestionMarkForUnknownTag(t *testing.T) {
	assert.Equal(t, "?", tagName(Tag(255)))
}
