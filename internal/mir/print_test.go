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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Laia-Ortiga/jellyc/internal/types"
)

func TestDebugRendersOneLinePerInstructionAndBlock(t *testing.T) {
	prog := NewProgram()
	fn := prog.StartFunction("main", nil, types.Void)
	prog.Push(Inst{Tag: TagInt, A: 1})
	prog.Push(Inst{Tag: TagRetVoid})
	fn.Blocks = []ID{fn.Start}
	prog.FinishFunction(fn)

	out := prog.Debug(fn)
	assert.True(t, strings.Contains(out, "func main"))
	assert.True(t, strings.Contains(out, "block0:"))
	assert.True(t, strings.Contains(out, "ret_void"))
}

func TestDebugRendersCallWithArgs(t *testing.T) {
	prog := NewProgram()
	fn := prog.StartFunction("caller", nil, types.Void)
	arg := prog.Push(Inst{Tag: TagInt, A: 5})
	start, count := prog.PushExtra(int32(arg))
	prog.Push(Inst{Tag: TagCall, A: int32(arg), ExtraStart: start, ExtraCount: count})
	fn.Blocks = []ID{fn.Start}
	prog.FinishFunction(fn)

	out := prog.Debug(fn)
	assert.True(t, strings.Contains(out, "call m"))
}
