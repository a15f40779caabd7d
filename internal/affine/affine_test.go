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

package affine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/tir"
	"github.com/Laia-Ortiga/jellyc/internal/types"
	"github.com/Laia-Ortiga/jellyc/internal/values"
)

func noLocate(ast.ID) source.Location { return source.Location{} }

func TestCheckRejectsSecondMoveOfLinearLocal(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 1
	fn.LocalNames = []string{"x"}
	linearTy := store.NewLinear(types.I32)
	localVal := vals.NewVariable(linearTy, false, 0)

	// Two bare-expression statements, each directly reading x by value:
	// `*x; *x;` chained through Prev. The second read must be rejected
	// as a use of an already-consumed value.
	stmt1 := fn.Push(tir.Inst{Tag: tir.TagDeref, Left: int32(localVal)})
	stmt2 := fn.Push(tir.Inst{Tag: tir.TagDeref, Left: int32(localVal), Prev: stmt1})
	fn.Entry = stmt2

	sink := diagsink.New(diagsink.Options{})
	Check(sink, store, vals, fn, noLocate)

	assert.True(t, sink.HasErrors())
	found := false
	for _, d := range sink.All() {
		if d.Kind == diagsink.ErrConsumedValueUsed {
			found = true
		}
	}
	assert.True(t, found, "expected a consumed-value diagnostic for the second use of x")
}

func TestCheckAllowsSingleMoveOfLinearLocal(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 1
	fn.LocalNames = []string{"x"}
	linearTy := store.NewLinear(types.I32)
	localVal := vals.NewVariable(linearTy, false, 0)

	stmt := fn.Push(tir.Inst{Tag: tir.TagDeref, Left: int32(localVal)})
	fn.Entry = stmt

	sink := diagsink.New(diagsink.Options{})
	Check(sink, store, vals, fn, noLocate)

	assert.False(t, sink.HasErrors())
}

func TestCheckAllowsNonLinearLocalUsedTwice(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 1
	fn.LocalNames = []string{"x"}
	localVal := vals.NewVariable(types.I32, false, 0)

	stmt1 := fn.Push(tir.Inst{Tag: tir.TagDeref, Left: int32(localVal)})
	stmt2 := fn.Push(tir.Inst{Tag: tir.TagDeref, Left: int32(localVal), Prev: stmt1})
	fn.Entry = stmt2

	sink := diagsink.New(diagsink.Options{})
	Check(sink, store, vals, fn, noLocate)

	assert.False(t, sink.HasErrors())
}

func TestCheckAllowsMoveAfterStatementScopedMutableBorrow(t *testing.T) {
	store := types.NewGlobal()
	vals := values.NewGlobal()

	fn := tir.NewFunction()
	fn.LocalCount = 1
	fn.LocalNames = []string{"x"}
	linearTy := store.NewLinear(types.I32)
	localVal := vals.NewVariable(linearTy, true, 0)

	addrStmt := fn.Push(tir.Inst{Tag: tir.TagAddress, Left: int32(localVal)})
	moveStmt := fn.Push(tir.Inst{Tag: tir.TagDeref, Left: int32(localVal), Prev: addrStmt})
	fn.Entry = moveStmt

	sink := diagsink.New(diagsink.Options{})
	Check(sink, store, vals, fn, noLocate)

	assert.False(t, sink.HasErrors(), "a borrow released at the end of its own statement must not block the next statement's move")
}
