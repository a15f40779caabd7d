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

package rir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
)

func TestDebugOmitsZeroEntries(t *testing.T) {
	tab := New()
	tab.Set(ast.ID(3), TagNone, 0)
	tab.Set(ast.ID(5), TagGlobalID, 42)

	out := tab.Debug()
	assert.True(t, strings.Contains(out, "n5: global_id data=42"))
	assert.NotContains(t, out, "n3:")
}

func TestDebugSortsByNodeID(t *testing.T) {
	tab := New()
	tab.Set(ast.ID(9), TagLocalID, 1)
	tab.Set(ast.ID(2), TagBuiltinID, 2)

	out := tab.Debug()
	assert.True(t, strings.Index(out, "n2:") < strings.Index(out, "n9:"))
}
