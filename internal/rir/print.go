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
	"fmt"
	"sort"
	"strings"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
)

var tagNames = [...]string{
	TagNone: "none", TagGlobalID: "global_id", TagLocalID: "local_id",
	TagBuiltinID: "builtin_id", TagTypeAccess: "type_access",
	TagScopeAccess: "scope_access", TagInferredAccess: "inferred_access",
	TagDeref: "deref", TagPointerType: "pointer_type", TagAddressOf: "address_of",
	TagMultiAddress: "multi_address", TagCall: "call", TagConstructor: "constructor",
	TagMacroCall: "macro_call", TagIndexValue: "index_value", TagTaggedType: "tagged_type",
	TagSwitchElseArm: "switch_else_arm", TagStatementValue: "statement_value",
	TagStatementType: "statement_type", TagImplicitReturn: "implicit_return",
}

func tagName(t Tag) string {
	if int(t) < len(tagNames) && tagNames[t] != "" {
		return tagNames[t]
	}
	return "?"
}

// Debug renders every non-TagNone slot in t as greppable text, sorted by
// AST node id, the way internal/types' Store.String renders a type id
// (spec.md's "Supplemented features" #1). Nodes role analysis left at
// the zero Entry are omitted; they carry no information.
func (t *Table) Debug() string {
	ids := make([]int, 0, len(t.entries))
	for id, e := range t.entries {
		if e.Tag == TagNone {
			continue
		}
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	var b strings.Builder
	for _, id := range ids {
		e := t.entries[ast.ID(id)]
		fmt.Fprintf(&b, "n%d: %s data=%d\n", id, tagName(e.Tag), e.Data)
	}
	return b.String()
}
