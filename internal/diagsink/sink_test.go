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

package diagsink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Laia-Ortiga/jellyc/internal/source"
)

func TestReportSetsHasErrorsOnlyForErrorSeverity(t *testing.T) {
	var buf bytes.Buffer
	sink := New(Options{Writer: &buf})

	sink.Report(Diagnostic{Kind: NotePreviousDefinition, Loc: source.Location{}})
	assert.False(t, sink.HasErrors())

	sink.Report(Diagnostic{Kind: ErrMissingReturn, Args: []any{"main"}, Loc: source.Location{}})
	assert.True(t, sink.HasErrors())
}

func TestCountOnlyCountsErrors(t *testing.T) {
	var buf bytes.Buffer
	sink := New(Options{Writer: &buf})
	sink.Report(Diagnostic{Kind: ErrMissingReturn, Args: []any{"f"}})
	sink.Report(Diagnostic{Kind: NotePreviousDefinition})
	sink.Report(Diagnostic{Kind: ErrLinearAssignment, Args: []any{"x"}})
	assert.Equal(t, 2, sink.Count())
	assert.Len(t, sink.All(), 3)
}

func TestOnDiagnosticCallbackFiresPerReport(t *testing.T) {
	var buf bytes.Buffer
	var severities []Severity
	sink := New(Options{Writer: &buf, OnDiagnostic: func(s Severity) {
		severities = append(severities, s)
	}})
	sink.Report(Diagnostic{Kind: ErrMissingReturn, Args: []any{"f"}})
	sink.Report(Diagnostic{Kind: NotePreviousDefinition})
	assert.Equal(t, []Severity{SeverityError, SeverityNote}, severities)
}

func TestMessageFormatsTemplateWithArgs(t *testing.T) {
	d := Diagnostic{Kind: ErrMissingReturn, Args: []any{"compute"}}
	assert.Equal(t, "function compute is missing a return", d.Message())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "note", SeverityNote.String())
}

func TestJSONModeSuppressesImmediateRendering(t *testing.T) {
	var buf bytes.Buffer
	sink := New(Options{Writer: &buf, JSON: true})
	sink.Report(Diagnostic{Kind: ErrMissingReturn, Args: []any{"f"}})
	assert.Empty(t, buf.String())
	assert.True(t, sink.HasErrors())
}
