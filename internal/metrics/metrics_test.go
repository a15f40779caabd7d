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

package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimerRecordsAStageObservation(t *testing.T) {
	m := New()
	stop := m.Timer(StageElaborate)
	stop()

	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration, "jellyc_stage_duration_seconds"))
}

func TestAddInstructionsAndDefinitions(t *testing.T) {
	m := New()
	m.AddInstructions(StageLower, 5)
	m.AddInstructions(StageLower, 3)
	m.AddDefinitions("function", 2)

	assert.Equal(t, float64(8), testutil.ToFloat64(m.Instructions.WithLabelValues(StageLower)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Definitions.WithLabelValues("function")))
}

func TestAddDiagnosticIncrementsBySeverity(t *testing.T) {
	m := New()
	m.AddDiagnostic("error")
	m.AddDiagnostic("error")
	m.AddDiagnostic("note")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Diagnostics.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Diagnostics.WithLabelValues("note")))
}

func TestHandlerServesMetricsEndpoint(t *testing.T) {
	m := New()
	m.AddDefinitions("struct", 1)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "jellyc_definitions_total")
}
