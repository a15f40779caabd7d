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
// Package metrics exports per-stage Prometheus counters and histograms
// for the driver's pipeline (spec.md §5's stage sequence), mounted the
// same way the teacher's cmd/cie/index.go mounts promhttp.Handler() on
// its own mux rather than the default global registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names used as the "stage" label value across every metric here.
const (
	StageCollect   = "collect"
	StageRole      = "role"
	StageElaborate = "elaborate"
	StageAffine    = "affine"
	StageLower     = "lower"
)

// Metrics holds one compilation run's instrumentation, registered
// against its own registry so multiple Metrics instances (e.g. one per
// test) never collide on the global default registry.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	Instructions  *prometheus.CounterVec
	Definitions   *prometheus.CounterVec
	Diagnostics   *prometheus.CounterVec
	ActiveWorkers prometheus.Gauge
}

// New creates a Metrics instance with every collector registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jellyc",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock time spent in each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		Instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jellyc",
			Name:      "instructions_total",
			Help:      "TIR/MIR instructions produced, by stage.",
		}, []string{"stage"}),
		Definitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jellyc",
			Name:      "definitions_total",
			Help:      "Global definitions processed, by kind.",
		}, []string{"kind"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jellyc",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by severity.",
		}, []string{"severity"}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jellyc",
			Name:      "active_workers",
			Help:      "Function-body workers currently running.",
		}),
	}
	reg.MustRegister(m.StageDuration, m.Instructions, m.Definitions, m.Diagnostics, m.ActiveWorkers)
	return m
}

// Handler returns the HTTP handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Timer starts timing a stage; call the returned func when the stage
// finishes.
func (m *Metrics) Timer(stage string) func() {
	start := time.Now()
	return func() { m.ObserveStage(stage, time.Since(start)) }
}

// AddInstructions increments the instruction counter for stage by n.
func (m *Metrics) AddInstructions(stage string, n int) {
	m.Instructions.WithLabelValues(stage).Add(float64(n))
}

// AddDefinitions increments the definition counter for kind by n.
func (m *Metrics) AddDefinitions(kind string, n int) {
	m.Definitions.WithLabelValues(kind).Add(float64(n))
}

// AddDiagnostic increments the diagnostic counter for severity.
func (m *Metrics) AddDiagnostic(severity string) {
	m.Diagnostics.WithLabelValues(severity).Inc()
}
