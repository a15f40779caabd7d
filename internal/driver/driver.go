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
// Package driver orchestrates the five pipeline stages spec.md §5
// describes — collect, role, elaborate, affine, lower — over a batch of
// already-parsed files, the way the teacher's
// pkg/ingestion/local_pipeline.go sequences load → parse → embed → write
// behind one Run(ctx) call with structured logging between steps.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Laia-Ortiga/jellyc/internal/affine"
	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/collect"
	"github.com/Laia-Ortiga/jellyc/internal/config"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/elaborate"
	"github.com/Laia-Ortiga/jellyc/internal/lower"
	"github.com/Laia-Ortiga/jellyc/internal/metrics"
	"github.com/Laia-Ortiga/jellyc/internal/mir"
	"github.com/Laia-Ortiga/jellyc/internal/role"
	"github.com/Laia-Ortiga/jellyc/internal/source"
	"github.com/Laia-Ortiga/jellyc/internal/strtab"
)

// Input is one source file at the core's boundary: spec.md §6 places
// lexing and parsing out of scope, so a Driver consumes an already-built
// AST rather than file bytes.
type Input struct {
	File *source.File
	Tree *ast.Tree
}

// Result is the whole-compilation output.
type Result struct {
	Program   *mir.Program
	HasErrors bool
}

// Dump selects which intermediate representation a driver run should
// render to the logger at debug level, mirroring the original's print.c
// debug dumps (SPEC_FULL.md's "Debug printers").
type Dump struct {
	RIR bool
	TIR bool
	MIR bool
}

// Driver holds the state shared across one compilation's stages.
type Driver struct {
	Config  *config.Config
	Sink    *diagsink.Sink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Dump    Dump
}

// New creates a Driver. metrics and logger may be nil; a nil Metrics
// makes every instrumentation call a no-op, a nil logger falls back to
// slog.Default().
func New(cfg *config.Config, sink *diagsink.Sink, m *metrics.Metrics, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{Config: cfg, Sink: sink, Metrics: m, Logger: logger}
}

func (d *Driver) timer(stage string) func() {
	if d.Metrics == nil {
		return func() {}
	}
	return d.Metrics.Timer(stage)
}

func (d *Driver) addDefinitions(kind string, n int) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.AddDefinitions(kind, n)
}

// Run executes stages 1 through 5 over inputs and returns the resulting
// MIR program. Run stops after the first stage that leaves an error in
// the sink and returns a Result with HasErrors set and no Program;
// within a stage, passes keep running past an error and poison the
// offending node rather than aborting (spec.md §7), so one stage can
// report several diagnostics.
func (d *Driver) Run(ctx context.Context, inputs []Input) (*Result, error) {
	start := time.Now()
	d.Logger.Info("jellyc.compile.start", "files", len(inputs))

	strings := strtab.New()
	target := d.Config.TypesTarget()

	stop := d.timer(metrics.StageCollect)
	col := collect.New(strings, d.Sink)
	trees := make([]*ast.Tree, len(inputs))
	for i, in := range inputs {
		trees[i] = in.Tree
		col.CollectFile(in.Tree)
	}
	stop()
	d.Logger.Info("jellyc.compile.step.collect", "modules", len(col.Prog.Modules), "files", len(col.Prog.Files))

	stop = d.timer(metrics.StageRole)
	ra := role.New(col.Prog, strings, d.Sink)
	order := ra.AnalyzeAll(trees)
	stop()
	d.Logger.Info("jellyc.compile.step.role", "definitions", len(order))
	if d.Dump.RIR {
		for file, tab := range ra.RIR {
			d.Logger.Debug("jellyc.compile.dump.rir", "file", file, "table", tab.Debug())
		}
	}
	if d.Sink.HasErrors() {
		return &Result{HasErrors: true}, nil
	}

	stop = d.timer(metrics.StageElaborate)
	elab := elaborate.New(col.Prog, strings, d.Sink, trees, ra.RIR, ra.Locals, target)
	elab.RunGlobal(order)
	if d.Sink.HasErrors() {
		stop()
		return &Result{HasErrors: true}, nil
	}

	bodies, err := d.elaborateBodies(ctx, elab)
	stop()
	if err != nil {
		return nil, err
	}
	if d.Dump.TIR {
		for _, fr := range bodies {
			if fr == nil || fr.TIR == nil {
				continue
			}
			d.Logger.Debug("jellyc.compile.dump.tir", "function", fr.Name, "body", fr.TIR.Debug())
		}
	}
	d.addDefinitions("struct", len(elab.Structs))
	d.addDefinitions("function", len(elab.Functions))
	d.addDefinitions("extern", len(elab.ExternVars)+len(elab.ExternFunctions))
	d.Logger.Info("jellyc.compile.step.elaborate", "functions", len(elab.Functions), "structs", len(elab.Structs))
	if d.Sink.HasErrors() {
		return &Result{HasErrors: true}, nil
	}

	stop = d.timer(metrics.StageAffine)
	if err := d.checkAffine(ctx, elab, bodies); err != nil {
		stop()
		return nil, err
	}
	stop()
	d.Logger.Info("jellyc.compile.step.affine")
	if d.Sink.HasErrors() {
		return &Result{HasErrors: true}, nil
	}

	stop = d.timer(metrics.StageLower)
	prog := d.lowerAll(elab, bodies)
	stop()
	d.Logger.Info("jellyc.compile.complete",
		"duration_ms", time.Since(start).Milliseconds(),
		"functions", len(elab.Functions),
		"has_errors", d.Sink.HasErrors(),
	)
	return &Result{Program: prog, HasErrors: d.Sink.HasErrors()}, nil
}

// elaborateBodies runs stage 3's per-function pass concurrently (spec.md
// §5: bodies are independent once every global signature is resolved),
// bounded by Config.Workers and reporting progress the way the teacher's
// parseFilesParallel bounds its worker count.
func (d *Driver) elaborateBodies(ctx context.Context, elab *elaborate.Elaborator) ([]*elaborate.FunctionResult, error) {
	workers := d.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	bodies := make([]*elaborate.FunctionResult, len(elab.Functions))
	bar := progressbar.Default(int64(len(elab.Functions)), "elaborating")
	defer bar.Close()

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for i, fr := range elab.Functions {
		i, fr := i, fr
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			bodies[i] = elab.ElaborateFunctionBody(fr.Def)
			return bar.Add(1)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("elaborate function bodies: %w", err)
	}
	return bodies, nil
}

// checkAffine runs stage 4 over every elaborated body concurrently; a
// function with a prior stage-3 error (nil TIR) is skipped, matching
// spec.md §7's sentinel-propagation policy rather than compounding the
// failure.
func (d *Driver) checkAffine(ctx context.Context, elab *elaborate.Elaborator, bodies []*elaborate.FunctionResult) error {
	workers := d.Config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for _, fr := range bodies {
		fr := fr
		if fr == nil || fr.TIR == nil {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()
			affine.Check(d.Sink, fr.Locals, fr.Vals, fr.TIR, elab.Locator(fr))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("check substructural typing: %w", err)
	}
	return nil
}

// lowerAll runs stage 5 sequentially: mir.Program's instruction stream
// is shared across every function, so lowering itself isn't
// parallelized (only the per-function TIR produced upstream was).
func (d *Driver) lowerAll(elab *elaborate.Elaborator, bodies []*elaborate.FunctionResult) *mir.Program {
	prog := mir.NewProgram()
	for _, fr := range bodies {
		if fr == nil || fr.TIR == nil {
			continue
		}
		sig := elab.Types.Get(fr.Type)
		mfn := lower.Function(prog, d.Config.TypesTarget(), fr.Locals, fr.Vals, fr.TIR, fr.InstValue, fr.Name, sig.Params, sig.Ret)
		if d.Dump.MIR {
			d.Logger.Debug("jellyc.compile.dump.mir", "function", fr.Name, "body", prog.Debug(mfn))
		}
		if d.Metrics != nil {
			d.Metrics.AddInstructions(metrics.StageLower, len(fr.TIR.Insts))
		}
	}
	return prog
}
