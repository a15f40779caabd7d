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
// Package main implements the jellyc command line driver: it loads
// project configuration, wires up diagnostics/metrics/logging, and runs
// the compilation core's five stages over a set of already-parsed
// source files.
//
// Usage:
//
//	jellyc build <file.ast>...   Compile the given files and report diagnostics
//	jellyc build --dump=tir      Dump typed IR for every function to the log
//	jellyc version               Print version information
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/Laia-Ortiga/jellyc/internal/ast"
	"github.com/Laia-Ortiga/jellyc/internal/config"
	"github.com/Laia-Ortiga/jellyc/internal/diagsink"
	"github.com/Laia-Ortiga/jellyc/internal/driver"
	"github.com/Laia-Ortiga/jellyc/internal/metrics"
	"github.com/Laia-Ortiga/jellyc/internal/source"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Frontend turns a source path into a parsed tree. Lexing and parsing
// are an external collaborator this core only consumes the output of;
// a real build wires a parser package in here. The stub below reports a
// clear error instead of silently producing an empty program.
type Frontend func(path string) (*ast.Tree, error)

var frontend Frontend = func(path string) (*ast.Tree, error) {
	return nil, fmt.Errorf("no frontend registered: jellyc's parser is an external collaborator (see internal/driver.Input); link one in to compile %s", path)
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to .jelly/build.yaml (default: auto-discovered)")
		jsonOutput  = flag.Bool("json", false, "Do not render diagnostics (no JSON is written); implies --quiet")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Log errors only (the progress bar is still shown)")
		dumpFlag    = flag.String("dump", "", "Comma-separated IR dumps to emit at debug level: rir,tir,mir")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	)
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `jellyc - semantic core compiler driver

Usage:
  jellyc build [options] <file>...   Compile files through to MIR
  jellyc version                    Print version information

Options:
      --config string       Path to .jelly/build.yaml
      --json                Do not render diagnostics (no JSON is written); implies --quiet
      --no-color            Disable color output (respects NO_COLOR env var)
  -v, --verbose              Increase verbosity (-v info, -vv debug)
  -q, --quiet                Log errors only (the progress bar is still shown)
      --dump string          Comma-separated IR dumps: rir,tir,mir
      --metrics-addr string  Serve Prometheus metrics on this address
  -V, --version              Show version and exit
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("jellyc version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		return
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *jsonOutput {
		*quiet = true
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	switch args[0] {
	case "version":
		fmt.Printf("jellyc version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
	case "build":
		os.Exit(runBuild(args[1:], buildOptions{
			configPath:  *configPath,
			json:        *jsonOutput,
			noColor:     *noColor,
			verbose:     *verbose,
			quiet:       *quiet,
			dump:        *dumpFlag,
			metricsAddr: *metricsAddr,
		}))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

type buildOptions struct {
	configPath  string
	json        bool
	noColor     bool
	verbose     int
	quiet       bool
	dump        string
	metricsAddr string
}

func runBuild(paths []string, opts buildOptions) int {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "build: no input files")
		return 1
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jellyc: %v\n", err)
		return 1
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = opts.metricsAddr
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil { //nolint:gosec // internal debug endpoint, not internet-facing
				slog.Error("jellyc.metrics.listen_failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
	}

	logger := newLogger(opts.verbose, opts.quiet)

	sinkOpts := diagsink.Options{Writer: os.Stderr, JSON: opts.json, NoColor: opts.noColor}
	if m != nil {
		sinkOpts.OnDiagnostic = func(sev diagsink.Severity) { m.AddDiagnostic(sev.String()) }
	}
	sink := diagsink.New(sinkOpts)

	d := driver.New(cfg, sink, m, logger)
	d.Dump = parseDump(opts.dump)

	inputs := make([]driver.Input, 0, len(paths))
	for _, p := range paths {
		tree, err := frontend(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jellyc: %v\n", err)
			return 1
		}
		inputs = append(inputs, driver.Input{File: &source.File{Path: p}, Tree: tree})
	}

	result, err := d.Run(context.Background(), inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jellyc: %v\n", err)
		return 1
	}
	if result.HasErrors {
		return 1
	}
	return 0
}

func parseDump(s string) driver.Dump {
	var d driver.Dump
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "rir":
			d.RIR = true
		case "tir":
			d.TIR = true
		case "mir":
			d.MIR = true
		}
	}
	return d
}

func newLogger(verbose int, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
