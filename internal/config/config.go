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
// Package config loads the project-level build configuration spec.md §6
// leaves as an external concern: target pointer width, backend selector,
// and worker-pool sizing read from .jelly/build.yaml (or overridden by
// environment variables), in the same shape the teacher's
// cmd/cie/config.go reads .cie/project.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Laia-Ortiga/jellyc/internal/types"
)

const (
	defaultConfigDir  = ".jelly"
	defaultConfigFile = "build.yaml"
	configVersion     = "1"
)

// Config is the .jelly/build.yaml document.
type Config struct {
	Version string `yaml:"version"`

	// Target selects the pointer width the layout pass (internal/types)
	// sizes structs and slices against: "ptr32" or "ptr64".
	Target string `yaml:"target"`

	// Backend names the downstream textual-emission collaborator
	// (spec.md §1's "backend selector"); it is loaded and saved, but
	// nothing in this core reads it.
	Backend string `yaml:"backend"`

	// Workers bounds the per-function stage 3/4 fan-out (spec.md §5);
	// stage 5 runs sequentially.
	// 0 means "use runtime.NumCPU()".
	Workers int `yaml:"workers,omitempty"`

	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// MetricsConfig controls the optional Prometheus exporter
// (internal/metrics).
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"` // listen address for /metrics, e.g. ":9090"
}

// DefaultConfig returns a config with sensible defaults for local builds.
func DefaultConfig() *Config {
	return &Config{
		Version: configVersion,
		Target:  "ptr64",
		Backend: "c",
		Workers: 0,
		Metrics: MetricsConfig{Enabled: false, Addr: ":9090"},
	}
}

// targetValue returns c's target string, "ptr64" when it is unset.
func (c *Config) targetValue() string {
	if c.Target == "" {
		return "ptr64"
	}
	return c.Target
}

// TypesTarget maps the config's target string to the layout package's
// Target enum, defaulting to 64-bit on an unrecognized or empty value.
func (c *Config) TypesTarget() types.Target {
	if c.targetValue() == "ptr32" {
		return types.Target32
	}
	return types.Target64
}

// LoadConfig loads configuration from path, or auto-discovers
// .jelly/build.yaml in the current and parent directories when path is
// empty. Environment variables are applied on top of whatever was
// loaded, then defaults fill anything still unset.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("JELLY_CONFIG_PATH")
	}
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from config discovery or an explicit flag
		if err != nil {
			if os.IsNotExist(err) {
				cfg.applyEnvOverrides()
				return cfg, nil
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Version != "" && cfg.Version != configVersion {
			return nil, fmt.Errorf("config %s: unsupported version %q (expected %q)", path, cfg.Version, configVersion)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating the containing
// directory if needed.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// ConfigPath returns <dir>/.jelly/build.yaml.
func ConfigPath(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

// ConfigDir returns <dir>/.jelly.
func ConfigDir(dir string) string {
	return filepath.Join(dir, defaultConfigDir)
}

// findConfigFile walks from the current directory up to the filesystem
// root looking for .jelly/build.yaml, returning "" (not an error) if
// none is found — LoadConfig falls back to defaults in that case.
func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := ConfigPath(dir)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// applyEnvOverrides lets JELLY_TARGET / JELLY_BACKEND / JELLY_WORKERS /
// JELLY_METRICS_ADDR override whatever was loaded from file, mirroring
// the teacher's CIE_* environment override convention.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("JELLY_TARGET"); v != "" {
		c.Target = v
	}
	if v := os.Getenv("JELLY_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("JELLY_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("JELLY_METRICS_ADDR"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = v
	}
}
