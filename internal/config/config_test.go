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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Laia-Ortiga/jellyc/internal/types"
)

func TestDefaultConfigTargetsPtr64(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, types.Target64, cfg.TypesTarget())
}

func TestTypesTargetRecognizesPtr32(t *testing.T) {
	cfg := &Config{Target: "ptr32"}
	assert.Equal(t, types.Target32, cfg.TypesTarget())
}

func TestTypesTargetDefaultsTo64OnUnrecognizedValue(t *testing.T) {
	cfg := &Config{Target: "bogus"}
	assert.Equal(t, types.Target64, cfg.TypesTarget())
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ptr64", cfg.Target)
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1\"\ntarget: ptr32\nbackend: c\nworkers: 4\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ptr32", cfg.Target)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoadConfigRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"99\"\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "build.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: ptr32\nworkers: 2\n"), 0o600))

	t.Setenv("JELLY_TARGET", "ptr64")
	t.Setenv("JELLY_WORKERS", "8")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ptr64", cfg.Target)
	assert.Equal(t, 8, cfg.Workers)
}

func TestSaveConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)
	cfg := DefaultConfig()
	cfg.Workers = 3
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Workers)
}

func TestConfigPathAndDir(t *testing.T) {
	assert.Equal(t, filepath.Join("root", ".jelly"), ConfigDir("root"))
	assert.Equal(t, filepath.Join("root", ".jelly", "build.yaml"), ConfigPath("root"))
}
