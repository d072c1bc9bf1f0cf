// Copyright 2024 The lodaminer Authors
// This file is part of lodaminer.
//
// lodaminer is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// lodaminer is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with lodaminer. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/miner"
	"github.com/lodaminer/lodaminer/miner/minerconfig"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.toml", `
Targets = "targets.yaml"

[Miner]
Workers = 4
MaxRounds = 7
Deadline = 30000000000

[Miner.Novelty]
File = "novelty.bloom"

[Corpus]
Dir = "/data/loda"
Recent = [45, 290]
`)
	cfg := &lodaConfig{}
	require.NoError(t, loadConfig(path, cfg))
	assert.Equal(t, "targets.yaml", cfg.Targets)
	assert.Equal(t, 4, cfg.Miner.Workers)
	assert.Equal(t, 7, cfg.Miner.MaxRounds)
	require.NotNil(t, cfg.Miner.Deadline)
	assert.Equal(t, 30*time.Second, *cfg.Miner.Deadline)
	assert.Equal(t, "novelty.bloom", cfg.Miner.Novelty.File)
	assert.Equal(t, "/data/loda", cfg.Corpus.Dir)
	assert.Equal(t, []uint64{45, 290}, cfg.Corpus.Recent)
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := writeFile(t, "config.toml", "[Miner]\nThreads = 4\n")
	err := loadConfig(path, &lodaConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Threads")
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := &lodaConfig{Miner: minerconfig.DefaultConfig, Targets: "t.yaml"}
	cfg.Corpus.Dir = "corpus"
	out, err := tomlSettings.Marshal(cfg)
	require.NoError(t, err)

	var back lodaConfig
	require.NoError(t, loadConfig(writeFile(t, "dump.toml", string(out)), &back))
	assert.Equal(t, cfg.Miner.Weights, back.Miner.Weights)
	assert.Equal(t, cfg.Miner.VM.MaxLoopIterations, back.Miner.VM.MaxLoopIterations)
	assert.Equal(t, *cfg.Miner.Deadline, *back.Miner.Deadline)
	assert.Equal(t, "corpus", back.Corpus.Dir)
	assert.Equal(t, "t.yaml", back.Targets)
}

func TestWriteSolutions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	err := writeSolutions(dir, []miner.Solution{{
		Target:   "A000027",
		Program:  "add $0,1",
		Messages: []string{"mutate: CopyLine"},
	}})
	require.NoError(t, err)
	blob, err := os.ReadFile(filepath.Join(dir, "A000027.asm"))
	require.NoError(t, err)
	assert.Equal(t, "; A000027\n; mutate: CopyLine\nadd $0,1\n", string(blob))
}
