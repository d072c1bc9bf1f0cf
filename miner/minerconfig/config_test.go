// Copyright 2024 The lodaminer Authors
// This file is part of the lodaminer library.
//
// The lodaminer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The lodaminer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the lodaminer library. If not, see <http://www.gnu.org/licenses/>.

package minerconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/miner/genome"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.MaxMutationIterations)
	assert.Equal(t, genome.DefaultWeights, cfg.Weights)
}

func TestValidate(t *testing.T) {
	badFP := 1.5
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers must be positive"},
		{"no candidates", func(c *Config) { c.CandidatesPerSeed = 0 }, "candidates per seed"},
		{"too few iterations", func(c *Config) { c.MaxMutationIterations = 3 }, "below candidates per seed"},
		{"negative rounds", func(c *Config) { c.MaxRounds = -1 }, "max rounds"},
		{"zero weights", func(c *Config) { c.Weights = genome.Weights{} }, "mutation weight"},
		{"bad false positive rate", func(c *Config) { c.Novelty.FalsePositive = &badFP }, "outside (0,1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig
	cfg.Workers = 0
	cfg.MaxRounds = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid miner config")
	assert.Contains(t, err.Error(), "workers must be positive")
	assert.Contains(t, err.Error(), "max rounds must not be negative")
}

func TestApplyDefaultMinerConfig(t *testing.T) {
	deadline := time.Minute
	cfg := Config{Deadline: &deadline, CandidatesPerSeed: 4}
	ApplyDefaultMinerConfig(&cfg)

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 4, cfg.CandidatesPerSeed)
	assert.Equal(t, defaultMaxMutationIterations, cfg.MaxMutationIterations)
	assert.Equal(t, time.Minute, *cfg.Deadline)
	assert.Equal(t, genome.DefaultWeights, cfg.Weights)
	require.NotNil(t, cfg.Novelty.Size)
	assert.Equal(t, defaultNoveltySize, *cfg.Novelty.Size)
	assert.True(t, *cfg.Novelty.SeedCorpus)
	require.NoError(t, cfg.Validate())

	ApplyDefaultMinerConfig(nil)
}
