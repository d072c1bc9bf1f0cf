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

// Package minerconfig holds the configuration of the mining scheduler.
package minerconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/miner/genome"
	"github.com/lodaminer/lodaminer/miner/novelty"
)

// Default scheduling configurations
var (
	defaultCandidatesPerSeed     = 16
	defaultMaxMutationIterations = 100
	defaultMutationsPerCandidate = 1
	defaultMaxRounds             = 100

	// Executions are checked against the deadline, so an overrun is bounded
	// by the slowest single execution.
	defaultDeadline = 10 * time.Minute
)

// Other default novelty-related configurations
var (
	defaultNoveltySize  = uint64(novelty.DefaultSize)
	defaultNoveltyFP    = novelty.DefaultFalsePositiveRate
	defaultSeedNovelty  = true
	defaultPartialEvery = uint32(100)
)

// Config is the configuration parameters of mining.
type Config struct {
	Workers               int            // Goroutines evaluating candidates, 1 runs inline
	CandidatesPerSeed     int            // Novel candidates derived from each seed per round
	MaxMutationIterations int            // Mutation attempts per seed and round
	MutationsPerCandidate int            // Operators applied in sequence to derive one candidate
	BaseSeed              int64          // Added to every per-candidate RNG seed
	MaxRounds             int            // Rounds after the seed round, 0 means unbounded
	Deadline              *time.Duration `toml:",omitempty"` // Wall clock budget for one Run
	PartialLogEvery       *uint32        `toml:",omitempty"` // Log every n-th partial match

	Novelty NoveltyConfig  // Novelty filter configuration
	Weights genome.Weights // Operator selection weights
	VM      vm.Config      // Interpreter limits
}

// DefaultConfig contains default settings for the miner.
var DefaultConfig = Config{
	Workers:               1,
	CandidatesPerSeed:     defaultCandidatesPerSeed,
	MaxMutationIterations: defaultMaxMutationIterations,
	MutationsPerCandidate: defaultMutationsPerCandidate,
	MaxRounds:             defaultMaxRounds,
	Deadline:              &defaultDeadline,
	PartialLogEvery:       &defaultPartialEvery,

	Novelty: DefaultNoveltyConfig,
	Weights: genome.DefaultWeights,
	VM:      vm.DefaultConfig,
}

// NoveltyConfig dimensions the filter of already tried programs.
type NoveltyConfig struct {
	Size          *uint64  `toml:",omitempty"` // Programs the filter is sized for
	FalsePositive *float64 `toml:",omitempty"` // Target false positive rate at Size programs
	SeedCorpus    *bool    `toml:",omitempty"` // Whether every corpus program starts out known
	File          string   // Persist the filter to this path between runs
}

var DefaultNoveltyConfig = NoveltyConfig{
	Size:          &defaultNoveltySize,
	FalsePositive: &defaultNoveltyFP,
	SeedCorpus:    &defaultSeedNovelty,
}

// Validate reports every setting the scheduler cannot work with in a
// single error.
func (cfg *Config) Validate() error {
	var problems []string
	if cfg.Workers < 1 {
		problems = append(problems, fmt.Sprintf("workers must be positive, have %d", cfg.Workers))
	}
	if cfg.CandidatesPerSeed < 1 {
		problems = append(problems, fmt.Sprintf("candidates per seed must be positive, have %d", cfg.CandidatesPerSeed))
	}
	if cfg.MaxMutationIterations < cfg.CandidatesPerSeed {
		problems = append(problems, fmt.Sprintf("max mutation iterations %d below candidates per seed %d", cfg.MaxMutationIterations, cfg.CandidatesPerSeed))
	}
	if cfg.MutationsPerCandidate < 1 {
		problems = append(problems, fmt.Sprintf("mutations per candidate must be positive, have %d", cfg.MutationsPerCandidate))
	}
	if cfg.MaxRounds < 0 {
		problems = append(problems, fmt.Sprintf("max rounds must not be negative, have %d", cfg.MaxRounds))
	}
	if cfg.Weights.Total() == 0 {
		problems = append(problems, "every mutation weight is zero")
	}
	if fp := cfg.Novelty.FalsePositive; fp != nil && (*fp <= 0 || *fp >= 1) {
		problems = append(problems, fmt.Sprintf("novelty false positive rate %v outside (0,1)", *fp))
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.Errorf("invalid miner config: %s", strings.Join(problems, "; "))
}

// ApplyDefaultMinerConfig fills every unset optional field with its default.
func ApplyDefaultMinerConfig(cfg *Config) {
	if cfg == nil {
		log.Warn("ApplyDefaultMinerConfig cfg == nil")
		return
	}

	if cfg.Workers == 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.CandidatesPerSeed == 0 {
		cfg.CandidatesPerSeed = defaultCandidatesPerSeed
		log.Info("ApplyDefaultMinerConfig", "CandidatesPerSeed", cfg.CandidatesPerSeed)
	}
	if cfg.MaxMutationIterations == 0 {
		cfg.MaxMutationIterations = defaultMaxMutationIterations
		log.Info("ApplyDefaultMinerConfig", "MaxMutationIterations", cfg.MaxMutationIterations)
	}
	if cfg.MutationsPerCandidate == 0 {
		cfg.MutationsPerCandidate = defaultMutationsPerCandidate
	}
	if cfg.Deadline == nil {
		cfg.Deadline = &defaultDeadline
		log.Info("ApplyDefaultMinerConfig", "Deadline", *cfg.Deadline)
	}
	if cfg.PartialLogEvery == nil {
		cfg.PartialLogEvery = &defaultPartialEvery
	}
	if cfg.Weights.Total() == 0 {
		cfg.Weights = genome.DefaultWeights
		log.Info("ApplyDefaultMinerConfig", "Weights", "default")
	}

	// check [Miner.Novelty]
	if cfg.Novelty.Size == nil {
		cfg.Novelty.Size = &defaultNoveltySize
		log.Info("ApplyDefaultMinerConfig", "Novelty.Size", *cfg.Novelty.Size)
	}
	if cfg.Novelty.FalsePositive == nil {
		cfg.Novelty.FalsePositive = &defaultNoveltyFP
		log.Info("ApplyDefaultMinerConfig", "Novelty.FalsePositive", *cfg.Novelty.FalsePositive)
	}
	if cfg.Novelty.SeedCorpus == nil {
		cfg.Novelty.SeedCorpus = &defaultSeedNovelty
	}
}
