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

package miner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/dependency"
	"github.com/lodaminer/lodaminer/miner/genome"
	"github.com/lodaminer/lodaminer/miner/minerconfig"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

var corpus = map[uint64]string{
	1: "mov $1,$0\nadd $1,1\nmul $0,$1\ndiv $0,2",
	2: "lpb $0\n  sub $0,1\n  add $1,3\nlpe\nmov $0,$1",
	3: "mul $0,2\nadd $0,1",
	4: "seq $0,1\nadd $0,2",
	5: "mov $1,$0\nmul $1,$0\nadd $0,$1",
}

func testConfig(w *genome.Weights) *minerconfig.Config {
	cfg := minerconfig.DefaultConfig
	cfg.CandidatesPerSeed = 4
	cfg.MaxMutationIterations = 20
	cfg.MaxRounds = 3
	size, fp := uint64(10_000), 0.001
	cfg.Novelty.Size, cfg.Novelty.FalsePositive = &size, &fp
	if w != nil {
		cfg.Weights = *w
	}
	return &cfg
}

func seeds(t *testing.T, texts ...string) []*genome.Genome {
	t.Helper()
	out := make([]*genome.Genome, len(texts))
	for i, text := range texts {
		g, err := genome.Parse(text)
		require.NoError(t, err)
		out[i] = g
	}
	return out
}

func newScheduler(t *testing.T, cfg *minerconfig.Config, mctx *suggest.Context) *Scheduler {
	t.Helper()
	resolver := dependency.NewManager(dependency.NewMemoryLoader(corpus), 0)
	s, err := New(cfg, mctx, resolver, nil)
	require.NoError(t, err)
	return s
}

func TestSeedRoundSolves(t *testing.T) {
	s := newScheduler(t, testConfig(nil), nil)
	target := &SequenceTarget{Name: "A005843", Terms: []int64{0, 2, 4, 6}}
	report, err := s.Run(context.Background(), []Target{target}, seeds(t, "add $0,7", "mul $0,2"))
	require.NoError(t, err)

	assert.Equal(t, StopSolved, report.Stop)
	assert.Zero(t, report.Rounds)
	require.Len(t, report.Solutions, 1)
	assert.Equal(t, Solution{Target: "A005843", Program: "mul $0,2", Round: 0, Messages: nil}, report.Solutions[0])
	assert.Empty(t, report.Unsolved)
	assert.Equal(t, 2, report.Candidates)
}

func TestMutationSolves(t *testing.T) {
	cfg := testConfig(genome.Only(genome.IncrementSourceValueWhereTypeIsConstant))
	s := newScheduler(t, cfg, nil)
	targets := []Target{
		&SequenceTarget{Name: "plus4", Terms: []int64{4, 5, 6, 7}},
		&SequenceTarget{Name: "square", Terms: []int64{0, 1, 4, 9}},
	}
	report, err := s.Run(context.Background(), targets, seeds(t, "add $0,3"))
	require.NoError(t, err)

	require.Len(t, report.Solutions, 1)
	sol := report.Solutions[0]
	assert.Equal(t, "plus4", sol.Target)
	assert.Equal(t, "add $0,4", sol.Program)
	assert.Equal(t, 1, sol.Round)
	assert.Equal(t, []string{"mutate: IncrementSourceValueWhereTypeIsConstant"}, sol.Messages)
	assert.Equal(t, []string{"square"}, report.Unsolved)
	assert.Positive(t, report.Duplicates)
	assert.Equal(t, StopExhausted, report.Stop)
}

func TestRejectsEchoingCandidates(t *testing.T) {
	cfg := testConfig(genome.Only(genome.DisableLoop))
	s := newScheduler(t, cfg, nil)
	target := &SequenceTarget{Name: "A001477", Terms: []int64{0, 1, 2, 3}}
	report, err := s.Run(context.Background(), []Target{target}, seeds(t, "add $0,0"))
	require.NoError(t, err)

	assert.Equal(t, StopExhausted, report.Stop)
	assert.Equal(t, int64(1), report.Rejected)
	assert.Empty(t, report.Solutions)
	assert.Equal(t, []string{"A001477"}, report.Unsolved)
}

func TestRoundLimit(t *testing.T) {
	cfg := testConfig(nil)
	cfg.MaxRounds = 2
	s := newScheduler(t, cfg, nil)
	target := &SequenceTarget{Name: "never", Terms: []int64{17, -3, 99, 12345}}
	report, err := s.Run(context.Background(), []Target{target}, seeds(t, "add $0,1\nmul $0,3", "mov $1,2\nlpb $0\n  sub $0,1\n  add $1,$0\nlpe\nmov $0,$1"))
	require.NoError(t, err)

	assert.Contains(t, []StopReason{StopMaxRounds, StopExhausted}, report.Stop)
	assert.LessOrEqual(t, report.Rounds, 2)
	assert.Positive(t, report.Executions)
}

func TestDeadline(t *testing.T) {
	cfg := testConfig(nil)
	zero := time.Duration(0)
	cfg.Deadline = &zero
	s := newScheduler(t, cfg, nil)
	report, err := s.Run(context.Background(), []Target{&SequenceTarget{Name: "a", Terms: []int64{1}}}, seeds(t, "add $0,1"))
	require.NoError(t, err)

	assert.Equal(t, StopDeadline, report.Stop)
	assert.Zero(t, report.Executions)
	assert.Equal(t, []string{"a"}, report.Unsolved)
}

func TestCancelled(t *testing.T) {
	s := newScheduler(t, testConfig(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := s.Run(ctx, []Target{&SequenceTarget{Name: "a", Terms: []int64{1}}}, seeds(t, "add $0,1"))
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, StopCancelled, report.Stop)
}

func TestParallelMatchesSequential(t *testing.T) {
	mctx := func() *suggest.Context {
		b := suggest.NewBuilder()
		for id, text := range corpus {
			b.AddProgram(id, asm.MustParseProgram(text))
		}
		b.AddRecent(3, 5)
		return b.Build()
	}
	targets := []Target{
		&SequenceTarget{Name: "odd", Terms: []int64{1, 3, 5, 7, 9}},
		&SequenceTarget{Name: "triangular", Terms: []int64{0, 1, 3, 6, 10}},
		&SequenceTarget{Name: "pronic", Terms: []int64{0, 2, 6, 12, 20}},
		&SequenceTarget{Name: "plus3", Terms: []int64{3, 4, 5, 6}},
	}
	start := "mul $0,2\nadd $0,3\nmov $1,$0\nmul $1,2"

	run := func(workers int) *Report {
		cfg := testConfig(nil)
		cfg.Workers = workers
		cfg.BaseSeed = 11
		cfg.CandidatesPerSeed = 16
		cfg.MaxMutationIterations = 100
		report, err := newScheduler(t, cfg, mctx()).Run(context.Background(), targets, seeds(t, start, corpus[1]))
		require.NoError(t, err)
		return report
	}
	sequential, parallel := run(1), run(4)
	assert.Equal(t, sequential.Solutions, parallel.Solutions)
	assert.Equal(t, sequential.Unsolved, parallel.Unsolved)
	assert.Equal(t, sequential.Candidates, parallel.Candidates)
	assert.NotEmpty(t, sequential.Solutions, "triangular is a seed")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(nil)
	cfg.Workers = -1
	_, err := New(cfg, nil, nil, nil)
	assert.Error(t, err)
}
