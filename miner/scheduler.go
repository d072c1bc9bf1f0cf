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

// Package miner searches for programs matching a set of targets by mutating
// known programs round after round.
package miner

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/lodaminer/lodaminer/common"
	"github.com/lodaminer/lodaminer/common/gopool"
	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/metrics"
	"github.com/lodaminer/lodaminer/miner/genome"
	"github.com/lodaminer/lodaminer/miner/minerconfig"
	"github.com/lodaminer/lodaminer/miner/novelty"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

// roundSeedStride separates the RNG seeds of consecutive rounds.
const roundSeedStride = 0x10000

var (
	candidateCounter = metrics.NewRegisteredCounter("miner/candidates", nil)
	duplicateCounter = metrics.NewRegisteredCounter("miner/duplicates", nil)
	executionCounter = metrics.NewRegisteredCounter("miner/executions", nil)
	solutionCounter  = metrics.NewRegisteredCounter("miner/solutions", nil)
	partialCounter   = metrics.NewRegisteredCounter("miner/partial", nil)
	rejectedCounter  = metrics.NewRegisteredCounter("miner/rejected", nil)
	failureCounter   = metrics.NewRegisteredCounter("miner/failures", nil)
	unsolvedGauge    = metrics.NewRegisteredGauge("miner/unsolved", nil)
	roundTimer       = metrics.NewRegisteredTimer("miner/round", nil)
	runLabel         = metrics.GetOrRegisterLabel("miner/run", nil)
)

// progressInterval spaces the progress logs of a long round.
const progressInterval = 30 * time.Second

// StopReason tells why a run ended.
type StopReason int

const (
	StopSolved StopReason = iota
	StopDeadline
	StopCancelled
	StopMaxRounds
	StopExhausted
)

func (r StopReason) String() string {
	switch r {
	case StopSolved:
		return "all targets solved"
	case StopDeadline:
		return "deadline reached"
	case StopCancelled:
		return "cancelled"
	case StopMaxRounds:
		return "round limit reached"
	case StopExhausted:
		return "no new candidates"
	default:
		return "unknown"
	}
}

// Solution is a program accepted for a target.
type Solution struct {
	Target   string
	Program  string // canonical text
	Round    int
	Messages []string // mutation trail of the candidate
}

// Report summarizes one run.
type Report struct {
	Solutions  []Solution
	Unsolved   []string
	Rounds     int // rounds completed after the seed round
	Candidates int // candidates evaluated, seeds included
	Duplicates int // mutated candidates dropped by the novelty filter
	Executions int64
	Partial    int64
	Rejected   int64 // dangerous false positives
	Failures   int64 // candidates that failed to execute
	Elapsed    time.Duration
	Stop       StopReason
}

// Scheduler drives the search. It is not safe for concurrent use; a single
// Run may evaluate candidates on several workers.
type Scheduler struct {
	config   *minerconfig.Config
	context  *suggest.Context
	resolver vm.Resolver
	cache    *vm.CallCache
	filter   *novelty.Filter

	partialLog  *log.EveryN
	progressLog *log.Every
	now         func() time.Time
}

// New creates a scheduler. The filter may be nil, in which case a fresh one
// is sized from the configuration.
func New(config *minerconfig.Config, mctx *suggest.Context, resolver vm.Resolver, filter *novelty.Filter) (*Scheduler, error) {
	cfg := *config
	minerconfig.ApplyDefaultMinerConfig(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if filter == nil {
		f, err := novelty.New(*cfg.Novelty.Size, *cfg.Novelty.FalsePositive)
		if err != nil {
			return nil, err
		}
		filter = f
	}
	return &Scheduler{
		config:      &cfg,
		context:     mctx,
		resolver:    resolver,
		cache:       vm.NewCallCache(cfg.VM.CallCacheSize),
		filter:      filter,
		partialLog:  &log.EveryN{N: *cfg.PartialLogEvery},
		progressLog: &log.Every{Interval: progressInterval},
		now:         time.Now,
	}, nil
}

// Filter returns the novelty filter shared by all runs.
func (s *Scheduler) Filter() *novelty.Filter { return s.filter }

// run is the state of one Run call.
type run struct {
	start    time.Time
	deadline time.Time
	unsolved []Target
	pool     []*genome.Genome
	solved   mapset.Set[string]
	report   *Report

	executions, partials, rejections, failures atomic.Int64
}

// Run searches programs for targets starting from seeds. It returns when
// every target is solved, the deadline passes, ctx is cancelled, the round
// limit is hit or no new candidate can be derived. The report is returned
// together with ctx.Err() on cancellation.
func (s *Scheduler) Run(ctx context.Context, targets []Target, seeds []*genome.Genome) (*Report, error) {
	start := s.now()
	r := &run{
		start:    start,
		deadline: start.Add(*s.config.Deadline),
		unsolved: append([]Target(nil), targets...),
		solved:   mapset.NewThreadUnsafeSet[string](),
		report:   new(Report),
	}
	for _, g := range seeds {
		r.pool = append(r.pool, g.Clone())
	}
	unsolvedGauge.Update(int64(len(r.unsolved)))
	runLabel.Mark(map[string]interface{}{
		"workers":   s.config.Workers,
		"base_seed": s.config.BaseSeed,
		"targets":   len(targets),
		"seeds":     len(seeds),
	})
	log.Info("Starting miner", "targets", len(targets), "seeds", len(seeds), "workers", s.config.Workers, "deadline", *s.config.Deadline)

	r.report.Stop = s.loop(ctx, r)

	r.report.Executions = r.executions.Load()
	r.report.Partial = r.partials.Load()
	r.report.Rejected = r.rejections.Load()
	r.report.Failures = r.failures.Load()
	r.report.Elapsed = s.now().Sub(start)
	for _, t := range r.unsolved {
		r.report.Unsolved = append(r.report.Unsolved, t.ID())
	}
	log.Info("Miner stopped", "reason", r.report.Stop, "solved", len(r.report.Solutions), "unsolved", len(r.unsolved),
		"rounds", r.report.Rounds, "candidates", r.report.Candidates, "elapsed", r.report.Elapsed)
	if r.report.Stop == StopCancelled {
		return r.report, ctx.Err()
	}
	return r.report, nil
}

func (s *Scheduler) loop(ctx context.Context, r *run) StopReason {
	// Round 0 checks the seeds as they are.
	candidates := s.seedCandidates(r.pool)
	for round := 0; ; round++ {
		if round > 0 {
			if max := s.config.MaxRounds; max > 0 && round > max {
				return StopMaxRounds
			}
			candidates = s.mutateCandidates(ctx, r, round)
			if len(candidates) == 0 {
				if reason, stop := s.interrupted(ctx, r); stop {
					return reason
				}
				return StopExhausted
			}
		}
		begin := s.now()
		reason, stop := s.evaluate(ctx, r, round, candidates)
		roundTimer.UpdateSince(begin)
		if round > 0 {
			r.report.Rounds = round
		}
		if stop {
			return reason
		}
		log.Debug("Finished round", "round", round, "candidates", len(candidates), "unsolved", len(r.unsolved), "pool", len(r.pool))
	}
}

// interrupted checks the deadline and ctx.
func (s *Scheduler) interrupted(ctx context.Context, r *run) (StopReason, bool) {
	if ctx.Err() != nil {
		return StopCancelled, true
	}
	if !s.now().Before(r.deadline) {
		return StopDeadline, true
	}
	return 0, false
}

type candidate struct {
	genome  *genome.Genome
	program *vm.Program
	text    string
}

func (s *Scheduler) seedCandidates(seeds []*genome.Genome) []candidate {
	out := make([]candidate, 0, len(seeds))
	for i, g := range seeds {
		program, err := g.Program()
		if err != nil {
			log.Warn("Skipping invalid seed", "index", i, "err", err)
			continue
		}
		text := g.Canonical()
		s.filter.Insert(text)
		out = append(out, candidate{genome: g, program: program, text: text})
	}
	return out
}

// mutateCandidates derives up to CandidatesPerSeed novel candidates from
// every seed in the pool.
func (s *Scheduler) mutateCandidates(ctx context.Context, r *run, round int) []candidate {
	var (
		out       []candidate
		iteration int64
	)
	for _, seed := range r.pool {
		produced := 0
		for i := 0; i < s.config.MaxMutationIterations && produced < s.config.CandidatesPerSeed; i++ {
			if ctx.Err() != nil {
				return out
			}
			rng := rand.New(rand.NewSource(int64(round)*roundSeedStride + iteration + s.config.BaseSeed))
			iteration++

			g := seed.Clone()
			changed := false
			for k := 0; k < s.config.MutationsPerCandidate; k++ {
				if g.Mutate(rng, s.context, &s.config.Weights) {
					changed = true
				}
			}
			if !changed {
				continue
			}
			program, err := g.Program()
			if err != nil {
				log.Trace("Dropping malformed candidate", "err", err)
				continue
			}
			text := g.Canonical()
			if !s.filter.Insert(text) {
				r.report.Duplicates++
				duplicateCounter.Inc(1)
				continue
			}
			out = append(out, candidate{genome: g, program: program, text: text})
			produced++
		}
	}
	return out
}

// evaluate checks every candidate against every unsolved target.
func (s *Scheduler) evaluate(ctx context.Context, r *run, round int, candidates []candidate) (StopReason, bool) {
	r.report.Candidates += len(candidates)
	candidateCounter.Inc(int64(len(candidates)))

	remaining := r.unsolved[:0:0]
	for i, target := range r.unsolved {
		if r.solved.Contains(target.ID()) {
			continue
		}
		if reason, stop := s.interrupted(ctx, r); stop {
			r.unsolved = append(remaining, r.unsolved[i:]...)
			return reason, true
		}
		log.InfoBy(s.progressLog, "Mining", "round", round, "target", target.ID(), "done", i, "unsolved", len(r.unsolved),
			"executions", r.executions.Load(), "elapsed", common.PrettyDuration(s.now().Sub(r.start)))
		winner, stopped := s.search(ctx, r, target, candidates)
		if winner >= 0 {
			s.accept(r, round, target, candidates[winner])
		} else {
			remaining = append(remaining, target)
		}
		if stopped {
			r.unsolved = append(remaining, r.unsolved[i+1:]...)
			reason, _ := s.interrupted(ctx, r)
			return reason, true
		}
	}
	r.unsolved = remaining
	unsolvedGauge.Update(int64(len(r.unsolved)))
	if len(r.unsolved) == 0 {
		return StopSolved, true
	}
	return 0, false
}

func (s *Scheduler) accept(r *run, round int, target Target, c candidate) {
	r.solved.Add(target.ID())
	r.report.Solutions = append(r.report.Solutions, Solution{
		Target:   target.ID(),
		Program:  c.text,
		Round:    round,
		Messages: c.genome.Messages(),
	})
	solutionCounter.Inc(1)
	log.Info("Solved target", "target", target.ID(), "round", round, "length", c.program.Len())

	if round > 0 {
		r.pool = append(r.pool, c.genome.Clone())
	}
}

// search returns the index of the first candidate fully matching target, or
// -1, and whether the run was interrupted. With several workers every
// candidate before the winner is still evaluated, so the winner does not
// depend on scheduling.
func (s *Scheduler) search(ctx context.Context, r *run, target Target, candidates []candidate) (int, bool) {
	var (
		next    atomic.Int64
		best    atomic.Int64
		stopped atomic.Bool
	)
	best.Store(int64(len(candidates)))

	workers := s.config.Workers
	if workers > len(candidates) {
		workers = len(candidates)
	}
	gopool.Workers(workers, func(int) {
		in := vm.NewInterpreter(s.config.VM, s.resolver, s.cache)
		for {
			i := next.Add(1) - 1
			if i >= best.Load() || stopped.Load() {
				return
			}
			if _, stop := s.interrupted(ctx, r); stop {
				stopped.Store(true)
				return
			}
			if s.check(r, in, target, candidates[i]) {
				for {
					cur := best.Load()
					if i >= cur || best.CompareAndSwap(cur, i) {
						break
					}
				}
			}
		}
	})
	if winner := best.Load(); winner < int64(len(candidates)) {
		return int(winner), false
	}
	return -1, stopped.Load()
}

// check classifies one candidate and reports whether it is accepted.
func (s *Scheduler) check(r *run, in *vm.Interpreter, target Target, c candidate) bool {
	r.executions.Add(1)
	executionCounter.Inc(1)
	match, results := Classify(in, c.program, target)
	switch match {
	case FullMatch:
		return true
	case PartialMatch:
		r.partials.Add(1)
		partialCounter.Inc(1)
		var passed int
		for _, res := range results {
			if res.Pass {
				passed++
			}
		}
		log.InfoBy(s.partialLog, "Partial match", "target", target.ID(), "passed", passed, "cases", len(target.Cases()))
	case DangerousFalsePositive:
		r.rejections.Add(1)
		rejectedCounter.Inc(1)
		log.Debug("Rejected candidate echoing its input", "target", target.ID())
	default:
		if n := len(results); n > 0 && results[n-1].Err != nil {
			r.failures.Add(1)
			failureCounter.Inc(1)
			if !errors.Is(results[n-1].Err, vm.ErrLoopIterationLimitExceeded) {
				log.Trace("Candidate failed", "target", target.ID(), "err", results[n-1].Err)
			}
		}
	}
	return false
}
