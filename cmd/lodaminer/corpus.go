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
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lodaminer/lodaminer/common"
	"github.com/lodaminer/lodaminer/common/gopool"
	"github.com/lodaminer/lodaminer/core/dependency"
	"github.com/lodaminer/lodaminer/core/vm"
	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/miner/genome"
	"github.com/lodaminer/lodaminer/miner/novelty"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

// defaultRecent is how many of the highest program ids count as recent
// when the configuration lists none.
const defaultRecent = 1000

// corpus is the set of known programs the miner learns from.
type corpus struct {
	manager  *dependency.Manager
	ids      []uint64 // programs that resolved, ascending
	programs map[uint64]*vm.Program
	context  *suggest.Context
}

// loadCorpus resolves every program below cfg.Dir and builds the mutation
// context from them. Programs that fail to resolve are skipped.
func loadCorpus(ctx context.Context, cfg corpusConfig) (*corpus, error) {
	if cfg.Dir == "" {
		return nil, errors.New("no corpus directory given (--corpus)")
	}
	start := time.Now()
	loader := dependency.NewDirLoader(cfg.Dir)
	ids, err := loader.IDs()
	if err != nil {
		return nil, errors.Wrapf(err, "list corpus %s", cfg.Dir)
	}
	manager := dependency.NewManager(loader, cfg.CacheSize)

	workers := cfg.Workers
	if workers <= 0 {
		workers = gopool.Threads(len(ids))
	}
	var (
		resolved = make([]*vm.Program, len(ids))
		skipped  atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			program, err := manager.Resolve(id)
			if err != nil {
				skipped.Add(1)
				log.Debug("Skipping corpus program", "id", common.ProgramName(id), "err", err)
				return nil
			}
			resolved[i] = program
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &corpus{manager: manager, programs: make(map[uint64]*vm.Program, len(ids))}
	builder := suggest.NewBuilder()
	for i, id := range ids {
		if resolved[i] == nil {
			continue
		}
		c.ids = append(c.ids, id)
		c.programs[id] = resolved[i]
		builder.AddProgram(id, resolved[i])
	}
	recent := cfg.Recent
	if len(recent) == 0 {
		recent = c.ids[max(0, len(c.ids)-defaultRecent):]
	}
	builder.AddRecent(recent...)
	builder.SetPrograms(manager)
	c.context = builder.Build()

	log.Info("Loaded corpus", "dir", cfg.Dir, "programs", len(c.ids), "skipped", skipped.Load(),
		"elapsed", common.PrettyDuration(time.Since(start)))
	return c, nil
}

// seeds returns the genomes the miner starts from: the configured seed
// programs, or the whole corpus.
func (c *corpus) seeds(ids []uint64) ([]*genome.Genome, error) {
	if len(ids) == 0 {
		ids = c.ids
	}
	seeds := make([]*genome.Genome, 0, len(ids))
	for _, id := range ids {
		program, ok := c.programs[id]
		if !ok {
			return nil, errors.Errorf("seed program %s is not in the corpus", common.ProgramName(id))
		}
		seeds = append(seeds, genome.New(program))
	}
	return seeds, nil
}

// seedFilter marks every corpus program as already known.
func (c *corpus) seedFilter(filter *novelty.Filter) {
	var added int
	for _, id := range c.ids {
		if filter.InsertProgram(c.programs[id]) {
			added++
		}
	}
	log.Info("Seeded novelty filter", "programs", len(c.ids), "new", added)
}
