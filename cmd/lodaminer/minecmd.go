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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/lodaminer/lodaminer/common"
	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/miner"
	"github.com/lodaminer/lodaminer/miner/novelty"
)

var mineCommand = &cli.Command{
	Action: mine,
	Name:   "mine",
	Usage:  "Search programs for a set of targets",
	Flags: append(append([]cli.Flag{
		outDirFlag,
	}, minerFlags...), corpusFlags...),
	Description: `
The mine command loads the corpus, checks the corpus programs against every
target and then mutates them round after round until all targets are solved,
the deadline passes or the process is interrupted. Solutions are reported in a
table and optionally written to the --out directory.`,
}

func mine(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Targets == "" {
		return errors.New("no targets file given (--targets)")
	}
	targets, err := miner.LoadTargets(cfg.Targets)
	if err != nil {
		return err
	}
	if file := cfg.Miner.Novelty.File; file != "" {
		lock := flock.New(file + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return err
		}
		if !locked {
			return fmt.Errorf("novelty filter %s is used by another miner", file)
		}
		defer lock.Unlock()
	}
	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(cfg.Metrics)
	c, err := loadCorpus(runCtx, cfg.Corpus)
	if err != nil {
		return err
	}
	seeds, err := c.seeds(cfg.Corpus.Seeds)
	if err != nil {
		return err
	}
	filter, err := openFilter(cfg.Miner.Novelty.File, *cfg.Miner.Novelty.Size, *cfg.Miner.Novelty.FalsePositive)
	if err != nil {
		return err
	}
	if *cfg.Miner.Novelty.SeedCorpus {
		c.seedFilter(filter)
	}

	scheduler, err := miner.New(&cfg.Miner, c.context, c.manager, filter)
	if err != nil {
		return err
	}
	report, runErr := scheduler.Run(runCtx, targets, seeds)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if file := cfg.Miner.Novelty.File; file != "" {
		if err := filter.Save(file); err != nil {
			log.Error("Failed to save novelty filter", "file", file, "err", err)
		}
	}
	if dir := ctx.String(outDirFlag.Name); dir != "" {
		if err := writeSolutions(dir, report.Solutions); err != nil {
			return err
		}
	}
	printReport(report)
	return nil
}

// openFilter loads the persisted filter if there is one, or creates an
// empty filter.
func openFilter(file string, size uint64, fp float64) (*novelty.Filter, error) {
	if file != "" {
		if _, err := os.Stat(file); err == nil {
			return novelty.Load(file)
		}
	}
	return novelty.New(size, fp)
}

func writeSolutions(dir string, solutions []miner.Solution) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, s := range solutions {
		var b strings.Builder
		fmt.Fprintf(&b, "; %s\n", s.Target)
		for _, msg := range s.Messages {
			fmt.Fprintf(&b, "; %s\n", msg)
		}
		b.WriteString(s.Program)
		b.WriteString("\n")
		path := filepath.Join(dir, s.Target+".asm")
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			return err
		}
		log.Debug("Wrote solution", "path", path)
	}
	return nil
}

func printReport(report *miner.Report) {
	if len(report.Solutions) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Target", "Round", "Length", "Mutations"})
		for _, s := range report.Solutions {
			table.Append([]string{
				s.Target,
				strconv.Itoa(s.Round),
				strconv.Itoa(strings.Count(s.Program, "\n") + 1),
				strconv.Itoa(len(s.Messages)),
			})
		}
		table.Render()
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"Stop", report.Stop.String()},
		{"Solved", strconv.Itoa(len(report.Solutions))},
		{"Unsolved", strconv.Itoa(len(report.Unsolved))},
		{"Rounds", strconv.Itoa(report.Rounds)},
		{"Candidates", strconv.Itoa(report.Candidates)},
		{"Duplicates", strconv.Itoa(report.Duplicates)},
		{"Executions", strconv.FormatInt(report.Executions, 10)},
		{"Partial matches", strconv.FormatInt(report.Partial, 10)},
		{"Rejected", strconv.FormatInt(report.Rejected, 10)},
		{"Failures", strconv.FormatInt(report.Failures, 10)},
		{"Elapsed", common.PrettyDuration(report.Elapsed).String()},
	})
	table.Render()
}
