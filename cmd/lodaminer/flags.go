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
	"github.com/urfave/cli/v2"
)

const (
	loggingCategory = "LOGGING AND DEBUGGING"
	minerCategory   = "MINER"
	corpusCategory  = "CORPUS"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}

	// Logging
	verbosityFlag = &cli.StringFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: trace, debug, info, warn, error, crit",
		Value:    "info",
		Category: loggingCategory,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format console logs with JSON",
		Category: loggingCategory,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file as well, in JSON",
		Category: loggingCategory,
	}
	logMaxSizeFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in megabytes of the log file before it gets rotated",
		Value:    100,
		Category: loggingCategory,
	}
	logMaxBackupsFlag = &cli.IntFlag{
		Name:     "log.maxbackups",
		Usage:    "Maximum number of log files to retain",
		Value:    10,
		Category: loggingCategory,
	}
	logCompressFlag = &cli.BoolFlag{
		Name:     "log.compress",
		Usage:    "Compress the rotated log files",
		Category: loggingCategory,
	}
	logRotateHoursFlag = &cli.UintFlag{
		Name:     "log.rotate",
		Usage:    "Rotate the log file every this many hours, 0 rotates by size only",
		Category: loggingCategory,
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "Serve prometheus metrics on this address, e.g. 127.0.0.1:6060",
		Category: loggingCategory,
	}

	logFlags = []cli.Flag{
		verbosityFlag,
		logJSONFlag,
		logFileFlag,
		logMaxSizeFlag,
		logMaxBackupsFlag,
		logCompressFlag,
		logRotateHoursFlag,
	}

	// Corpus
	corpusDirFlag = &cli.StringFlag{
		Name:     "corpus",
		Usage:    "Directory holding the program corpus (oeis/<nnn>/A<nnnnnn>.asm)",
		Category: corpusCategory,
	}
	corpusCacheFlag = &cli.IntFlag{
		Name:     "corpus.cache",
		Usage:    "Number of resolved programs kept in memory",
		Category: corpusCategory,
	}
	loadWorkersFlag = &cli.IntFlag{
		Name:     "corpus.workers",
		Usage:    "Concurrent program loads, 0 picks one per CPU",
		Category: corpusCategory,
	}

	// Miner
	targetsFlag = &cli.StringFlag{
		Name:     "targets",
		Usage:    "YAML file listing the targets to mine",
		Category: minerCategory,
	}
	workersFlag = &cli.IntFlag{
		Name:     "miner.workers",
		Usage:    "Goroutines evaluating candidates",
		Category: minerCategory,
	}
	roundsFlag = &cli.IntFlag{
		Name:     "miner.rounds",
		Usage:    "Mutation rounds after the seed round, 0 means unbounded",
		Category: minerCategory,
	}
	deadlineFlag = &cli.DurationFlag{
		Name:     "miner.deadline",
		Usage:    "Wall clock budget of the run",
		Category: minerCategory,
	}
	seedFlag = &cli.Int64Flag{
		Name:     "miner.seed",
		Usage:    "Base seed of the mutation RNG",
		Category: minerCategory,
	}
	noveltyFileFlag = &cli.StringFlag{
		Name:     "novelty.file",
		Usage:    "Load and save the novelty filter at this path",
		Category: minerCategory,
	}
	outDirFlag = &cli.StringFlag{
		Name:     "out",
		Usage:    "Write solutions as <out>/<target>.asm",
		Category: minerCategory,
	}

	corpusFlags = []cli.Flag{
		corpusDirFlag,
		corpusCacheFlag,
		loadWorkersFlag,
	}
	minerFlags = []cli.Flag{
		targetsFlag,
		workersFlag,
		roundsFlag,
		deadlineFlag,
		seedFlag,
		noveltyFileFlag,
		metricsAddrFlag,
	}

	// Per command
	termsFlag = &cli.IntFlag{
		Name:  "terms",
		Usage: "Number of terms to evaluate",
		Value: 10,
	}
	offsetFlag = &cli.Int64Flag{
		Name:  "offset",
		Usage: "Input of the first term",
	}
	stepsFlag = &cli.BoolFlag{
		Name:  "steps",
		Usage: "Show executed steps per term",
	}
	mutationsFlag = &cli.IntFlag{
		Name:  "mutations",
		Usage: "Number of mutations to apply",
		Value: 1,
	}
	mutateSeedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "Seed of the mutation RNG",
	}
)
