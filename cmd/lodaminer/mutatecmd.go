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
	"fmt"
	"math/rand"

	"github.com/urfave/cli/v2"

	"github.com/lodaminer/lodaminer/miner/genome"
	"github.com/lodaminer/lodaminer/miner/suggest"
)

var mutateCommand = &cli.Command{
	Action:    mutateProgram,
	Name:      "mutate",
	Usage:     "Apply random mutations to a program",
	ArgsUsage: "<program.asm>",
	Flags: append([]cli.Flag{
		mutationsFlag,
		mutateSeedFlag,
	}, corpusFlags...),
	Description: `
The mutate command applies --mutations operators, drawn with the configured
weights, to a program and prints the result followed by the trail of applied
operators. Without --corpus only the operators that need no corpus statistics
can change the program.`,
}

func mutateProgram(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	program, err := readProgram(ctx)
	if err != nil {
		return err
	}
	var mctx *suggest.Context
	if cfg.Corpus.Dir != "" {
		c, err := loadCorpus(ctx.Context, cfg.Corpus)
		if err != nil {
			return err
		}
		mctx = c.context
	}
	var (
		g   = genome.New(program)
		rng = rand.New(rand.NewSource(ctx.Int64(mutateSeedFlag.Name)))
	)
	for i := 0; i < ctx.Int(mutationsFlag.Name); i++ {
		g.Mutate(rng, mctx, &cfg.Miner.Weights)
	}
	fmt.Println(g.Canonical())
	for _, msg := range g.Messages() {
		fmt.Println(";", msg)
	}
	return nil
}
