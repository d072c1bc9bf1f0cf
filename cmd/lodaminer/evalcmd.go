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
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/lodaminer/lodaminer/core/asm"
	"github.com/lodaminer/lodaminer/core/dependency"
	"github.com/lodaminer/lodaminer/core/vm"
)

var evalCommand = &cli.Command{
	Action:    evalProgram,
	Name:      "eval",
	Usage:     "Evaluate a program for consecutive inputs",
	ArgsUsage: "<program.asm>",
	Flags: append([]cli.Flag{
		termsFlag,
		offsetFlag,
		stepsFlag,
	}, corpusFlags...),
	Description: `
The eval command runs a program for the inputs offset, offset+1, ... and prints
the values left in register $0. Programs invoked with seq are read from the
corpus directory. Evaluation stops at the first failing input.`,
}

// readProgram parses the program file named by the first argument.
func readProgram(ctx *cli.Context) (*vm.Program, error) {
	if ctx.NArg() != 1 {
		return nil, errors.New("expected exactly one program file")
	}
	file := ctx.Args().First()
	blob, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	program, err := asm.ParseProgram(string(blob))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", file)
	}
	return program, nil
}

// newResolver serves seq calls from the corpus directory, if one is known.
func newResolver(cfg corpusConfig) vm.Resolver {
	if cfg.Dir == "" {
		return nil
	}
	return dependency.NewManager(dependency.NewDirLoader(cfg.Dir), cfg.CacheSize)
}

func evalProgram(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	program, err := readProgram(ctx)
	if err != nil {
		return err
	}
	var (
		in     = vm.NewInterpreter(cfg.Miner.VM, newResolver(cfg.Corpus), vm.NewCallCache(cfg.Miner.VM.CallCacheSize))
		offset = ctx.Int64(offsetFlag.Name)
		terms  = make([]string, 0, ctx.Int(termsFlag.Name))
		rows   [][]string
	)
	for i := 0; i < ctx.Int(termsFlag.Name); i++ {
		input := offset + int64(i)
		out, state, err := in.Evaluate(program, input)
		if err != nil {
			if len(terms) > 0 {
				fmt.Println(strings.Join(terms, ","))
			}
			return errors.Wrapf(err, "evaluate input %d", input)
		}
		terms = append(terms, vm.FormatValue(out))
		rows = append(rows, []string{strconv.FormatInt(input, 10), terms[i], strconv.FormatUint(state.Steps(), 10)})
	}
	if !ctx.Bool(stepsFlag.Name) {
		fmt.Println(strings.Join(terms, ","))
		return nil
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Input", "Output", "Steps"})
	table.AppendBulk(rows)
	table.Render()
	return nil
}
