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
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/lodaminer/lodaminer/common"
)

var statsCommand = &cli.Command{
	Action: corpusStats,
	Name:   "stats",
	Usage:  "Print the statistics the miner derives from the corpus",
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:  "top",
			Usage: "Number of most called programs to list",
			Value: 10,
		},
	}, corpusFlags...),
	Description: `
The stats command loads the corpus and prints the size of every statistics
table used by the mutation operators, followed by the most called programs.`,
}

func corpusStats(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	c, err := loadCorpus(ctx.Context, cfg.Corpus)
	if err != nil {
		return err
	}

	var stats [][]string
	for _, s := range c.context.Stats() {
		stats = append(stats, []string{s.Table.String(), strconv.Itoa(s.Entries)})
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Table", "Entries"})
	table.SetFooter([]string{"Programs", strconv.Itoa(len(c.ids))})
	table.AppendBulk(stats)
	table.Render()

	popularity := c.context.Popularity()
	if popularity == nil || popularity.Len() == 0 {
		return nil
	}
	top := popularity.Most()
	if n := ctx.Int("top"); len(top) > n {
		top = top[:n]
	}
	table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Program", "Callers"})
	for _, id := range top {
		table.Append([]string{common.ProgramName(id), strconv.FormatUint(uint64(popularity.Calls(id)), 10)})
	}
	table.Render()
	return nil
}
