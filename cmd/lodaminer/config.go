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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/lodaminer/lodaminer/miner/minerconfig"
)

var dumpConfigCommand = &cli.Command{
	Action:    dumpConfig,
	Name:      "dumpconfig",
	Usage:     "Export configuration values in a TOML format",
	ArgsUsage: "<dumpfile (optional)>",
	Flags:     append(minerFlags, corpusFlags...),
	Description: `Export configuration values in TOML format (to stdout by default).
Values given by flags override the ones read with --config.`,
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type corpusConfig struct {
	Dir       string   // Root of the program corpus
	CacheSize int      // Resolved programs kept in memory
	Workers   int      // Concurrent program loads, 0 picks one per CPU
	Seeds     []uint64 `toml:",omitempty"` // Programs mutated by the miner, empty seeds every corpus program
	Recent    []uint64 `toml:",omitempty"` // Programs offered by CallRecentProgram
}

type lodaConfig struct {
	Miner   minerconfig.Config
	Corpus  corpusConfig
	Targets string
	Metrics string // Address of the metrics endpoint, empty disables it
}

func loadConfig(file string, cfg *lodaConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the flags
// on top of it.
func makeConfig(ctx *cli.Context) (*lodaConfig, error) {
	cfg := &lodaConfig{Miner: minerconfig.DefaultConfig}
	// Optional settings are filled after decoding, so the file never writes
	// through the pointers shared with the defaults.
	cfg.Miner.Deadline, cfg.Miner.PartialLogEvery = nil, nil
	cfg.Miner.Novelty = minerconfig.NoveltyConfig{}
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			return nil, err
		}
	}
	minerconfig.ApplyDefaultMinerConfig(&cfg.Miner)

	if ctx.IsSet(corpusDirFlag.Name) {
		cfg.Corpus.Dir = ctx.String(corpusDirFlag.Name)
	}
	if ctx.IsSet(corpusCacheFlag.Name) {
		cfg.Corpus.CacheSize = ctx.Int(corpusCacheFlag.Name)
	}
	if ctx.IsSet(loadWorkersFlag.Name) {
		cfg.Corpus.Workers = ctx.Int(loadWorkersFlag.Name)
	}
	if ctx.IsSet(targetsFlag.Name) {
		cfg.Targets = ctx.String(targetsFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		cfg.Metrics = ctx.String(metricsAddrFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Miner.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(roundsFlag.Name) {
		cfg.Miner.MaxRounds = ctx.Int(roundsFlag.Name)
	}
	if ctx.IsSet(deadlineFlag.Name) {
		deadline := ctx.Duration(deadlineFlag.Name)
		cfg.Miner.Deadline = &deadline
	}
	if ctx.IsSet(seedFlag.Name) {
		cfg.Miner.BaseSeed = ctx.Int64(seedFlag.Name)
	}
	if ctx.IsSet(noveltyFileFlag.Name) {
		cfg.Miner.Novelty.File = ctx.String(noveltyFileFlag.Name)
	}
	if err := cfg.Miner.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.WriteString("# Note: this config doesn't contain the novelty filter state.\n\n")
	dump.Write(out)

	return nil
}
