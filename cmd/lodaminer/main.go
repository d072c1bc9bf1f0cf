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

// lodaminer is the command-line client for evaluating and mining LODA programs.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/exp/slog"

	"github.com/lodaminer/lodaminer/log"
	"github.com/lodaminer/lodaminer/metrics"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""

	// fileWriter is the hour-rotated log file, flushed when the app exits.
	fileWriter *log.AsyncFileWriter

	app = &cli.App{
		Name:      "lodaminer",
		Usage:     "the LODA program miner",
		Version:   version(),
		Copyright: "Copyright 2024 The lodaminer Authors",
	}
)

func init() {
	app.Flags = append([]cli.Flag{configFileFlag}, logFlags...)
	app.Commands = []*cli.Command{
		evalCommand,
		mineCommand,
		mutateCommand,
		statsCommand,
		dumpConfigCommand,
	}
	app.Before = setupLogging
	app.After = func(ctx *cli.Context) error {
		if fileWriter != nil {
			fileWriter.Stop()
		}
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func version() string {
	if gitCommit == "" {
		return "unstable"
	}
	if len(gitCommit) > 8 {
		return "unstable-" + gitCommit[:8]
	}
	return "unstable-" + gitCommit
}

// logQueueLen bounds the records buffered for the rotated log file.
const logQueueLen = 10000

// setupLogging installs the root logger from the logging flags. Records go
// to stderr, and additionally to a rotated file when one is given.
func setupLogging(ctx *cli.Context) error {
	level, err := log.ParseLevel(ctx.String(verbosityFlag.Name))
	if err != nil {
		return err
	}
	var (
		output   = io.Writer(os.Stderr)
		useColor = (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if useColor {
		output = colorable.NewColorableStderr()
	}
	var handler slog.Handler
	if ctx.Bool(logJSONFlag.Name) {
		handler = log.JSONHandlerWithLevel(output, level)
	} else {
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	if path := ctx.String(logFileFlag.Name); path != "" {
		var file io.Writer
		if hours := ctx.Uint(logRotateHoursFlag.Name); hours > 0 {
			w := log.NewAsyncFileWriter(path, logQueueLen, ctx.Int(logMaxSizeFlag.Name), hours)
			if err := w.Start(); err != nil {
				return err
			}
			fileWriter = w
			file = w
		} else {
			file = log.NewFileWriter(log.FileConfig{
				Path:       path,
				MaxSizeMB:  ctx.Int(logMaxSizeFlag.Name),
				MaxBackups: ctx.Int(logMaxBackupsFlag.Name),
				Compress:   ctx.Bool(logCompressFlag.Name),
			})
		}
		handler = log.MultiHandler(handler, log.JSONHandlerWithLevel(file, level))
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

// startMetrics serves the metrics registry on addr until the process exits.
func startMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.DefaultRegistry.Handler())
	log.Info("Starting metrics server", "addr", fmt.Sprintf("http://%s/metrics", addr))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Failure in running metrics server", "err", err)
		}
	}()
}
