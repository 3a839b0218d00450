// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package debug configures logging and profiling from command line flags.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	vmoduleFlag = &cli.StringFlag{
		Name:  "vmodule",
		Usage: "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. core/*=5,miner=4)",
	}
	logjsonFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs with JSON",
	}
	logFilenameFlag = &cli.StringFlag{
		Name:  "log.filename",
		Usage: "The target file for writing logs, backup log files will be retained in the same directory.",
	}
	logFileMaxSizeFlag = &cli.IntFlag{
		Name:  "log.maxsize",
		Usage: "The maximum size in megabytes of the log file before it gets rotated. It is used only when log.filename is provided.",
		Value: 100,
	}
	logMaxAgeFlag = &cli.IntFlag{
		Name:  "log.maxage",
		Usage: "The maximum number of days to retain old log files. It is used only when log.filename is provided.",
		Value: 30,
	}
	logCompressFlag = &cli.BoolFlag{
		Name:  "log.compress",
		Usage: "Compress the rotated log files using gzip. It is used only when log.filename is provided.",
	}
	pprofFlag = &cli.BoolFlag{
		Name:  "pprof",
		Usage: "Enable the pprof HTTP server",
	}
	pprofAddrFlag = &cli.StringFlag{
		Name:  "pprof.addr",
		Usage: "pprof HTTP server listening interface",
		Value: "127.0.0.1",
	}
	pprofPortFlag = &cli.IntFlag{
		Name:  "pprof.port",
		Usage: "pprof HTTP server listening port",
		Value: 6060,
	}
)

// Flags holds all command-line flags required for debugging.
var Flags = []cli.Flag{
	verbosityFlag,
	vmoduleFlag,
	logjsonFlag,
	logFilenameFlag,
	logFileMaxSizeFlag,
	logMaxAgeFlag,
	logCompressFlag,
	pprofFlag,
	pprofAddrFlag,
	pprofPortFlag,
}

// LogConfig is the logging part of the debug flags.
type LogConfig struct {
	Verbosity int
	Vmodule   string
	JSON      bool

	Filename string
	MaxSize  int // megabytes
	MaxAge   int // days
	Compress bool
}

// Setup initializes profiling and logging based on the CLI flags.
// It should be called as early as possible in the program.
func Setup(ctx *cli.Context) error {
	cfg := LogConfig{
		Verbosity: ctx.Int(verbosityFlag.Name),
		Vmodule:   ctx.String(vmoduleFlag.Name),
		JSON:      ctx.Bool(logjsonFlag.Name),
		Filename:  ctx.String(logFilenameFlag.Name),
		MaxSize:   ctx.Int(logFileMaxSizeFlag.Name),
		MaxAge:    ctx.Int(logMaxAgeFlag.Name),
		Compress:  ctx.Bool(logCompressFlag.Name),
	}
	if err := SetupLogging(cfg, os.Stderr); err != nil {
		return err
	}
	if ctx.Bool(pprofFlag.Name) {
		address := fmt.Sprintf("%s:%d", ctx.String(pprofAddrFlag.Name), ctx.Int(pprofPortFlag.Name))
		StartPProf(address)
	}
	return nil
}

// SetupLogging installs the default logger writing to stderr and, if a
// file name is configured, to a rotated log file.
func SetupLogging(cfg LogConfig, stderr *os.File) error {
	var (
		output   = io.Writer(stderr)
		usecolor = (isatty.IsTerminal(stderr.Fd()) || isatty.IsCygwinTerminal(stderr.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if usecolor && !cfg.JSON {
		output = colorable.NewColorable(stderr)
	}
	if cfg.Filename != "" {
		if cfg.MaxSize < 1 {
			return fmt.Errorf("wrong log.maxsize set: %d", cfg.MaxSize)
		}
		if cfg.MaxAge < 1 {
			return fmt.Errorf("wrong log.maxage set: %d", cfg.MaxAge)
		}
		output = io.MultiWriter(output, &lumberjack.Logger{
			Filename: cfg.Filename,
			MaxSize:  cfg.MaxSize,
			MaxAge:   cfg.MaxAge,
			Compress: cfg.Compress,
		})
		usecolor = false
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = log.JSONHandler(output)
	} else {
		handler = log.NewTerminalHandler(output, usecolor)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(cfg.Verbosity))
	if err := glogger.Vmodule(cfg.Vmodule); err != nil {
		return fmt.Errorf("wrong vmodule set: %w", err)
	}
	log.SetDefault(log.NewLogger(glogger))
	return nil
}

// StartPProf serves pprof and the metrics registry on address.
func StartPProf(address string) {
	// Hook go-metrics into expvar on any /debug/metrics request, load all vars
	// from the registry into expvar, and execute regular expvar handler.
	exp.Exp(metrics.DefaultRegistry)
	log.Info("Starting pprof server", "addr", fmt.Sprintf("http://%s/debug/pprof", address))
	go func() {
		if err := http.ListenAndServe(address, nil); err != nil {
			log.Error("Failure in running pprof server", "err", err)
		}
	}()
}
