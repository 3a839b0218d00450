// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// blockexec executes blocks and builds bundle blocks from JSON fixtures.
package main

import (
	"fmt"
	"os"

	"github.com/bnb-chain/blockexec/internal/debug"
	"github.com/urfave/cli/v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	fixtureFlag = &cli.StringFlag{
		Name:     "fixture",
		Usage:    "JSON fixture to run",
		Required: true,
	}
)

func newApp() *cli.App {
	app := &cli.App{
		Name:  "blockexec",
		Usage: "the block execution core command line interface",
		Flags: append([]cli.Flag{configFileFlag}, debug.Flags...),
		Commands: []*cli.Command{
			executeCommand,
			selectCommand,
			buildCommand,
			dumpConfigCommand,
		},
		Before: debug.Setup,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
