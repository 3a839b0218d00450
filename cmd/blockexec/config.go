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

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/bnb-chain/blockexec/core"
	"github.com/bnb-chain/blockexec/core/txpool/bundlepool"
	"github.com/bnb-chain/blockexec/miner/minerconfig"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

var dumpConfigCommand = &cli.Command{
	Action:    dumpConfig,
	Name:      "dumpconfig",
	Usage:     "Export configuration values in a TOML format",
	ArgsUsage: "<dumpfile (optional)>",
	Description: `
The dumpconfig command shows configuration values.`,
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
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type blockexecConfig struct {
	Executor   core.Config
	Miner      minerconfig.Config
	BundlePool bundlepool.Config
}

// defaultConfig leaves the miner's optional fields nil so that decoding
// never writes through the package level defaults.
func defaultConfig() blockexecConfig {
	return blockexecConfig{
		Executor:   core.DefaultConfig,
		Miner:      minerconfig.Config{GasCeil: minerconfig.DefaultConfig.GasCeil},
		BundlePool: bundlepool.DefaultConfig,
	}
}

func loadConfig(file string, cfg *blockexecConfig) error {
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

// makeConfig loads the configuration file if one is given and fills in
// the defaults of anything left unset.
func makeConfig(ctx *cli.Context) (blockexecConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	minerconfig.ApplyDefaultMinerConfig(&cfg.Miner)
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = f.Write(out)
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}
