// Copyright 2014 The go-ethereum Authors
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

// Package minerconfig holds the block building configuration.
package minerconfig

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// Default MEV-related configurations
var (
	defaultMevEnabled        = true
	defaultMaxMergedBundles  = uint64(1)
	defaultSimulationWorkers = 4
	defaultSimulationTimeout = 500 * time.Millisecond
	defaultSystemTxsGas      = uint64(1_000_000)
)

// Config is the configuration parameters of block building.
type Config struct {
	Etherbase common.Address `toml:",omitempty"` // Public address for block rewards and bundle payments
	GasCeil   uint64         // Target gas ceiling for built blocks.

	SystemTxsGas *uint64 `toml:",omitempty"` // Gas kept free of bundles for the block's system transactions

	Mev MevConfig // Mev configuration
}

// DefaultConfig contains default settings for the miner.
var DefaultConfig = Config{
	GasCeil:      100000000,
	SystemTxsGas: &defaultSystemTxsGas,

	Mev: DefaultMevConfig,
}

type MevConfig struct {
	Enabled           *bool          `toml:",omitempty"` // Whether to merge bundles into blocks
	MaxMergedBundles  *uint64        `toml:",omitempty"` // Maximum number of bundles included in one block
	MinBundleGasPrice *big.Int       `toml:",omitempty"` // Bundles simulated below this adjusted gas price are dropped
	SimulationWorkers *int           `toml:",omitempty"` // Number of bundles simulated concurrently
	SimulationTimeout *time.Duration `toml:",omitempty"` // Deadline for simulating the pending bundles of one block
}

var DefaultMevConfig = MevConfig{
	Enabled:           &defaultMevEnabled,
	MaxMergedBundles:  &defaultMaxMergedBundles,
	MinBundleGasPrice: new(big.Int),
	SimulationWorkers: &defaultSimulationWorkers,
	SimulationTimeout: &defaultSimulationTimeout,
}

func ApplyDefaultMinerConfig(cfg *Config) {
	if cfg == nil {
		log.Warn("ApplyDefaultMinerConfig cfg == nil")
		return
	}

	if cfg.GasCeil == 0 {
		cfg.GasCeil = DefaultConfig.GasCeil
		log.Info("ApplyDefaultMinerConfig", "GasCeil", cfg.GasCeil)
	}
	if cfg.SystemTxsGas == nil {
		cfg.SystemTxsGas = &defaultSystemTxsGas
		log.Info("ApplyDefaultMinerConfig", "SystemTxsGas", *cfg.SystemTxsGas)
	}

	// check [Miner.Mev]
	if cfg.Mev.Enabled == nil {
		cfg.Mev.Enabled = &defaultMevEnabled
		log.Info("ApplyDefaultMinerConfig", "Mev.Enabled", *cfg.Mev.Enabled)
	}
	if cfg.Mev.MaxMergedBundles == nil {
		cfg.Mev.MaxMergedBundles = &defaultMaxMergedBundles
		log.Info("ApplyDefaultMinerConfig", "Mev.MaxMergedBundles", *cfg.Mev.MaxMergedBundles)
	}
	if cfg.Mev.MinBundleGasPrice == nil {
		cfg.Mev.MinBundleGasPrice = new(big.Int)
		log.Info("ApplyDefaultMinerConfig", "Mev.MinBundleGasPrice", cfg.Mev.MinBundleGasPrice)
	}
	if cfg.Mev.SimulationWorkers == nil || *cfg.Mev.SimulationWorkers <= 0 {
		cfg.Mev.SimulationWorkers = &defaultSimulationWorkers
		log.Info("ApplyDefaultMinerConfig", "Mev.SimulationWorkers", *cfg.Mev.SimulationWorkers)
	}
	if cfg.Mev.SimulationTimeout == nil {
		cfg.Mev.SimulationTimeout = &defaultSimulationTimeout
		log.Info("ApplyDefaultMinerConfig", "Mev.SimulationTimeout", *cfg.Mev.SimulationTimeout)
	}
}
