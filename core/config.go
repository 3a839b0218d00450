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

package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
)

// FaultPolicy decides what the block executor does when a transaction
// cannot be applied.
type FaultPolicy uint8

const (
	// ContinueOnFault records the fault in the transaction's receipt and
	// moves on to the next transaction. Validation failures are still
	// reported to the caller once the block is done.
	ContinueOnFault FaultPolicy = iota
	// AbortOnFault stops the block at the first fault.
	AbortOnFault
)

func (p FaultPolicy) String() string {
	switch p {
	case ContinueOnFault:
		return "continue"
	case AbortOnFault:
		return "abort"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", uint8(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p FaultPolicy) MarshalText() ([]byte, error) {
	switch p {
	case ContinueOnFault, AbortOnFault:
		return []byte(p.String()), nil
	default:
		return nil, fmt.Errorf("unknown fault policy %d", uint8(p))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *FaultPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "continue":
		*p = ContinueOnFault
	case "abort":
		*p = AbortOnFault
	default:
		return fmt.Errorf(`unknown fault policy %q, want "continue" or "abort"`, text)
	}
	return nil
}

// Config are the configuration parameters of block execution.
type Config struct {
	FaultPolicy  FaultPolicy // What to do when a transaction faults
	BloomWorkers int         // Worker count of the async bloom generator, 0 computes blooms inline
}

// DefaultConfig contains the default configurations for block execution.
var DefaultConfig = Config{
	FaultPolicy:  ContinueOnFault,
	BloomWorkers: 0,
}

// sanitize checks the provided user configurations and changes anything
// that's unreasonable or unworkable.
func (config *Config) sanitize() Config {
	conf := *config
	if conf.FaultPolicy != ContinueOnFault && conf.FaultPolicy != AbortOnFault {
		log.Warn("Sanitizing invalid executor fault policy", "provided", conf.FaultPolicy, "updated", DefaultConfig.FaultPolicy)
		conf.FaultPolicy = DefaultConfig.FaultPolicy
	}
	if conf.BloomWorkers < 0 {
		log.Warn("Sanitizing invalid executor bloom workers", "provided", conf.BloomWorkers, "updated", DefaultConfig.BloomWorkers)
		conf.BloomWorkers = DefaultConfig.BloomWorkers
	}
	return conf
}
