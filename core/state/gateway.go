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

// Package state exposes the narrow world-state surface the execution core
// needs, backed by the go-ethereum state database.
package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	gethstate "github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// Provider is the world-state gateway consumed by block execution.
type Provider interface {
	AccountExists(addr common.Address) bool
	CreateAccount(addr common.Address, balance *uint256.Int)
	// Commit finalises pending changes under the given rule set. With
	// EIP-158 active, empty touched accounts are removed.
	Commit(rules params.Rules)
	GetNonce(addr common.Address) uint64

	Snapshot() int
	RevertToSnapshot(revid int)
}

var _ Provider = (*Gateway)(nil)

// Gateway implements Provider over a go-ethereum StateDB.
type Gateway struct {
	db *gethstate.StateDB
}

// NewGateway wraps an existing state database.
func NewGateway(db *gethstate.StateDB) *Gateway {
	return &Gateway{db: db}
}

// NewMemoryGateway creates a gateway over an empty in-memory state.
func NewMemoryGateway() (*Gateway, error) {
	db, err := gethstate.New(gethtypes.EmptyRootHash, gethstate.NewDatabase(rawdb.NewMemoryDatabase()), nil)
	if err != nil {
		return nil, err
	}
	return NewGateway(db), nil
}

// StateDB returns the underlying database, used by the EVM.
func (g *Gateway) StateDB() *gethstate.StateDB { return g.db }

// Copy returns an independent copy of the gateway and its state.
func (g *Gateway) Copy() *Gateway {
	return &Gateway{db: g.db.Copy()}
}

func (g *Gateway) AccountExists(addr common.Address) bool {
	return g.db.Exist(addr)
}

func (g *Gateway) CreateAccount(addr common.Address, balance *uint256.Int) {
	g.db.CreateAccount(addr)
	if balance != nil && !balance.IsZero() {
		g.db.AddBalance(addr, balance, tracing.BalanceChangeUnspecified)
	}
}

func (g *Gateway) Commit(rules params.Rules) {
	g.db.Finalise(rules.IsEIP158)
}

func (g *Gateway) GetNonce(addr common.Address) uint64 {
	return g.db.GetNonce(addr)
}

func (g *Gateway) SetNonce(addr common.Address, nonce uint64) {
	g.db.SetNonce(addr, nonce)
}

func (g *Gateway) GetBalance(addr common.Address) *uint256.Int {
	return g.db.GetBalance(addr)
}

func (g *Gateway) AddBalance(addr common.Address, amount *uint256.Int) {
	g.db.AddBalance(addr, amount, tracing.BalanceChangeUnspecified)
}

func (g *Gateway) SetCode(addr common.Address, code []byte) {
	g.db.SetCode(addr, code)
}

func (g *Gateway) Snapshot() int {
	return g.db.Snapshot()
}

func (g *Gateway) RevertToSnapshot(revid int) {
	g.db.RevertToSnapshot(revid)
}
