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

// Package systemcontract builds the protocol-issued transactions that
// proof-of-authority engines use to call consensus contracts.
package systemcontract

import (
	"math"

	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// UnboundedGas is the default gas limit of a system transaction. The
// processor clamps it to the gas left in the block.
const UnboundedGas = uint64(math.MaxInt64)

// BaselineRules is the rule set the system account is committed under.
// Homestead predates EIP-158, so the empty account is not swept away.
var BaselineRules = params.Rules{IsHomestead: true}

// EnsureSystemAccount creates the system account with a zero balance if it
// does not exist yet. Calling it on a state that has the account is a no-op.
func EnsureSystemAccount(st state.Provider) {
	if st.AccountExists(types.SystemAddress) {
		return
	}
	st.CreateAccount(types.SystemAddress, nil)
	st.Commit(BaselineRules)
	log.Debug("Created system account", "address", types.SystemAddress)
}

// SystemContract is a consensus contract invoked by system transactions.
type SystemContract struct {
	address common.Address
}

// NewSystemContract returns a handle on the contract deployed at address.
func NewSystemContract(address common.Address) *SystemContract {
	return &SystemContract{address: address}
}

// Address returns the contract address.
func (c *SystemContract) Address() common.Address { return c.address }

type txOptions struct {
	gasLimit uint64
	nonce    *uint64
}

// SystemTxOption customises a generated system transaction.
type SystemTxOption func(*txOptions)

// WithGasLimit overrides the UnboundedGas default.
func WithGasLimit(gas uint64) SystemTxOption {
	return func(o *txOptions) { o.gasLimit = gas }
}

// WithNonce sets an explicit nonce. Without it the nonce is zero and the
// transaction is expected to run with nonce verification disabled.
func WithNonce(nonce uint64) SystemTxOption {
	return func(o *txOptions) { o.nonce = &nonce }
}

// GenerateSystemTransaction returns an unsigned transaction from the system
// address calling the contract with data.
func (c *SystemContract) GenerateSystemTransaction(data []byte, opts ...SystemTxOption) *types.Transaction {
	o := txOptions{gasLimit: UnboundedGas}
	for _, opt := range opts {
		opt(&o)
	}
	var nonce uint64
	if o.nonce != nil {
		nonce = *o.nonce
	}
	to := c.address
	return types.NewSystemTransaction(types.TxData{
		Nonce:    nonce,
		GasPrice: common.Big0,
		Gas:      o.gasLimit,
		To:       &to,
		Value:    common.Big0,
		Data:     data,
	})
}

// Registry is the set of contracts system transactions may call.
type Registry map[common.Address]bool

// NewRegistry creates a registry of the given contracts.
func NewRegistry(contracts ...*SystemContract) Registry {
	r := make(Registry, len(contracts))
	for _, c := range contracts {
		r[c.Address()] = true
	}
	return r
}

// IsSystemTransaction reports whether tx is a protocol-issued call to a
// registered contract.
func (r Registry) IsSystemTransaction(tx *types.Transaction) bool {
	if !tx.IsSystem() || tx.To() == nil {
		return false
	}
	return r[*tx.To()]
}
