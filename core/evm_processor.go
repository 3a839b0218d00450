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
	"math/big"

	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

var _ TransactionProcessor = (*EVMProcessor)(nil)

// DefaultChainConfig returns a chain configuration with every fork up to
// Berlin active from genesis. London is left out so that legacy gas
// pricing applies and system transactions may carry a zero gas price.
func DefaultChainConfig() *params.ChainConfig {
	return &params.ChainConfig{
		ChainID:             big.NewInt(1337),
		HomesteadBlock:      big.NewInt(0),
		EIP150Block:         big.NewInt(0),
		EIP155Block:         big.NewInt(0),
		EIP158Block:         big.NewInt(0),
		ByzantiumBlock:      big.NewInt(0),
		ConstantinopleBlock: big.NewInt(0),
		PetersburgBlock:     big.NewInt(0),
		IstanbulBlock:       big.NewInt(0),
		MuirGlacierBlock:    big.NewInt(0),
		BerlinBlock:         big.NewInt(0),
	}
}

// EVMProcessor executes transactions with the go-ethereum state
// transition on top of a state gateway.
type EVMProcessor struct {
	config   *params.ChainConfig
	state    *state.Gateway
	vmConfig vm.Config
	getHash  vm.GetHashFunc
}

// NewEVMProcessor creates a processor executing against st.
func NewEVMProcessor(config *params.ChainConfig, st *state.Gateway) *EVMProcessor {
	return &EVMProcessor{
		config:  config,
		state:   st,
		getHash: func(uint64) common.Hash { return common.Hash{} },
	}
}

// WithGetHash sets the ancestor hash lookup used by the BLOCKHASH opcode.
func (p *EVMProcessor) WithGetHash(getHash vm.GetHashFunc) *EVMProcessor {
	p.getHash = getHash
	return p
}

// Rules returns the protocol rules active at header.
func (p *EVMProcessor) Rules(header *types.Header) params.Rules {
	return p.config.Rules(header.Number, false, header.Time)
}

// Execute applies tx on top of the state. Consensus errors of the state
// transition are returned as validation failures; the gas pool is the
// header gas limit minus what the block already used.
func (p *EVMProcessor) Execute(tx *types.Transaction, header *types.Header, tracer ReceiptTracer) error {
	var available uint64
	if used := tracer.GasUsed(); used < header.GasLimit {
		available = header.GasLimit - used
	}
	msg := TransactionToMessage(tx)
	if tx.IsSystem() && msg.GasLimit > available {
		msg.GasLimit = available
	}
	var (
		gp       = new(gethcore.GasPool).AddGas(available)
		statedb  = p.state.StateDB()
		blockCtx = NewEVMBlockContext(header, p.getHash)
	)
	statedb.SetTxContext(tx.Hash(), tracer.TxIndex())
	evm := vm.NewEVM(blockCtx, gethcore.NewEVMTxContext(msg), statedb, p.config, p.vmConfig)

	result, err := gethcore.ApplyMessage(evm, msg, gp)
	if err != nil {
		return NewValidationError(err)
	}
	res := &ExecutionResult{
		UsedGas:    result.UsedGas,
		Err:        result.Err,
		ReturnData: result.ReturnData,
		Logs:       statedb.GetLogs(tx.Hash(), header.Number.Uint64(), header.Hash()),
	}
	if tx.IsContractCreation() {
		res.ContractAddress = crypto.CreateAddress(msg.From, msg.Nonce)
	}
	tracer.MarkAsExecuted(res)
	return nil
}

// TransactionToMessage converts a transaction into a state transition
// message with legacy gas pricing.
func TransactionToMessage(tx *types.Transaction) *gethcore.Message {
	return &gethcore.Message{
		From:      tx.Sender(),
		To:        tx.To(),
		Nonce:     tx.Nonce(),
		Value:     tx.Value(),
		GasLimit:  tx.Gas(),
		GasPrice:  tx.GasPrice(),
		GasFeeCap: tx.GasPrice(),
		GasTipCap: tx.GasPrice(),
		Data:      tx.Data(),
	}
}

// NewEVMBlockContext creates the block context of header for the EVM.
func NewEVMBlockContext(header *types.Header, getHash vm.GetHashFunc) vm.BlockContext {
	var baseFee *big.Int
	if header.BaseFee != nil {
		baseFee = new(big.Int).Set(header.BaseFee)
	}
	return vm.BlockContext{
		CanTransfer: gethcore.CanTransfer,
		Transfer:    gethcore.Transfer,
		GetHash:     getHash,
		Coinbase:    header.Coinbase,
		BlockNumber: new(big.Int).Set(header.Number),
		Time:        header.Time,
		Difficulty:  new(big.Int),
		BaseFee:     baseFee,
		GasLimit:    header.GasLimit,
	}
}
