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

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
)

var _ ReceiptTracer = (*BlockReceiptsTracer)(nil)

type txScope struct {
	tx     *types.Transaction
	index  int
	result *ExecutionResult
	fault  *TxFault
}

// BlockReceiptsTracer builds the receipts of one block. Scopes must be
// strictly paired; opening a scope twice or closing an unopened scope is a
// programming error and panics.
type BlockReceiptsTracer struct {
	blockHash   common.Hash
	blockNumber *big.Int

	receipts   types.Receipts
	gasUsed    uint64
	current    *txScope
	processors []ReceiptProcessor
}

// NewBlockReceiptsTracer creates a tracer for block. The receipt processors
// run on every receipt when its scope closes.
func NewBlockReceiptsTracer(block *types.Block, processors ...ReceiptProcessor) *BlockReceiptsTracer {
	return &BlockReceiptsTracer{
		blockHash:   block.Hash(),
		blockNumber: block.Number(),
		receipts:    make(types.Receipts, 0, len(block.Transactions())),
		processors:  processors,
	}
}

func (t *BlockReceiptsTracer) StartNewTxTrace(tx *types.Transaction) {
	if t.current != nil {
		panic("receipt tracer: transaction trace already started")
	}
	t.current = &txScope{tx: tx, index: len(t.receipts)}
}

func (t *BlockReceiptsTracer) MarkAsExecuted(result *ExecutionResult) {
	scope := t.mustScope()
	scope.result, scope.fault = result, nil
}

func (t *BlockReceiptsTracer) MarkAsFaulted(fault *TxFault) {
	scope := t.mustScope()
	scope.result, scope.fault = nil, fault
}

func (t *BlockReceiptsTracer) EndTxTrace() {
	scope := t.mustScope()
	t.current = nil

	receipt := t.buildReceipt(scope)
	t.receipts = append(t.receipts, receipt)
	for _, p := range t.processors {
		p.Apply(receipt)
	}
}

func (t *BlockReceiptsTracer) TxIndex() int {
	if t.current != nil {
		return t.current.index
	}
	return len(t.receipts)
}

func (t *BlockReceiptsTracer) TxReceipts() types.Receipts { return t.receipts }

func (t *BlockReceiptsTracer) GasUsed() uint64 { return t.gasUsed }

func (t *BlockReceiptsTracer) mustScope() *txScope {
	if t.current == nil {
		panic("receipt tracer: no transaction trace in progress")
	}
	return t.current
}

func (t *BlockReceiptsTracer) buildReceipt(scope *txScope) *types.Receipt {
	receipt := &types.Receipt{
		TxHash:           scope.tx.Hash(),
		BlockHash:        t.blockHash,
		BlockNumber:      new(big.Int).Set(t.blockNumber),
		TransactionIndex: uint(scope.index),
	}
	switch {
	case scope.fault != nil:
		receipt.Status = types.ReceiptStatusFailed
		receipt.Err = scope.fault.Err
		if scope.fault.Kind == ValidationFailure {
			receipt.Outcome = types.OutcomeRejected
		} else {
			receipt.Outcome = types.OutcomeFaulted
		}
	case scope.result != nil:
		t.gasUsed += scope.result.UsedGas
		receipt.Outcome = types.OutcomeExecuted
		receipt.GasUsed = scope.result.UsedGas
		receipt.Logs = scope.result.Logs
		receipt.ContractAddress = scope.result.ContractAddress
		receipt.Err = scope.result.Err
		if scope.result.Failed() {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			receipt.Status = types.ReceiptStatusSuccessful
		}
	default:
		receipt.Outcome = types.OutcomeFaulted
		receipt.Status = types.ReceiptStatusFailed
		receipt.Err = ErrMissingOutcome
	}
	receipt.CumulativeGasUsed = t.gasUsed
	return receipt
}
