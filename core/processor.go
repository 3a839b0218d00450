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
	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// ExecutionResult is what a TransactionProcessor reports for a transaction
// that ran to completion.
type ExecutionResult struct {
	UsedGas         uint64
	Err             error // EVM error, e.g. revert or out of gas
	ReturnData      []byte
	Logs            []*types.Log
	ContractAddress common.Address
}

// Failed reports whether the execution was reverted or aborted by the EVM.
func (result *ExecutionResult) Failed() bool { return result.Err != nil }

// TransactionProcessor executes a single transaction against the state it
// was created with. A transaction that runs to completion is reported via
// tracer.MarkAsExecuted; failed preconditions are returned wrapped in a
// ValidationError and any other error is an execution fault.
type TransactionProcessor interface {
	Execute(tx *types.Transaction, header *types.Header, tracer ReceiptTracer) error
}

// ReceiptTracer brackets the execution of each transaction in a trace scope
// and accumulates exactly one receipt per scope.
type ReceiptTracer interface {
	StartNewTxTrace(tx *types.Transaction)
	MarkAsExecuted(result *ExecutionResult)
	MarkAsFaulted(fault *TxFault)
	EndTxTrace()

	// TxIndex returns the block position of the open or next scope.
	TxIndex() int
	// TxReceipts returns the receipts accumulated so far.
	TxReceipts() types.Receipts
	// GasUsed returns the cumulative gas of the closed scopes.
	GasUsed() uint64
}

// TransactionProcessorAdapter applies one transaction of a block and
// appends exactly one receipt to the tracer.
type TransactionProcessorAdapter interface {
	ProcessTransaction(header *types.Header, tx *types.Transaction, tracer ReceiptTracer, options types.ProcessingOptions, st state.Provider) error
}
