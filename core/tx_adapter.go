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

	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
)

var _ TransactionProcessorAdapter = (*ExecuteTransactionProcessorAdapter)(nil)

// ExecuteTransactionProcessorAdapter runs transactions through a
// TransactionProcessor inside a trace scope. Whatever the processor does,
// including panicking, the scope is closed and one receipt is produced.
type ExecuteTransactionProcessorAdapter struct {
	processor TransactionProcessor
}

// NewExecuteTransactionProcessorAdapter creates an adapter over processor.
func NewExecuteTransactionProcessorAdapter(processor TransactionProcessor) *ExecuteTransactionProcessorAdapter {
	return &ExecuteTransactionProcessorAdapter{processor: processor}
}

// ProcessTransaction executes tx and returns a *TxFault if it could not be
// applied. State changes of a faulted transaction are reverted.
func (a *ExecuteTransactionProcessorAdapter) ProcessTransaction(header *types.Header, tx *types.Transaction, tracer ReceiptTracer, options types.ProcessingOptions, st state.Provider) (err error) {
	if options.Contains(types.DoNotVerifyNonce) {
		tx = tx.WithNonce(st.GetNonce(tx.Sender()))
	}
	snapshot := st.Snapshot()

	tracer.StartNewTxTrace(tx)
	defer tracer.EndTxTrace()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExecutionPanic, r)
		}
		if err == nil {
			return
		}
		st.RevertToSnapshot(snapshot)
		fault := &TxFault{
			Kind:  classifyFault(err),
			Index: tracer.TxIndex(),
			Hash:  tx.Hash(),
			Err:   err,
		}
		tracer.MarkAsFaulted(fault)
		err = fault
	}()

	return a.processor.Execute(tx, header, tracer)
}
