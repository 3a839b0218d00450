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
	"errors"
	"fmt"
	"time"

	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// BlockValidationTransactionsExecutor applies the transactions of a block
// one at a time, strictly in list order.
type BlockValidationTransactionsExecutor struct {
	adapter TransactionProcessorAdapter
	state   state.Provider
	config  Config

	observers []TxProcessedObserver
	txFeed    event.Feed
	scope     event.SubscriptionScope
}

// NewBlockValidationTransactionsExecutor creates an executor applying
// transactions through adapter to st.
func NewBlockValidationTransactionsExecutor(adapter TransactionProcessorAdapter, st state.Provider, config Config) *BlockValidationTransactionsExecutor {
	return &BlockValidationTransactionsExecutor{
		adapter: adapter,
		state:   st,
		config:  config.sanitize(),
	}
}

// RegisterObserver adds an observer notified after every processed
// transaction. Observers are called in registration order.
func (e *BlockValidationTransactionsExecutor) RegisterObserver(o TxProcessedObserver) {
	e.observers = append(e.observers, o)
}

// SubscribeTxProcessed registers a subscription of TxProcessedEvent. Sends
// block until every subscriber has received the event.
func (e *BlockValidationTransactionsExecutor) SubscribeTxProcessed(ch chan<- TxProcessedEvent) event.Subscription {
	return e.scope.Track(e.txFeed.Subscribe(ch))
}

// Stop unsubscribes all feed subscribers.
func (e *BlockValidationTransactionsExecutor) Stop() {
	e.scope.Close()
}

// ProcessTransactions executes the block's transactions and returns one
// receipt per transaction, in order. The state is committed under rules
// after each transaction.
//
// Under ContinueOnFault a faulted transaction keeps its slot with a
// faulted or rejected receipt. Validation failures are joined into the
// returned error next to the full receipt list so the caller can reject
// the block. Under AbortOnFault the first *TxFault is returned.
func (e *BlockValidationTransactionsExecutor) ProcessTransactions(block *types.Block, options types.ProcessingOptions, tracer ReceiptTracer, rules params.Rules) (types.Receipts, error) {
	var (
		start    = time.Now()
		header   = block.Header()
		txs      = block.Transactions()
		base     = len(tracer.TxReceipts())
		rejected []error
	)
	for i, tx := range txs {
		index := base + i
		err := e.adapter.ProcessTransaction(header, tx, tracer, options, e.state)
		e.state.Commit(rules)

		receipts := tracer.TxReceipts()
		if len(receipts) != index+1 {
			return nil, fmt.Errorf("%w: tx %d [%v] left %d receipts, want %d", ErrReceiptMisaligned, i, tx.Hash().Hex(), len(receipts)-base, i+1)
		}
		if err != nil {
			var fault *TxFault
			if !errors.As(err, &fault) {
				fault = &TxFault{Kind: classifyFault(err), Index: index, Hash: tx.Hash(), Err: err}
			}
			if e.config.FaultPolicy == AbortOnFault {
				log.Warn("Aborting block on transaction fault", "number", block.Number(), "index", index, "hash", tx.Hash(), "kind", fault.Kind, "err", fault.Err)
				return nil, fault
			}
			switch fault.Kind {
			case ValidationFailure:
				rejectedTxMeter.Mark(1)
				rejected = append(rejected, fault)
				log.Debug("Transaction failed validation", "number", block.Number(), "index", index, "hash", tx.Hash(), "err", fault.Err)
			default:
				faultedTxMeter.Mark(1)
				log.Error("Transaction execution faulted, continuing", "number", block.Number(), "index", index, "hash", tx.Hash(), "err", fault.Err)
			}
		} else {
			executedTxMeter.Mark(1)
		}
		e.notify(TxProcessedEvent{Index: index, Tx: tx, Receipt: receipts[index]})
	}
	receipts := tracer.TxReceipts()[base:]
	if used := tracer.GasUsed(); used > block.GasLimit() {
		return nil, fmt.Errorf("%w: used %d, limit %d", ErrBlockGasLimitExceeded, used, block.GasLimit())
	}
	blockExecutionTimer.UpdateSince(start)

	if len(txs) > 0 {
		log.Debug("Processed block transactions", "number", block.Number(), "txs", len(txs), "gas", tracer.GasUsed(), "rejected", len(rejected), "elapsed", common.PrettyDuration(time.Since(start)))
	}
	if len(rejected) > 0 {
		return receipts, errors.Join(rejected...)
	}
	return receipts, nil
}

func (e *BlockValidationTransactionsExecutor) notify(ev TxProcessedEvent) {
	for _, o := range e.observers {
		o.OnTxProcessed(ev)
	}
	e.txFeed.Send(ev)
}
