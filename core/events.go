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
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/metrics"
)

// TxProcessedEvent is posted after each transaction of a block has been
// processed, in execution order.
type TxProcessedEvent struct {
	Index   int // position in the tracer's receipt list, not in the processed batch
	Tx      *types.Transaction
	Receipt *types.Receipt
}

// TxProcessedObserver receives TxProcessedEvents synchronously on the
// executing goroutine.
type TxProcessedObserver interface {
	OnTxProcessed(ev TxProcessedEvent)
}

// TxProcessedObserverFunc adapts a function to a TxProcessedObserver.
type TxProcessedObserverFunc func(ev TxProcessedEvent)

func (f TxProcessedObserverFunc) OnTxProcessed(ev TxProcessedEvent) { f(ev) }

var (
	blockExecutionTimer = metrics.NewRegisteredTimer("chain/execution/block", nil)
	executedTxMeter     = metrics.NewRegisteredMeter("chain/execution/txs", nil)
	rejectedTxMeter     = metrics.NewRegisteredMeter("chain/execution/rejected", nil)
	faultedTxMeter      = metrics.NewRegisteredMeter("chain/execution/faulted", nil)
)
