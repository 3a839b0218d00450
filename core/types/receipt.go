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

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	// ReceiptStatusFailed is the status code of a transaction if execution failed.
	ReceiptStatusFailed = uint64(0)

	// ReceiptStatusSuccessful is the status code of a transaction if execution succeeded.
	ReceiptStatusSuccessful = uint64(1)
)

// Outcome tags how a transaction left the executor.
type Outcome uint8

const (
	// OutcomeExecuted means the transaction ran to completion. Status tells
	// whether the EVM reverted.
	OutcomeExecuted Outcome = iota
	// OutcomeRejected means the transaction failed a protocol precondition
	// and was not applied.
	OutcomeRejected
	// OutcomeFaulted means the transaction hit an unexpected fault and its
	// state changes were discarded.
	OutcomeFaulted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExecuted:
		return "executed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Log is a contract log event.
type Log = gethtypes.Log

// Bloom is the 2048 bit bloom filter of a receipt's logs.
type Bloom = gethtypes.Bloom

// Receipt represents the result of a transaction.
type Receipt struct {
	Outcome           Outcome
	Status            uint64
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log

	TxHash          common.Hash
	ContractAddress common.Address
	GasUsed         uint64

	// Err is the reason of a rejected or faulted outcome, or the EVM error
	// of a failed execution.
	Err error

	BlockHash        common.Hash
	BlockNumber      *big.Int
	TransactionIndex uint
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Outcome == OutcomeExecuted && r.Status == ReceiptStatusSuccessful
}

// Receipts is a list of receipts in transaction order.
type Receipts []*Receipt

// Len returns the number of receipts in this list.
func (rs Receipts) Len() int { return len(rs) }

// CreateBloom creates a bloom filter out of the logs of the given receipt.
func CreateBloom(receipt *Receipt) Bloom {
	var bin Bloom
	for _, log := range receipt.Logs {
		bin.Add(log.Address.Bytes())
		for _, b := range log.Topics {
			bin.Add(b[:])
		}
	}
	return bin
}
