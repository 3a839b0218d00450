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

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrReceiptMisaligned is returned when the number of receipts produced for
	// a block diverges from the number of transactions processed.
	ErrReceiptMisaligned = errors.New("receipt list misaligned with transactions")

	// ErrBlockGasLimitExceeded is returned if the gas used by a block's
	// transactions is above the header gas limit.
	ErrBlockGasLimitExceeded = errors.New("block gas limit exceeded")

	// ErrMissingOutcome is recorded when a trace scope closes before the
	// processor reported either a result or a fault.
	ErrMissingOutcome = errors.New("transaction trace closed without outcome")

	// ErrExecutionPanic wraps a panic recovered while executing a transaction.
	ErrExecutionPanic = errors.New("transaction execution panicked")
)

// FaultKind classifies why a transaction could not be applied.
type FaultKind uint8

const (
	// ExecutionFault is an unexpected failure during the state transition.
	ExecutionFault FaultKind = iota
	// ValidationFailure is a failed protocol precondition, checked before
	// any state was changed.
	ValidationFailure
)

func (k FaultKind) String() string {
	switch k {
	case ValidationFailure:
		return "validation failure"
	case ExecutionFault:
		return "execution fault"
	default:
		return fmt.Sprintf("fault(%d)", uint8(k))
	}
}

// ValidationError marks an error returned by a TransactionProcessor as a
// failed precondition.
type ValidationError struct {
	Err error
}

// NewValidationError wraps err as a validation failure.
func NewValidationError(err error) error {
	return &ValidationError{Err: err}
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// TxFault describes a transaction that could not be applied, together with
// the block position needed for post-hoc analysis.
type TxFault struct {
	Kind  FaultKind
	Index int
	Hash  common.Hash
	Err   error
}

func (f *TxFault) Error() string {
	return fmt.Sprintf("tx %d [%v] %v: %v", f.Index, f.Hash.Hex(), f.Kind, f.Err)
}

func (f *TxFault) Unwrap() error { return f.Err }

// classifyFault maps a processor error to its fault kind.
func classifyFault(err error) FaultKind {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ValidationFailure
	}
	return ExecutionFault
}
