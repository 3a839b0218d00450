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
	"errors"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// SystemAddress is the reserved sender of protocol-issued transactions.
var SystemAddress = common.HexToAddress("0xfffffffffffffffffffffffffffffffffffffffe")

var (
	// ErrReservedSender is returned when a signed transaction claims the
	// system address as its sender.
	ErrReservedSender = errors.New("signed transaction cannot use the system sender")

	// ErrMissingSignature is returned when a signed transaction is built
	// without signature values.
	ErrMissingSignature = errors.New("signed transaction requires a signature")
)

// TxAuth describes who authorised a transaction. The only implementations
// are *SignedAuth and SystemAuth.
type TxAuth interface {
	isTxAuth()
}

// SignedAuth carries the signature values of a user transaction. The values
// are not verified here.
type SignedAuth struct {
	V, R, S *big.Int
}

// SystemAuth marks a transaction issued by the protocol itself.
type SystemAuth struct{}

func (*SignedAuth) isTxAuth() {}
func (SystemAuth) isTxAuth()  {}

// TxData is the execution payload shared by signed and system transactions.
type TxData struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address // nil means contract creation
	Value    *big.Int
	Data     []byte
}

// Transaction is an immutable transaction. Use NewTransaction or
// NewSystemTransaction to create one.
type Transaction struct {
	inner TxData
	from  common.Address
	auth  TxAuth
	hash  common.Hash
}

// NewTransaction creates a signed user transaction sent by from.
func NewTransaction(data TxData, from common.Address, sig *SignedAuth) (*Transaction, error) {
	if from == SystemAddress {
		return nil, ErrReservedSender
	}
	if sig == nil {
		return nil, ErrMissingSignature
	}
	auth := &SignedAuth{V: copyBig(sig.V), R: copyBig(sig.R), S: copyBig(sig.S)}
	return newTransaction(data, from, auth), nil
}

// NewSystemTransaction creates an unsigned transaction sent by SystemAddress.
func NewSystemTransaction(data TxData) *Transaction {
	return newTransaction(data, SystemAddress, SystemAuth{})
}

func newTransaction(data TxData, from common.Address, auth TxAuth) *Transaction {
	tx := &Transaction{inner: copyTxData(data), from: from, auth: auth}
	tx.hash = rlpHash(tx)
	return tx
}

func copyTxData(d TxData) TxData {
	cpy := TxData{
		Nonce:    d.Nonce,
		GasPrice: new(big.Int),
		Gas:      d.Gas,
		Value:    new(big.Int),
		Data:     common.CopyBytes(d.Data),
	}
	if d.To != nil {
		to := *d.To
		cpy.To = &to
	}
	if d.GasPrice != nil {
		cpy.GasPrice.Set(d.GasPrice)
	}
	if d.Value != nil {
		cpy.Value.Set(d.Value)
	}
	return cpy
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// rlpTx is the hashed representation of a transaction.
type rlpTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	From     common.Address
	System   bool
	V, R, S  *big.Int
}

// EncodeRLP implements rlp.Encoder.
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	enc := rlpTx{
		Nonce:    tx.inner.Nonce,
		GasPrice: tx.inner.GasPrice,
		Gas:      tx.inner.Gas,
		To:       tx.inner.To,
		Value:    tx.inner.Value,
		Data:     tx.inner.Data,
		From:     tx.from,
		V:        new(big.Int),
		R:        new(big.Int),
		S:        new(big.Int),
	}
	switch auth := tx.auth.(type) {
	case SystemAuth:
		enc.System = true
	case *SignedAuth:
		enc.V, enc.R, enc.S = auth.V, auth.R, auth.S
	}
	return rlp.Encode(w, &enc)
}

// Nonce returns the sender account nonce of the transaction.
func (tx *Transaction) Nonce() uint64 { return tx.inner.Nonce }

// GasPrice returns a copy of the gas price.
func (tx *Transaction) GasPrice() *big.Int { return new(big.Int).Set(tx.inner.GasPrice) }

// Gas returns the gas limit of the transaction.
func (tx *Transaction) Gas() uint64 { return tx.inner.Gas }

// Value returns a copy of the transferred amount.
func (tx *Transaction) Value() *big.Int { return new(big.Int).Set(tx.inner.Value) }

// Data returns a copy of the input data.
func (tx *Transaction) Data() []byte { return common.CopyBytes(tx.inner.Data) }

// To returns the recipient address, or nil for contract creation.
func (tx *Transaction) To() *common.Address {
	if tx.inner.To == nil {
		return nil
	}
	to := *tx.inner.To
	return &to
}

// IsContractCreation reports whether the transaction deploys a contract.
func (tx *Transaction) IsContractCreation() bool { return tx.inner.To == nil }

// Sender returns the account that sent the transaction.
func (tx *Transaction) Sender() common.Address { return tx.from }

// Auth returns the authorisation variant of the transaction.
func (tx *Transaction) Auth() TxAuth { return tx.auth }

// Signature returns the signature values, or false for a system transaction.
func (tx *Transaction) Signature() (v, r, s *big.Int, ok bool) {
	sig, ok := tx.auth.(*SignedAuth)
	if !ok {
		return nil, nil, nil, false
	}
	return copyBig(sig.V), copyBig(sig.R), copyBig(sig.S), true
}

// IsSystem reports whether the transaction was issued by the protocol.
// Constructors guarantee this matches Sender() == SystemAddress.
func (tx *Transaction) IsSystem() bool {
	_, ok := tx.auth.(SystemAuth)
	return ok
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() common.Hash { return tx.hash }

// WithNonce returns a copy of tx that executes with the given nonce. The
// copy keeps the hash of the original so that receipts still reference the
// transaction included in the block.
func (tx *Transaction) WithNonce(nonce uint64) *Transaction {
	cpy := &Transaction{inner: copyTxData(tx.inner), from: tx.from, auth: tx.auth, hash: tx.hash}
	cpy.inner.Nonce = nonce
	return cpy
}

// Transactions is an ordered list of transactions.
type Transactions []*Transaction

// Len returns the length of s.
func (s Transactions) Len() int { return len(s) }

// Hashes returns the hashes of all transactions in s.
func (s Transactions) Hashes() []common.Hash {
	hashes := make([]common.Hash, len(s))
	for i, tx := range s {
		hashes[i] = tx.Hash()
	}
	return hashes
}
