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
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// Header is the subset of a block header the execution core consumes.
type Header struct {
	ParentHash common.Hash    `json:"parentHash"`
	Coinbase   common.Address `json:"miner"`
	Number     *big.Int       `json:"number"`
	GasLimit   uint64         `json:"gasLimit"`
	Time       uint64         `json:"timestamp"`

	// BaseFee is ignored by pre-London rule sets.
	BaseFee *big.Int `json:"baseFeePerGas" rlp:"optional"`
}

// Hash returns the keccak256 hash of the header's RLP encoding.
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

// CopyHeader creates a deep copy of a block header.
func CopyHeader(h *Header) *Header {
	cpy := *h
	if cpy.Number = new(big.Int); h.Number != nil {
		cpy.Number.Set(h.Number)
	}
	if h.BaseFee != nil {
		cpy.BaseFee = new(big.Int).Set(h.BaseFee)
	}
	return &cpy
}

// Block is a header plus the ordered transactions it executes.
type Block struct {
	header       *Header
	transactions Transactions

	hash atomic.Value
}

// NewBlock creates a block. The header and transaction list are copied so
// later changes to the arguments do not affect the block.
func NewBlock(header *Header, txs []*Transaction) *Block {
	b := &Block{header: CopyHeader(header)}
	b.transactions = make(Transactions, len(txs))
	copy(b.transactions, txs)
	return b
}

func (b *Block) Transactions() Transactions { return b.transactions }

func (b *Block) Transaction(hash common.Hash) *Transaction {
	for _, transaction := range b.transactions {
		if transaction.Hash() == hash {
			return transaction
		}
	}
	return nil
}

func (b *Block) Number() *big.Int         { return new(big.Int).Set(b.header.Number) }
func (b *Block) GasLimit() uint64         { return b.header.GasLimit }
func (b *Block) Time() uint64             { return b.header.Time }
func (b *Block) NumberU64() uint64        { return b.header.Number.Uint64() }
func (b *Block) Coinbase() common.Address { return b.header.Coinbase }
func (b *Block) ParentHash() common.Hash  { return b.header.ParentHash }

// Header returns a copy of the block header.
func (b *Block) Header() *Header { return CopyHeader(b.header) }

// Hash returns the keccak256 hash of b's header. The hash is computed on the
// first call and cached thereafter.
func (b *Block) Hash() common.Hash {
	if hash := b.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	v := b.header.Hash()
	b.hash.Store(v)
	return v
}

type writeCounter common.StorageSize

func (c *writeCounter) Write(b []byte) (int, error) {
	*c += writeCounter(len(b))
	return len(b), nil
}

// hasherPool holds LegacyKeccak256 hashers for rlpHash.
var hasherPool = sync.Pool{
	New: func() interface{} { return sha3.NewLegacyKeccak256() },
}

// rlpHash encodes x and hashes the encoded bytes.
func rlpHash(x interface{}) (h common.Hash) {
	sha := hasherPool.Get().(crypto.KeccakState)
	defer hasherPool.Put(sha)
	sha.Reset()
	rlp.Encode(sha, x)
	sha.Read(h[:])
	return h
}
