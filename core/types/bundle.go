package types

import (
	"crypto/sha256"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/uuid"
)

const (
	// MaxBundleAliveBlock is the max alive block for bundle
	MaxBundleAliveBlock = 100
	// MaxBundleAliveTime is the max alive time for bundle
	MaxBundleAliveTime = 5 * 60 // second
)

// SendBundleArgs represents the arguments for a bundle submission.
type SendBundleArgs struct {
	Txs               []hexutil.Bytes `json:"txs"`
	MaxBlockNumber    uint64          `json:"maxBlockNumber"`
	MinTimestamp      *uint64         `json:"minTimestamp"`
	MaxTimestamp      *uint64         `json:"maxTimestamp"`
	RevertingTxHashes []common.Hash   `json:"revertingTxHashes"`
}

// Bundle is an ordered transaction sequence meant for atomic inclusion.
// MaxBlockNumber is the target block; zero means any block. A zero
// MaxTimestamp leaves the time window open-ended.
type Bundle struct {
	Txs               Transactions
	MaxBlockNumber    uint64
	MinTimestamp      uint64
	MaxTimestamp      uint64
	RevertingTxHashes []common.Hash

	// caches
	hash atomic.Value
	size atomic.Value
}

// SimulatedBundle is a bundle priced by a simulation on a given parent.
type SimulatedBundle struct {
	OriginalBundle *Bundle

	BundleGasFees  *big.Int
	BundleGasPrice *big.Int // adjusted gas price, used for ranking
	BundleGasUsed  uint64
}

func (bundle *Bundle) Size() uint64 {
	if size := bundle.size.Load(); size != nil {
		return size.(uint64)
	}
	c := writeCounter(0)
	rlp.Encode(&c, bundle)

	size := uint64(c)
	bundle.size.Store(size)
	return size
}

// Hash returns the bundle hash.
func (bundle *Bundle) Hash() common.Hash {
	if hash := bundle.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}

	h := rlpHash(bundle)
	bundle.hash.Store(h)
	return h
}

// UUID returns a stable identifier derived from the bundle hash, used to
// cancel a submitted bundle.
func (bundle *Bundle) UUID() uuid.UUID {
	h := bundle.Hash()
	return uuid.NewHash(sha256.New(), uuid.Nil, h[:], 5)
}

// TxHashes returns the hashes of the bundle transactions in order.
func (bundle *Bundle) TxHashes() []common.Hash {
	return bundle.Txs.Hashes()
}

// RevertingHash reports whether the transaction with the given hash is
// allowed to revert without invalidating the bundle.
func (bundle *Bundle) RevertingHash(hash common.Hash) bool {
	for _, revHash := range bundle.RevertingTxHashes {
		if revHash == hash {
			return true
		}
	}
	return false
}

// ValidAt reports whether the bundle may be included in a block with the
// given number and timestamp.
func (bundle *Bundle) ValidAt(number, timestamp uint64) bool {
	if bundle.MaxBlockNumber != 0 && number > bundle.MaxBlockNumber {
		return false
	}
	if bundle.MaxTimestamp != 0 && timestamp > bundle.MaxTimestamp {
		return false
	}
	return timestamp >= bundle.MinTimestamp
}
