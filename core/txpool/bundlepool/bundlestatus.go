package bundlepool

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
)

// StatusCode is the lifecycle state of a submitted bundle.
type StatusCode uint8

const (
	StatusUnknown StatusCode = iota
	StatusPending
	StatusSimulated
	StatusFailed
	StatusPruned
	StatusCancelled
	StatusIncluded
)

func (s StatusCode) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSimulated:
		return "simulated"
	case StatusFailed:
		return "failed"
	case StatusPruned:
		return "pruned"
	case StatusCancelled:
		return "cancelled"
	case StatusIncluded:
		return "included"
	default:
		return "unknown"
	}
}

var bundleStatusPrefix = []byte("bundle-status-")

// BundleStatus tracks bundle states in memory, backed by a key-value store
// so that states outlive cache eviction.
type BundleStatus struct {
	db    ethdb.KeyValueStore
	cache *fastcache.Cache
}

func NewBundleStatus(db ethdb.KeyValueStore) *BundleStatus {
	cache := fastcache.New(20 * 1024 * 1024) // 20MB cache
	return &BundleStatus{
		db:    db,
		cache: cache,
	}
}

func bundleStatusKey(hash common.Hash) []byte {
	return append(append([]byte{}, bundleStatusPrefix...), hash[:]...)
}

// UpdateBundleStatus updates the bundle status in the cache and database.
func (bs *BundleStatus) UpdateBundleStatus(status map[common.Hash]StatusCode) {
	for hash, code := range status {
		bs.cache.Set(hash[:], []byte{byte(code)})
		if err := bs.db.Put(bundleStatusKey(hash), []byte{byte(code)}); err != nil {
			log.Error("Failed to write bundle status to db", "hash", hash.Hex(), "error", err)
			continue
		}
	}
}

// GetBundleStatus retrieves the bundle status from the cache or database.
func (bs *BundleStatus) GetBundleStatus(bundleHash common.Hash) StatusCode {
	if enc := bs.cache.Get(nil, bundleHash[:]); len(enc) > 0 {
		return StatusCode(enc[0])
	}
	s, err := bs.db.Get(bundleStatusKey(bundleHash))
	if err != nil || len(s) == 0 {
		return StatusUnknown
	}
	bs.cache.Set(bundleHash[:], s[:1])
	return StatusCode(s[0])
}
