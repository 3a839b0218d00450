package miner

import (
	"sync"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

const (
	maxHeaders = 3
)

// BundleCache keeps the simulation results of the most recent parent
// headers, so bundles are simulated once per parent.
type BundleCache struct {
	mu      sync.Mutex
	entries *lru.Cache
}

func NewBundleCache() *BundleCache {
	entries, _ := lru.New(maxHeaders)
	return &BundleCache{entries: entries}
}

// GetBundleCache returns the entry of the given parent, evicting the least
// recently used entry if the parent is new.
func (b *BundleCache) GetBundleCache(parent common.Hash) *BundleCacheEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if entry, ok := b.entries.Get(parent); ok {
		return entry.(*BundleCacheEntry)
	}
	newEntry := newCacheEntry(parent)
	b.entries.Add(parent, newEntry)

	return newEntry
}

type BundleCacheEntry struct {
	mu                sync.Mutex
	parentHash        common.Hash
	successfulBundles map[common.Hash]*types.SimulatedBundle
	failedBundles     map[common.Hash]error
}

func newCacheEntry(parent common.Hash) *BundleCacheEntry {
	return &BundleCacheEntry{
		parentHash:        parent,
		successfulBundles: make(map[common.Hash]*types.SimulatedBundle),
		failedBundles:     make(map[common.Hash]error),
	}
}

// GetSimulatedBundle returns the cached result of a bundle. The second
// value reports whether the bundle was simulated at all; a nil result with
// true means the simulation failed.
func (c *BundleCacheEntry) GetSimulatedBundle(bundle common.Hash) (*types.SimulatedBundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if simmed, ok := c.successfulBundles[bundle]; ok {
		return simmed, true
	}

	if _, ok := c.failedBundles[bundle]; ok {
		return nil, true
	}

	return nil, false
}

// UpdateSimulatedBundles stores the results of a simulation round. Bundles
// without a result are recorded with their failure.
func (c *BundleCacheEntry) UpdateSimulatedBundles(result map[common.Hash]*types.SimulatedBundle, failures map[common.Hash]error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for hash, simmed := range result {
		c.successfulBundles[hash] = simmed
	}
	for hash, err := range failures {
		if _, ok := c.successfulBundles[hash]; !ok {
			c.failedBundles[hash] = err
		}
	}
}
