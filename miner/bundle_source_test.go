package miner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnb-chain/blockexec/core/txpool/bundlepool"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPool is a BundlePool serving a fixed bundle list.
type memPool struct {
	mu       sync.Mutex
	bundles  []*types.Bundle
	status   map[common.Hash]bundlepool.StatusCode
	included []*types.Bundle
}

func newMemPool(bundles ...*types.Bundle) *memPool {
	return &memPool{bundles: bundles, status: make(map[common.Hash]bundlepool.StatusCode)}
}

func (p *memPool) PendingBundles(uint64, uint64) []*types.Bundle { return p.bundles }

func (p *memPool) SetBundleStatus(status map[common.Hash]bundlepool.StatusCode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for hash, code := range status {
		p.status[hash] = code
	}
}

func (p *memPool) MarkIncluded(bundles []*types.Bundle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.included = append(p.included, bundles...)
}

// simulatorFunc simulates bundles with a callback.
type simulatorFunc func(parent *types.Header, timestamp uint64, bundle *types.Bundle) (*types.SimulatedBundle, error)

func (f simulatorFunc) SimulateBundle(parent *types.Header, timestamp uint64, bundle *types.Bundle) (*types.SimulatedBundle, error) {
	return f(parent, timestamp, bundle)
}

func TestPoolBundleSource(t *testing.T) {
	bundles := []*types.Bundle{
		newCandidate(1, 100).OriginalBundle,
		newCandidate(2, 200).OriginalBundle,
		newCandidate(3, 300).OriginalBundle,
		newCandidate(4, 400).OriginalBundle,
	}
	errReverted := errors.New("reverted")

	var calls atomic.Int32
	simulator := simulatorFunc(func(_ *types.Header, _ uint64, bundle *types.Bundle) (*types.SimulatedBundle, error) {
		calls.Add(1)
		nonce := bundle.Txs[0].Nonce()
		if nonce%2 == 0 {
			return nil, errReverted
		}
		// finish out of order
		time.Sleep(time.Duration(4-nonce) * time.Millisecond)
		return &types.SimulatedBundle{OriginalBundle: bundle, BundleGasUsed: bundle.Txs[0].Gas()}, nil
	})
	pool := newMemPool(bundles...)
	source := NewPoolBundleSource(pool, simulator, 4, time.Second)

	simulated, err := source.GetBundles(context.Background(), testParent, 1001, 1_000_000)
	require.NoError(t, err)
	require.Len(t, simulated, 2)
	assert.Same(t, bundles[0], simulated[0].OriginalBundle)
	assert.Same(t, bundles[2], simulated[1].OriginalBundle)
	assert.Equal(t, int32(4), calls.Load())

	assert.Equal(t, bundlepool.StatusSimulated, pool.status[bundles[0].Hash()])
	assert.Equal(t, bundlepool.StatusFailed, pool.status[bundles[1].Hash()])
	assert.Equal(t, bundlepool.StatusSimulated, pool.status[bundles[2].Hash()])
	assert.Equal(t, bundlepool.StatusFailed, pool.status[bundles[3].Hash()])

	again, err := source.GetBundles(context.Background(), testParent, 1001, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, simulated, again)
	assert.Equal(t, int32(4), calls.Load(), "results should be served from the cache")
}

func TestPoolBundleSourceCancelled(t *testing.T) {
	bundle := newCandidate(1, 100).OriginalBundle
	ctx, cancel := context.WithCancel(context.Background())
	simulator := simulatorFunc(func(_ *types.Header, _ uint64, bundle *types.Bundle) (*types.SimulatedBundle, error) {
		cancel()
		return &types.SimulatedBundle{OriginalBundle: bundle}, nil
	})
	pool := newMemPool(bundle)
	source := NewPoolBundleSource(pool, simulator, 1, 0)

	simulated, err := source.GetBundles(ctx, testParent, 1001, 1_000_000)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, simulated)
	assert.Empty(t, pool.status)

	_, cached := source.cache.GetBundleCache(testParent.Hash()).GetSimulatedBundle(bundle.Hash())
	assert.False(t, cached)
}
