package miner

import (
	"context"
	"time"

	"github.com/bnb-chain/blockexec/core/txpool/bundlepool"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"golang.org/x/sync/errgroup"
)

var (
	simulatedBundleMeter = metrics.NewRegisteredMeter("miner/bundles/simulated", nil)
	failedBundleMeter    = metrics.NewRegisteredMeter("miner/bundles/simfailed", nil)
	simulationTimer      = metrics.NewRegisteredTimer("miner/bundles/simulation", nil)
)

// BundlePool is the bundle store backing a PoolBundleSource.
type BundlePool interface {
	PendingBundles(blockNumber uint64, blockTimestamp uint64) []*types.Bundle
	SetBundleStatus(status map[common.Hash]bundlepool.StatusCode)
	MarkIncluded(bundles []*types.Bundle)
}

// PoolBundleSource simulates the pending bundles of a pool.
type PoolBundleSource struct {
	pool      BundlePool
	simulator BundleSimulator
	cache     *BundleCache
	workers   int
	timeout   time.Duration
}

func NewPoolBundleSource(pool BundlePool, simulator BundleSimulator, workers int, timeout time.Duration) *PoolBundleSource {
	if workers <= 0 {
		workers = 1
	}
	return &PoolBundleSource{
		pool:      pool,
		simulator: simulator,
		cache:     NewBundleCache(),
		workers:   workers,
		timeout:   timeout,
	}
}

// GetBundles returns the successfully simulated pending bundles in pool
// order. Results are cached per parent; nothing is cached when ctx ends
// before all simulations are done.
func (s *PoolBundleSource) GetBundles(ctx context.Context, parent *types.Header, timestamp, gasLimit uint64) ([]*types.SimulatedBundle, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()

	bundles := s.pool.PendingBundles(parent.Number.Uint64()+1, timestamp)
	entry := s.cache.GetBundleCache(parent.Hash())

	results := make([]*types.SimulatedBundle, len(bundles))
	errs := make([]error, len(bundles))
	var pending []int
	for i, bundle := range bundles {
		if simmed, ok := entry.GetSimulatedBundle(bundle.Hash()); ok {
			results[i] = simmed
			continue
		}
		pending = append(pending, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, idx := range pending {
		idx := idx
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx], errs[idx] = s.simulator.SimulateBundle(parent, timestamp, bundles[idx])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		succeeded = make(map[common.Hash]*types.SimulatedBundle)
		failed    = make(map[common.Hash]error)
		status    = make(map[common.Hash]bundlepool.StatusCode)
	)
	for _, idx := range pending {
		hash := bundles[idx].Hash()
		if errs[idx] != nil {
			failed[hash] = errs[idx]
			status[hash] = bundlepool.StatusFailed
			failedBundleMeter.Mark(1)
			log.Trace("Error computing gas for a simulateBundle", "hash", hash, "err", errs[idx])
			continue
		}
		succeeded[hash] = results[idx]
		status[hash] = bundlepool.StatusSimulated
		simulatedBundleMeter.Mark(1)
	}
	entry.UpdateSimulatedBundles(succeeded, failed)
	if len(status) > 0 {
		s.pool.SetBundleStatus(status)
	}

	simulated := make([]*types.SimulatedBundle, 0, len(results))
	for _, simmed := range results {
		if simmed != nil {
			simulated = append(simulated, simmed)
		}
	}
	simulationTimer.UpdateSince(start)
	return simulated, nil
}
