package miner

import (
	"context"
	"math/big"
	"slices"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	selectedBundleMeter = metrics.NewRegisteredMeter("miner/bundles/selected", nil)
	skippedBundleMeter  = metrics.NewRegisteredMeter("miner/bundles/skipped", nil)
)

// SimulatedBundleSource provides priced bundle candidates for the block
// built on top of parent.
type SimulatedBundleSource interface {
	GetBundles(ctx context.Context, parent *types.Header, timestamp, gasLimit uint64) ([]*types.SimulatedBundle, error)
}

// BundleSelector picks the bundles merged into a block.
type BundleSelector struct {
	source           SimulatedBundleSource
	maxMergedBundles int
}

func NewBundleSelector(source SimulatedBundleSource, maxMergedBundles int) *BundleSelector {
	return &BundleSelector{source: source, maxMergedBundles: maxMergedBundles}
}

// SelectBundles retrieves the candidates for the next block and packs the
// best paying ones into gasLimit. If ctx is cancelled while candidates are
// retrieved, the context error is returned and nothing is selected.
func (s *BundleSelector) SelectBundles(ctx context.Context, parent *types.Header, timestamp, gasLimit uint64) ([]*types.Bundle, error) {
	candidates, err := s.source.GetBundles(ctx, parent, timestamp, gasLimit)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	selected := SelectSimulatedBundles(candidates, gasLimit, s.maxMergedBundles)

	bundles := make([]*types.Bundle, len(selected))
	var gasUsed uint64
	for i, simmed := range selected {
		bundles[i] = simmed.OriginalBundle
		gasUsed += simmed.BundleGasUsed
	}
	selectedBundleMeter.Mark(int64(len(bundles)))
	log.Debug("Selected bundles", "parent", parent.Number, "candidates", len(candidates), "selected", len(bundles), "gas", gasUsed, "limit", gasLimit)
	return bundles, nil
}

// SelectSimulatedBundles orders candidates by adjusted gas price, highest
// first, and takes every candidate that still fits in the remaining gas
// until maxBundles are taken. Candidates with equal prices keep their
// relative order. Candidates that do not fit are skipped and never
// reconsidered, so the result is a greedy approximation of the most
// valuable subset. The input slice is not modified.
func SelectSimulatedBundles(candidates []*types.SimulatedBundle, gasLimit uint64, maxBundles int) []*types.SimulatedBundle {
	selected := make([]*types.SimulatedBundle, 0)
	if maxBundles <= 0 {
		return selected
	}
	ordered := slices.Clone(candidates)
	slices.SortStableFunc(ordered, func(a, b *types.SimulatedBundle) int {
		return gasPrice(b).Cmp(gasPrice(a))
	})

	remaining := gasLimit
	for _, candidate := range ordered {
		if len(selected) >= maxBundles {
			break
		}
		if candidate.BundleGasUsed > remaining {
			skippedBundleMeter.Mark(1)
			continue
		}
		selected = append(selected, candidate)
		remaining -= candidate.BundleGasUsed
	}
	return selected
}

func gasPrice(b *types.SimulatedBundle) *big.Int {
	if b.BundleGasPrice == nil {
		return new(big.Int)
	}
	return b.BundleGasPrice
}

// FlattenBundles concatenates the transactions of bundles in order.
func FlattenBundles(bundles []*types.Bundle) types.Transactions {
	var n int
	for _, bundle := range bundles {
		n += len(bundle.Txs)
	}
	txs := make(types.Transactions, 0, n)
	for _, bundle := range bundles {
		txs = append(txs, bundle.Txs...)
	}
	return txs
}
