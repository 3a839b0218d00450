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

package miner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/bnb-chain/blockexec/consensus/systemcontract"
	"github.com/bnb-chain/blockexec/core"
	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/bnb-chain/blockexec/miner/minerconfig"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/params"
)

var droppedBundleMeter = metrics.NewRegisteredMeter("miner/bundles/dropped", nil)

// SystemTxsFunc returns the system transactions closing the block built on
// top of header. It runs after the bundles have been applied to st.
type SystemTxsFunc func(header *types.Header, st state.Provider) (types.Transactions, error)

// BuildResult is a built block with its receipts and post state.
type BuildResult struct {
	Block    *types.Block
	Receipts types.Receipts
	State    *state.Gateway
	Bundles  []*types.Bundle
}

// Builder assembles blocks from the selected bundles followed by the
// system transactions of the block.
type Builder struct {
	config      *minerconfig.Config
	chainConfig *params.ChainConfig
	execConfig  core.Config
	stateAt     StateAtFunc
	selector    *BundleSelector
	pool        BundlePool
	systemTxs   SystemTxsFunc
}

// NewBuilder creates a builder. selector and pool may be nil, in which case
// no bundles are merged.
func NewBuilder(config *minerconfig.Config, chainConfig *params.ChainConfig, execConfig core.Config, stateAt StateAtFunc, selector *BundleSelector, pool BundlePool, systemTxs SystemTxsFunc) *Builder {
	minerconfig.ApplyDefaultMinerConfig(config)
	return &Builder{
		config:      config,
		chainConfig: chainConfig,
		execConfig:  execConfig,
		stateAt:     stateAt,
		selector:    selector,
		pool:        pool,
		systemTxs:   systemTxs,
	}
}

// BuildBlock builds the block following parent. The selected bundles are
// merged one by one on top of each other and a bundle whose non-reverting
// transactions do not all succeed there is left out. Bundle transactions run
// with full validation; if any of them still fails the block is built again
// without bundles. System transactions run last with nonce verification
// disabled.
func (b *Builder) BuildBlock(ctx context.Context, parent *types.Header, timestamp uint64) (*BuildResult, error) {
	start := time.Now()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   b.config.Etherbase,
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		GasLimit:   b.config.GasCeil,
		Time:       timestamp,
	}

	bundles, err := b.selectBundles(ctx, parent, header)
	if err != nil {
		return nil, err
	}
	base, err := b.stateAt(parent)
	if err != nil {
		return nil, err
	}
	if len(bundles) > 0 {
		bundles = b.mergeBundles(base, header, bundles, header.GasLimit-*b.config.SystemTxsGas)
	}
	result, err := b.build(base, header, bundles)
	if err != nil && len(bundles) > 0 && !errors.Is(err, errSystemTxs) {
		log.Warn("Failed to apply bundles, building without", "number", header.Number, "bundles", len(bundles), "err", err)
		bundles = nil
		result, err = b.build(base, header, nil)
	}
	if err != nil {
		return nil, err
	}
	if b.pool != nil && len(bundles) > 0 {
		b.pool.MarkIncluded(bundles)
	}
	log.Info("Built block", "number", header.Number, "hash", result.Block.Hash(), "txs", len(result.Block.Transactions()),
		"bundles", len(bundles), "elapsed", common.PrettyDuration(time.Since(start)))
	return result, nil
}

var errSystemTxs = errors.New("system transactions failed")

func (b *Builder) selectBundles(ctx context.Context, parent, header *types.Header) ([]*types.Bundle, error) {
	if b.selector == nil || !*b.config.Mev.Enabled {
		return nil, nil
	}
	reserve := *b.config.SystemTxsGas
	if reserve >= header.GasLimit {
		return nil, nil
	}
	bundles, err := b.selector.SelectBundles(ctx, parent, header.Time, header.GasLimit-reserve)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("Failed to select bundles", "number", header.Number, "err", err)
		return nil, nil
	}
	return bundles, nil
}

// mergeBundles applies the bundles in order on a copy of base and returns
// those that kept every non-reverting transaction successful on top of the
// bundles merged before them, within gasLimit.
func (b *Builder) mergeBundles(base *state.Gateway, header *types.Header, bundles []*types.Bundle, gasLimit uint64) []*types.Bundle {
	var (
		work    = base.Copy()
		merged  = make([]*types.Bundle, 0, len(bundles))
		gasUsed uint64
	)
	for _, bundle := range bundles {
		trial := work.Copy()
		used, err := b.applyBundle(trial, header, bundle, gasLimit-gasUsed)
		if err != nil {
			droppedBundleMeter.Mark(1)
			log.Debug("Dropping bundle from block", "number", header.Number, "bundle", bundle.Hash(), "err", err)
			continue
		}
		work, gasUsed = trial, gasUsed+used
		merged = append(merged, bundle)
	}
	return merged
}

// applyBundle executes a bundle on st, aborting on the first faulted
// transaction, and returns the gas it used.
func (b *Builder) applyBundle(st *state.Gateway, header *types.Header, bundle *types.Bundle, gasLimit uint64) (uint64, error) {
	bounded := types.CopyHeader(header)
	bounded.GasLimit = gasLimit
	block := types.NewBlock(bounded, bundle.Txs)

	processor := core.NewEVMProcessor(b.chainConfig, st)
	executor := core.NewBlockValidationTransactionsExecutor(core.NewExecuteTransactionProcessorAdapter(processor), st, core.Config{FaultPolicy: core.AbortOnFault})
	defer executor.Stop()

	tracer := core.NewBlockReceiptsTracer(block)
	receipts, err := executor.ProcessTransactions(block, types.NoProcessingOptions, tracer, processor.Rules(bounded))
	if err != nil {
		return 0, err
	}
	if err := checkBundleReceipts(bundle, receipts); err != nil {
		return 0, err
	}
	return tracer.GasUsed(), nil
}

func (b *Builder) build(base *state.Gateway, header *types.Header, bundles []*types.Bundle) (*BuildResult, error) {
	st := base.Copy()

	processor := core.NewEVMProcessor(b.chainConfig, st)
	rules := processor.Rules(header)
	executor := core.NewBlockValidationTransactionsExecutor(core.NewExecuteTransactionProcessorAdapter(processor), st, b.execConfig)
	defer executor.Stop()

	bundleTxs := FlattenBundles(bundles)
	bundleBlock := types.NewBlock(header, bundleTxs)
	tracer := core.NewBlockReceiptsTracer(bundleBlock, core.NewReceiptBloomGenerator())
	bundleReceipts, err := executor.ProcessTransactions(bundleBlock, types.NoProcessingOptions, tracer, rules)
	if err != nil {
		return nil, err
	}
	for _, bundle := range bundles {
		if err := checkBundleReceipts(bundle, bundleReceipts[:len(bundle.Txs)]); err != nil {
			return nil, fmt.Errorf("bundle %v: %w", bundle.Hash().Hex(), err)
		}
		bundleReceipts = bundleReceipts[len(bundle.Txs):]
	}

	systemcontract.EnsureSystemAccount(st)
	var systemTxs types.Transactions
	if b.systemTxs != nil {
		if systemTxs, err = b.systemTxs(header, st); err != nil {
			return nil, fmt.Errorf("%w: %v", errSystemTxs, err)
		}
	}
	if _, err := executor.ProcessTransactions(types.NewBlock(header, systemTxs), types.DoNotVerifyNonce, tracer, rules); err != nil {
		return nil, fmt.Errorf("%w: %v", errSystemTxs, err)
	}

	txs := make(types.Transactions, 0, len(bundleTxs)+len(systemTxs))
	txs = append(append(txs, bundleTxs...), systemTxs...)
	block := types.NewBlock(header, txs)

	receipts := tracer.TxReceipts()
	hash := block.Hash()
	for _, receipt := range receipts {
		receipt.BlockHash = hash
		for _, l := range receipt.Logs {
			l.BlockHash = hash
		}
	}
	return &BuildResult{Block: block, Receipts: receipts, State: st, Bundles: bundles}, nil
}
