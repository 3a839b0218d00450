// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/bnb-chain/blockexec/consensus/systemcontract"
	"github.com/bnb-chain/blockexec/core"
	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/txpool/bundlepool"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/bnb-chain/blockexec/miner"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var (
	noNonceCheckFlag = &cli.BoolFlag{
		Name:  "nononce",
		Usage: "Execute with the sender's current nonce instead of validating it",
	}
	gasLimitFlag = &cli.Uint64Flag{
		Name:  "gaslimit",
		Usage: "Gas available to bundles (default: the fixture header gas limit)",
	}
	maxBundlesFlag = &cli.IntFlag{
		Name:  "maxbundles",
		Usage: "Maximum number of selected bundles (default: Miner.Mev.MaxMergedBundles)",
	}
)

var (
	executeCommand = &cli.Command{
		Action: execute,
		Name:   "execute",
		Usage:  "Execute the transactions of a fixture block",
		Flags:  []cli.Flag{fixtureFlag, noNonceCheckFlag},
		Description: `
The execute command applies the fixture transactions in order on top of the
fixture alloc and prints one receipt per transaction.`,
	}
	selectCommand = &cli.Command{
		Action: selectBundles,
		Name:   "select",
		Usage:  "Select bundles from priced candidates",
		Flags:  []cli.Flag{fixtureFlag, gasLimitFlag, maxBundlesFlag},
		Description: `
The select command ranks the fixture candidates by adjusted gas price and
prints the ones that would be merged into a block.`,
	}
	buildCommand = &cli.Command{
		Action: build,
		Name:   "build",
		Usage:  "Build a block from fixture bundles and system calls",
		Flags:  []cli.Flag{fixtureFlag},
		Description: `
The build command submits the fixture bundles to a bundle pool, simulates
and selects them, and builds the block following the fixture header with
the fixture system calls appended.`,
	}
)

func execute(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	fx, err := loadFixture(ctx.String(fixtureFlag.Name))
	if err != nil {
		return err
	}
	st, err := fx.newState()
	if err != nil {
		return err
	}
	txs, err := toTransactions(fx.Transactions)
	if err != nil {
		return err
	}
	options := types.NoProcessingOptions
	if ctx.Bool(noNonceCheckFlag.Name) {
		options |= types.DoNotVerifyNonce
	}
	for _, tx := range txs {
		if tx.IsSystem() {
			systemcontract.EnsureSystemAccount(st)
			break
		}
	}

	var (
		block     = types.NewBlock(fx.Header, txs)
		processor = core.NewEVMProcessor(core.DefaultChainConfig(), st)
		executor  = core.NewBlockValidationTransactionsExecutor(core.NewExecuteTransactionProcessorAdapter(processor), st, cfg.Executor)
	)
	defer executor.Stop()

	var bloom core.ReceiptProcessor = core.NewReceiptBloomGenerator()
	if cfg.Executor.BloomWorkers > 0 {
		async, err := core.NewAsyncReceiptBloomGenerator(cfg.Executor.BloomWorkers)
		if err != nil {
			return err
		}
		bloom = async
	}
	tracer := core.NewBlockReceiptsTracer(block, bloom)
	receipts, execErr := executor.ProcessTransactions(block, options, tracer, processor.Rules(block.Header()))
	if async, ok := bloom.(*core.AsyncReceiptBloomGenerator); ok {
		async.Close()
	}
	if receipts != nil {
		printReceipts(ctx.App.Writer, receipts)
		fmt.Fprintf(ctx.App.Writer, "gas used: %d\n", tracer.GasUsed())
	}
	return execErr
}

func selectBundles(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	fx, err := loadFixture(ctx.String(fixtureFlag.Name))
	if err != nil {
		return err
	}
	gasLimit := fx.Header.GasLimit
	if ctx.IsSet(gasLimitFlag.Name) {
		gasLimit = ctx.Uint64(gasLimitFlag.Name)
	}
	maxBundles := int(*cfg.Miner.Mev.MaxMergedBundles)
	if ctx.IsSet(maxBundlesFlag.Name) {
		maxBundles = ctx.Int(maxBundlesFlag.Name)
	}

	ids := make(map[*types.SimulatedBundle]string, len(fx.Candidates))
	candidates := make([]*types.SimulatedBundle, len(fx.Candidates))
	for i, c := range fx.Candidates {
		candidates[i] = &types.SimulatedBundle{
			OriginalBundle: &types.Bundle{},
			BundleGasPrice: c.GasPrice.ToInt(),
			BundleGasUsed:  c.GasUsed,
		}
		ids[candidates[i]] = c.ID
	}
	selected := miner.SelectSimulatedBundles(candidates, gasLimit, maxBundles)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Rank", "Bundle", "Gas Price", "Gas Used"})
	var used uint64
	for i, simmed := range selected {
		used += simmed.BundleGasUsed
		table.Append([]string{strconv.Itoa(i + 1), ids[simmed], bigString(simmed.BundleGasPrice), strconv.FormatUint(simmed.BundleGasUsed, 10)})
	}
	table.SetFooter([]string{"", "Total", "", fmt.Sprintf("%d/%d", used, gasLimit)})
	table.Render()
	return nil
}

// fixedChain reports a fixed header as the chain head.
type fixedChain struct {
	head *types.Header
}

func (c fixedChain) CurrentBlock() *types.Header { return c.head }

func build(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	fx, err := loadFixture(ctx.String(fixtureFlag.Name))
	if err != nil {
		return err
	}
	st, err := fx.newState()
	if err != nil {
		return err
	}
	var (
		parent      = fx.Header
		chainConfig = core.DefaultChainConfig()
		stateAt     = func(*types.Header) (*state.Gateway, error) { return st, nil }
		simulator   = miner.NewEVMBundleSimulator(chainConfig, stateAt, cfg.Miner.Etherbase, cfg.Miner.Mev.MinBundleGasPrice)
		chain       = fixedChain{head: parent}
	)
	pool := bundlepool.New(cfg.BundlePool, chain, rawdb.NewMemoryDatabase())
	defer pool.Close()
	pool.SetBundlePricer(miner.NewHeadPricer(simulator, chain.CurrentBlock))

	for i := range fx.Bundles {
		bundle, err := fx.Bundles[i].toBundle()
		if err != nil {
			return fmt.Errorf("bundle %d: %w", i, err)
		}
		if err := pool.AddBundle(bundle); err != nil {
			log.Warn("Bundle rejected by pool", "index", i, "hash", bundle.Hash(), "err", err)
		}
	}

	systemTxs := func(*types.Header, state.Provider) (types.Transactions, error) {
		txs := make(types.Transactions, len(fx.SystemCalls))
		for i, call := range fx.SystemCalls {
			txs[i] = systemcontract.NewSystemContract(call.To).GenerateSystemTransaction(call.Input)
		}
		return txs, nil
	}
	source := miner.NewPoolBundleSource(pool, simulator, *cfg.Miner.Mev.SimulationWorkers, *cfg.Miner.Mev.SimulationTimeout)
	selector := miner.NewBundleSelector(source, int(*cfg.Miner.Mev.MaxMergedBundles))
	builder := miner.NewBuilder(&cfg.Miner, chainConfig, cfg.Executor, stateAt, selector, pool, systemTxs)

	timestamp := parent.Time + 1
	result, err := builder.BuildBlock(ctx.Context, parent, timestamp)
	if err != nil {
		return err
	}
	printReceipts(ctx.App.Writer, result.Receipts)
	fmt.Fprintf(ctx.App.Writer, "block %d %v: %d txs, %d bundles\n", result.Block.NumberU64(), result.Block.Hash().Hex(), len(result.Block.Transactions()), len(result.Bundles))
	return nil
}

func printReceipts(w io.Writer, receipts types.Receipts) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Index", "Tx Hash", "Outcome", "Status", "Gas Used", "Cumulative", "Error"})
	for _, receipt := range receipts {
		var errText string
		if receipt.Err != nil {
			errText = receipt.Err.Error()
		}
		table.Append([]string{
			strconv.FormatUint(uint64(receipt.TransactionIndex), 10),
			receipt.TxHash.TerminalString(),
			receipt.Outcome.String(),
			strconv.FormatUint(receipt.Status, 10),
			strconv.FormatUint(receipt.GasUsed, 10),
			strconv.FormatUint(receipt.CumulativeGasUsed, 10),
			errText,
		})
	}
	table.Render()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
