package miner

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/bnb-chain/blockexec/core"
	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

var (
	errNonRevertingTxInBundleFailed = errors.New("non-reverting tx in bundle failed")
	errBundlePriceTooLow            = errors.New("bundle price too low")
	errBundleNoGas                  = errors.New("bundle used no gas")
)

// StateAtFunc returns the state after the given header.
type StateAtFunc func(header *types.Header) (*state.Gateway, error)

// BundleSimulator prices a bundle on top of a parent header.
type BundleSimulator interface {
	SimulateBundle(parent *types.Header, timestamp uint64, bundle *types.Bundle) (*types.SimulatedBundle, error)
}

// EVMBundleSimulator executes bundles on a copy of the parent state. The
// adjusted gas price is what the coinbase earns from the bundle, including
// direct transfers, divided by the gas the bundle used.
type EVMBundleSimulator struct {
	chainConfig *params.ChainConfig
	stateAt     StateAtFunc
	coinbase    common.Address
	priceFloor  *big.Int
}

func NewEVMBundleSimulator(chainConfig *params.ChainConfig, stateAt StateAtFunc, coinbase common.Address, priceFloor *big.Int) *EVMBundleSimulator {
	if priceFloor == nil {
		priceFloor = new(big.Int)
	}
	return &EVMBundleSimulator{
		chainConfig: chainConfig,
		stateAt:     stateAt,
		coinbase:    coinbase,
		priceFloor:  priceFloor,
	}
}

func (s *EVMBundleSimulator) SimulateBundle(parent *types.Header, timestamp uint64, bundle *types.Bundle) (*types.SimulatedBundle, error) {
	base, err := s.stateAt(parent)
	if err != nil {
		return nil, err
	}
	st := base.Copy()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   s.coinbase,
		Number:     new(big.Int).Add(parent.Number, common.Big1),
		GasLimit:   parent.GasLimit,
		Time:       timestamp,
	}
	block := types.NewBlock(header, bundle.Txs)

	processor := core.NewEVMProcessor(s.chainConfig, st)
	executor := core.NewBlockValidationTransactionsExecutor(core.NewExecuteTransactionProcessorAdapter(processor), st, core.Config{FaultPolicy: core.AbortOnFault})
	tracer := core.NewBlockReceiptsTracer(block)

	before := st.GetBalance(s.coinbase).ToBig()
	receipts, err := executor.ProcessTransactions(block, types.NoProcessingOptions, tracer, processor.Rules(header))
	if err != nil {
		return nil, fmt.Errorf("bundle %v: %w", bundle.Hash().Hex(), err)
	}
	if err := checkBundleReceipts(bundle, receipts); err != nil {
		return nil, err
	}

	gasUsed := tracer.GasUsed()
	if gasUsed == 0 {
		return nil, errBundleNoGas
	}
	fees := new(big.Int).Sub(st.GetBalance(s.coinbase).ToBig(), before)
	price := new(big.Int).Div(fees, new(big.Int).SetUint64(gasUsed))
	if price.Cmp(s.priceFloor) < 0 {
		return nil, errBundlePriceTooLow
	}
	return &types.SimulatedBundle{
		OriginalBundle: bundle,
		BundleGasFees:  fees,
		BundleGasPrice: price,
		BundleGasUsed:  gasUsed,
	}, nil
}

// checkBundleReceipts fails when a transaction the bundle does not allow to
// revert did not succeed.
func checkBundleReceipts(bundle *types.Bundle, receipts types.Receipts) error {
	reverting := mapset.NewThreadUnsafeSet[common.Hash](bundle.RevertingTxHashes...)
	for _, receipt := range receipts {
		if !receipt.Succeeded() && !reverting.Contains(receipt.TxHash) {
			return fmt.Errorf("%w: %v", errNonRevertingTxInBundleFailed, receipt.TxHash.Hex())
		}
	}
	return nil
}

// HeadPricer prices bundles for admission into the bundle pool by
// simulating them on top of the current head.
type HeadPricer struct {
	simulator BundleSimulator
	head      func() *types.Header
}

func NewHeadPricer(simulator BundleSimulator, head func() *types.Header) *HeadPricer {
	return &HeadPricer{simulator: simulator, head: head}
}

func (p *HeadPricer) PriceBundle(bundle *types.Bundle) (*big.Int, error) {
	head := p.head()
	simmed, err := p.simulator.SimulateBundle(head, head.Time+1, bundle)
	if err != nil {
		return nil, err
	}
	return simmed.BundleGasPrice, nil
}
