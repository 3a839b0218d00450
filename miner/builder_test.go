package miner

import (
	"context"
	"math/big"
	"testing"

	"github.com/bnb-chain/blockexec/consensus/systemcontract"
	"github.com/bnb-chain/blockexec/core"
	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/bnb-chain/blockexec/miner/minerconfig"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testValidatorSet = common.HexToAddress("0x0000000000000000000000000000000000001000")
	testOnce         = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

// newOnceCall returns a call to testOnce, which succeeds the first time and
// reverts once its slot 0 is set.
func newOnceCall(t *testing.T, nonce uint64) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(types.TxData{
		Nonce:    nonce,
		GasPrice: big.NewInt(1),
		Gas:      100_000,
		To:       &testOnce,
	}, testSender, testSig)
	require.NoError(t, err)
	return tx
}

func newTestBuilder(t *testing.T, mev bool, source SimulatedBundleSource, pool BundlePool) (*Builder, *state.Gateway) {
	t.Helper()
	st := newTestState(t)
	// STOP
	st.SetCode(testValidatorSet, []byte{0x00})

	validators, err := systemcontract.NewValidatorSetContract(testValidatorSet)
	require.NoError(t, err)
	systemTxs := func(*types.Header, state.Provider) (types.Transactions, error) {
		tx, err := validators.FinalizeChange()
		if err != nil {
			return nil, err
		}
		return types.Transactions{tx}, nil
	}

	maxMerged := uint64(3)
	config := &minerconfig.Config{
		Etherbase: testCoinbase,
		GasCeil:   8_000_000,
		Mev:       minerconfig.MevConfig{Enabled: &mev, MaxMergedBundles: &maxMerged},
	}
	builder := NewBuilder(config, core.DefaultChainConfig(), core.DefaultConfig, staticStateAt(st),
		NewBundleSelector(source, int(*config.Mev.MaxMergedBundles)), pool, systemTxs)
	return builder, st
}

func TestBuildBlock(t *testing.T) {
	b1 := &types.SimulatedBundle{
		OriginalBundle: &types.Bundle{Txs: types.Transactions{newTransfer(t, 0, 3)}},
		BundleGasPrice: big.NewInt(3),
		BundleGasUsed:  21_000,
	}
	b2 := &types.SimulatedBundle{
		OriginalBundle: &types.Bundle{Txs: types.Transactions{newTransfer(t, 1, 2)}},
		BundleGasPrice: big.NewInt(2),
		BundleGasUsed:  21_000,
	}
	var gotLimit uint64
	source := sourceFunc(func(_ context.Context, _ *types.Header, _ uint64, gasLimit uint64) ([]*types.SimulatedBundle, error) {
		gotLimit = gasLimit
		return []*types.SimulatedBundle{b2, b1}, nil
	})
	pool := newMemPool()
	builder, parentState := newTestBuilder(t, true, source, pool)

	result, err := builder.BuildBlock(context.Background(), testParent, 1001)
	require.NoError(t, err)
	assert.Equal(t, uint64(7_000_000), gotLimit)

	txs := result.Block.Transactions()
	require.Len(t, txs, 3)
	assert.Equal(t, b1.OriginalBundle.Txs[0].Hash(), txs[0].Hash())
	assert.Equal(t, b2.OriginalBundle.Txs[0].Hash(), txs[1].Hash())
	assert.True(t, txs[2].IsSystem())

	require.Len(t, result.Receipts, 3)
	for i, receipt := range result.Receipts {
		assert.True(t, receipt.Succeeded(), "receipt %d", i)
		assert.Equal(t, txs[i].Hash(), receipt.TxHash)
		assert.Equal(t, uint(i), receipt.TransactionIndex)
		assert.Equal(t, result.Block.Hash(), receipt.BlockHash)
	}
	assert.Equal(t, []*types.Bundle{b1.OriginalBundle, b2.OriginalBundle}, result.Bundles)
	assert.Equal(t, result.Bundles, pool.included)

	assert.Equal(t, uint64(2), result.State.GetNonce(testSender))
	assert.Equal(t, uint64(1), result.State.GetNonce(types.SystemAddress))
	assert.Equal(t, uint64(5*21_000), result.State.GetBalance(testCoinbase).Uint64())
	assert.Zero(t, parentState.GetNonce(testSender))
}

func TestBuildBlockDropsInvalidBundles(t *testing.T) {
	stale := &types.SimulatedBundle{
		OriginalBundle: &types.Bundle{Txs: types.Transactions{newTransfer(t, 5, 3)}},
		BundleGasPrice: big.NewInt(3),
		BundleGasUsed:  21_000,
	}
	pool := newMemPool()
	builder, _ := newTestBuilder(t, true, staticSource(stale), pool)

	result, err := builder.BuildBlock(context.Background(), testParent, 1001)
	require.NoError(t, err)
	require.Len(t, result.Block.Transactions(), 1)
	assert.True(t, result.Block.Transactions()[0].IsSystem())
	assert.Empty(t, result.Bundles)
	assert.Empty(t, pool.included)
}

func TestBuildBlockWithoutMev(t *testing.T) {
	source := sourceFunc(func(context.Context, *types.Header, uint64, uint64) ([]*types.SimulatedBundle, error) {
		t.Fatal("bundles requested with MEV disabled")
		return nil, nil
	})
	builder, _ := newTestBuilder(t, false, source, nil)

	result, err := builder.BuildBlock(context.Background(), testParent, 1001)
	require.NoError(t, err)
	require.Len(t, result.Receipts, 1)
	assert.Equal(t, types.OutcomeExecuted, result.Receipts[0].Outcome)
	assert.Equal(t, testParent.Hash(), result.Block.ParentHash())
	assert.Equal(t, uint64(11), result.Block.NumberU64())
}

func TestBuildBlockMergesBundlesAtomically(t *testing.T) {
	tests := []struct {
		name      string
		reverting bool // second bundle allows its call to revert
		want      []int
	}{
		{name: "conflicting bundle dropped", want: []int{0, 2}},
		{name: "allowed revert kept", reverting: true, want: []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := newOnceCall(t, 0), newOnceCall(t, 1)
			next := uint64(1)
			if tt.reverting {
				next = 2
			}
			bundles := []*types.Bundle{
				{Txs: types.Transactions{first}},
				{Txs: types.Transactions{second}},
				{Txs: types.Transactions{newTransfer(t, next, 1)}},
			}
			if tt.reverting {
				bundles[1].RevertingTxHashes = []common.Hash{second.Hash()}
			}
			candidates := make([]*types.SimulatedBundle, len(bundles))
			for i, bundle := range bundles {
				candidates[i] = &types.SimulatedBundle{
					OriginalBundle: bundle,
					BundleGasPrice: big.NewInt(int64(3 - i)),
					BundleGasUsed:  100_000,
				}
			}
			pool := newMemPool()
			builder, parentState := newTestBuilder(t, true, staticSource(candidates...), pool)
			// PUSH1 0 SLOAD ISZERO PUSH1 0x0b JUMPI PUSH1 0 PUSH1 0 REVERT JUMPDEST PUSH1 1 PUSH1 0 SSTORE STOP
			parentState.SetCode(testOnce, common.FromHex("0x60005415600b57600080fd5b600160005500"))

			result, err := builder.BuildBlock(context.Background(), testParent, 1001)
			require.NoError(t, err)

			var want []*types.Bundle
			for _, i := range tt.want {
				want = append(want, bundles[i])
			}
			assert.Equal(t, want, result.Bundles)
			assert.Equal(t, want, pool.included)

			txs := result.Block.Transactions()
			require.Len(t, txs, len(want)+1)
			require.Len(t, result.Receipts, len(txs))
			for i, bundle := range want {
				assert.Equal(t, bundle.Txs[0].Hash(), txs[i].Hash())
				receipt := result.Receipts[i]
				assert.Equal(t, types.OutcomeExecuted, receipt.Outcome)
				assert.True(t, receipt.Succeeded() || bundle.RevertingHash(receipt.TxHash), "receipt %d", i)
			}
			assert.True(t, txs[len(txs)-1].IsSystem())
			assert.Equal(t, next+1, result.State.GetNonce(testSender))
		})
	}
}
