package bundlepool

import (
	"container/heap"
	"errors"
	"math/big"
	"testing"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testChain struct {
	head *types.Header
}

func (c *testChain) CurrentBlock() *types.Header { return c.head }

// pricerFunc prices bundles with a callback.
type pricerFunc func(bundle *types.Bundle) (*big.Int, error)

func (f pricerFunc) PriceBundle(bundle *types.Bundle) (*big.Int, error) { return f(bundle) }

// nonceAsPrice prices a bundle by the nonce of its first transaction.
var nonceAsPrice = pricerFunc(func(bundle *types.Bundle) (*big.Int, error) {
	return new(big.Int).SetUint64(bundle.Txs[0].Nonce()), nil
})

// createTestBundle returns a bundle priced at price by nonceAsPrice.
func createTestBundle(price int64) *types.Bundle {
	return &types.Bundle{
		Txs: types.Transactions{types.NewSystemTransaction(types.TxData{Nonce: uint64(price), Gas: 21000})},
	}
}

func newTestPool(t *testing.T, config Config) *BundlePool {
	t.Helper()
	pool := New(config, &testChain{head: &types.Header{Number: big.NewInt(10)}}, rawdb.NewMemoryDatabase())
	pool.SetBundlePricer(nonceAsPrice)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestPriceHeap_PushPop(t *testing.T) {
	h := priceHeap{}

	for _, price := range []int64{100, 20, 200, 50} {
		heap.Push(&h, &pooledBundle{bundle: createTestBundle(price), price: big.NewInt(price)})
	}
	assert.Equal(t, 4, h.Len(), "Heap should contain 4 bundles")
	assert.Equal(t, int64(20), h[0].price.Int64(), "Top bundle should have the lowest price")
	for i, entry := range h {
		assert.Equal(t, i, entry.index, "Entries should track their heap position")
	}

	for _, want := range []int64{20, 50, 100, 200} {
		popped := heap.Pop(&h).(*pooledBundle)
		assert.Equal(t, want, popped.price.Int64(), "Bundles should pop in ascending price order")
		assert.Equal(t, -1, popped.index)
	}
	assert.Equal(t, 0, h.Len(), "Heap should be empty after popping all bundles")
}

func TestAllBundlesOrder(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)

	bundles := []*types.Bundle{createTestBundle(9), createTestBundle(2), createTestBundle(5)}
	for _, b := range bundles {
		require.NoError(t, pool.AddBundle(b))
	}
	assert.Equal(t, bundles, pool.AllBundles())

	pool.PruneBundle(bundles[1].Hash())
	assert.Equal(t, []*types.Bundle{bundles[0], bundles[2]}, pool.AllBundles())
	assert.Equal(t, StatusPruned, pool.BundleStatus(bundles[1].Hash()))
}

func TestAddBundle(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)

	bundle := createTestBundle(7)
	require.NoError(t, pool.AddBundle(bundle))
	assert.Equal(t, int64(7), pool.entries[bundle.Hash()].price.Int64(), "Price should come from the pricer")
	assert.Same(t, bundle, pool.GetBundle(bundle.Hash()))
	assert.Equal(t, StatusPending, pool.BundleStatus(bundle.Hash()))

	assert.ErrorIs(t, pool.AddBundle(createTestBundle(7)), ErrBundleAlreadyExist)
	assert.ErrorIs(t, pool.AddBundle(&types.Bundle{}), ErrEmptyBundle)
	assert.ErrorIs(t, pool.AddBundle(createTestBundle(0)), ErrBundleGasPriceLow)

	future := createTestBundle(8)
	future.MinTimestamp = ^uint64(0) >> 1
	assert.ErrorIs(t, pool.AddBundle(future), ErrBundleTimestampTooHigh)

	metrics := pool.BundleMetrics(10, 10)
	assert.Equal(t, [][]common.Hash{bundle.TxHashes()}, metrics[10])
}

func TestAddBundleWithoutPricer(t *testing.T) {
	pool := New(DefaultConfig, &testChain{head: &types.Header{Number: big.NewInt(1)}}, rawdb.NewMemoryDatabase())
	defer pool.Close()

	assert.ErrorIs(t, pool.AddBundle(createTestBundle(1)), ErrPricerMissing)
}

func TestAddBundleSimulationFailure(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)
	errSim := errors.New("reverted")
	pool.SetBundlePricer(pricerFunc(func(*types.Bundle) (*big.Int, error) { return nil, errSim }))

	bundle := createTestBundle(3)
	assert.ErrorIs(t, pool.AddBundle(bundle), errSim)
	assert.Equal(t, StatusFailed, pool.BundleStatus(bundle.Hash()))
	assert.Empty(t, pool.AllBundles())
}

func TestSlotEviction(t *testing.T) {
	pool := newTestPool(t, Config{GlobalSlots: 2})

	cheap, mid, rich := createTestBundle(10), createTestBundle(20), createTestBundle(30)
	require.NoError(t, pool.AddBundle(cheap))
	require.NoError(t, pool.AddBundle(mid))
	require.NoError(t, pool.AddBundle(rich))

	assert.Nil(t, pool.GetBundle(cheap.Hash()), "Cheapest bundle should be evicted")
	assert.Equal(t, StatusPruned, pool.BundleStatus(cheap.Hash()))
	assert.Len(t, pool.AllBundles(), 2)

	assert.ErrorIs(t, pool.AddBundle(createTestBundle(5)), ErrBundleGasPriceLow)
}

func TestRemovedBundlesLeavePriceHeap(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)

	for i := int64(1); i <= 1000; i++ {
		bundle := createTestBundle(i)
		require.NoError(t, pool.AddBundle(bundle))
		pool.MarkIncluded([]*types.Bundle{bundle})
	}
	cancelled, pruned, expired := createTestBundle(2001), createTestBundle(2002), createTestBundle(2003)
	expired.MaxBlockNumber = 5
	for _, b := range []*types.Bundle{cancelled, pruned, expired} {
		require.NoError(t, pool.AddBundle(b))
	}
	require.NoError(t, pool.CancelBundle(cancelled.UUID()))
	pool.PruneBundle(pruned.Hash())
	pool.Reset(nil, &types.Header{Number: big.NewInt(6), Time: 10})

	assert.Empty(t, pool.entries)
	assert.Zero(t, pool.byPrice.Len())
	assert.Zero(t, pool.slots)
}

func TestDuplicateBundleNotPriced(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)
	calls := 0
	pool.SetBundlePricer(pricerFunc(func(bundle *types.Bundle) (*big.Int, error) {
		calls++
		return nonceAsPrice(bundle)
	}))

	bundle := createTestBundle(4)
	require.NoError(t, pool.AddBundle(bundle))
	assert.ErrorIs(t, pool.AddBundle(createTestBundle(4)), ErrBundleAlreadyExist)
	assert.Equal(t, 1, calls)
}

func TestOversizedBundle(t *testing.T) {
	pool := newTestPool(t, Config{GlobalSlots: 2})

	small := createTestBundle(1)
	require.NoError(t, pool.AddBundle(small))

	oversized := &types.Bundle{Txs: types.Transactions{types.NewSystemTransaction(types.TxData{
		Nonce: 50,
		Gas:   21000,
		Data:  make([]byte, 2*bundleSlotSize),
	})}}
	assert.ErrorIs(t, pool.AddBundle(oversized), ErrBundleOversized)
	assert.Same(t, small, pool.GetBundle(small.Hash()), "Pooled bundles should not be evicted")
	assert.Equal(t, uint64(1), pool.slots)
}

func TestPendingBundles(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)

	first := createTestBundle(3)
	expired := createTestBundle(9)
	expired.MaxBlockNumber = 10
	future := createTestBundle(4)
	future.MinTimestamp = 2000
	second := createTestBundle(1)
	closed := createTestBundle(6)
	closed.MaxTimestamp = 999

	for _, b := range []*types.Bundle{first, expired, future, second, closed} {
		require.NoError(t, pool.AddBundle(b))
	}

	pending := pool.PendingBundles(11, 1000)
	require.Len(t, pending, 2)
	assert.Same(t, first, pending[0], "Bundles should be returned in arrival order")
	assert.Same(t, second, pending[1])

	assert.Nil(t, pool.GetBundle(expired.Hash()))
	assert.Nil(t, pool.GetBundle(closed.Hash()))
	assert.NotNil(t, pool.GetBundle(future.Hash()), "Future bundle should be rolled over")

	pending = pool.PendingBundles(11, 2000)
	assert.Len(t, pending, 3)
	assert.Same(t, future, pending[1])
}

func TestCancelAndInclude(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)

	a, b := createTestBundle(2), createTestBundle(3)
	require.NoError(t, pool.AddBundle(a))
	require.NoError(t, pool.AddBundle(b))

	require.NoError(t, pool.CancelBundle(a.UUID()))
	assert.Equal(t, StatusCancelled, pool.BundleStatus(a.Hash()))
	assert.ErrorIs(t, pool.CancelBundle(uuid.New()), ErrBundleNotFound)

	pool.MarkIncluded([]*types.Bundle{b})
	assert.Equal(t, StatusIncluded, pool.BundleStatus(b.Hash()))
	assert.Empty(t, pool.AllBundles())
	assert.Zero(t, pool.slots)
}

func TestReset(t *testing.T) {
	pool := newTestPool(t, DefaultConfig)

	stale := createTestBundle(2)
	stale.MaxBlockNumber = 11
	live := createTestBundle(3)
	require.NoError(t, pool.AddBundle(stale))
	require.NoError(t, pool.AddBundle(live))

	pool.Reset(nil, &types.Header{Number: big.NewInt(12), Time: 10})
	assert.Nil(t, pool.GetBundle(stale.Hash()))
	assert.NotNil(t, pool.GetBundle(live.Hash()))
}

func TestBundleStatusPersistence(t *testing.T) {
	db := rawdb.NewMemoryDatabase()
	hash := common.HexToHash("0x01")

	NewBundleStatus(db).UpdateBundleStatus(map[common.Hash]StatusCode{hash: StatusSimulated})

	fresh := NewBundleStatus(db)
	assert.Equal(t, StatusSimulated, fresh.GetBundleStatus(hash))
	assert.Equal(t, StatusUnknown, fresh.GetBundleStatus(common.HexToHash("0x02")))
	assert.Equal(t, "simulated", StatusSimulated.String())
}

func TestConfigSanitize(t *testing.T) {
	conf := (&Config{}).sanitize()
	assert.Equal(t, DefaultConfig, conf)
}
