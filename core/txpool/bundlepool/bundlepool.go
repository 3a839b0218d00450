package bundlepool

import (
	"cmp"
	"container/heap"
	"errors"
	"math/big"
	"slices"
	"sync"
	"time"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/google/uuid"
)

const (
	// bundleSlotSize is the number of encoded bytes charged as one pool slot.
	bundleSlotSize = 128 * 1024

	// maxMinTimestampFromNow bounds how far in the future a bundle may start.
	maxMinTimestampFromNow = 5 * time.Minute
)

var (
	bundleGauge = metrics.NewRegisteredGauge("bundlepool/bundles", nil)
	slotsGauge  = metrics.NewRegisteredGauge("bundlepool/slots", nil)
)

var (
	// ErrPricerMissing is returned if no pricer was installed before adding.
	ErrPricerMissing = errors.New("bundle pricer is missing")

	// ErrBundleTimestampTooHigh is returned if the bundle's MinTimestamp is too far ahead.
	ErrBundleTimestampTooHigh = errors.New("bundle MinTimestamp is too high")

	// ErrBundleGasPriceLow is returned if the bundle pays less than the pool accepts.
	ErrBundleGasPriceLow = errors.New("bundle gas price is too low")

	// ErrBundleAlreadyExist is returned if the bundle is already pooled.
	ErrBundleAlreadyExist = errors.New("bundle already exist")

	// ErrEmptyBundle is returned for a bundle without transactions.
	ErrEmptyBundle = errors.New("bundle has no transactions")

	// ErrBundleNotFound is returned when cancelling an unknown bundle.
	ErrBundleNotFound = errors.New("bundle not found")

	// ErrBundleOversized is returned for a bundle needing more slots than the
	// whole pool has.
	ErrBundleOversized = errors.New("bundle exceeds pool capacity")
)

// BlockChain is the chain view the pool needs: the current head.
type BlockChain interface {
	CurrentBlock() *types.Header
}

// BundlePricer prices a bundle on top of the current head.
type BundlePricer interface {
	PriceBundle(bundle *types.Bundle) (*big.Int, error)
}

// pooledBundle is a bundle together with its admission data.
type pooledBundle struct {
	bundle *types.Bundle
	price  *big.Int
	seq    uint64
	slots  uint64
	index  int // position in the price heap
}

// BundlePool holds priced bundles waiting for inclusion. Bundles are handed
// out in admission order; when the slot budget is exhausted the cheapest
// bundle is evicted.
type BundlePool struct {
	config Config

	mu      sync.RWMutex
	entries map[common.Hash]*pooledBundle
	byPrice priceHeap
	seq     uint64
	slots   uint64

	// arrivals records, per head number, the tx hashes of admitted bundles.
	arrivals   map[int64][][]common.Hash
	arrivalsMu sync.RWMutex

	status *BundleStatus
	pricer BundlePricer
	chain  BlockChain

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates a bundle pool. Status records are written through to db.
func New(config Config, chain BlockChain, db ethdb.KeyValueStore) *BundlePool {
	config = (&config).sanitize()

	pool := &BundlePool{
		config:   config,
		entries:  make(map[common.Hash]*pooledBundle),
		arrivals: make(map[int64][][]common.Hash),
		status:   NewBundleStatus(db),
		chain:    chain,
		quit:     make(chan struct{}),
	}
	pool.wg.Add(1)
	go pool.loop()

	return pool
}

func (p *BundlePool) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.pruneArrivals(p.chain.CurrentBlock().Number.Int64())
		case <-p.quit:
			return
		}
	}
}

func (p *BundlePool) pruneArrivals(head int64) {
	p.arrivalsMu.Lock()
	defer p.arrivalsMu.Unlock()

	for number := range p.arrivals {
		if number <= head-int64(p.config.MaxBundleBlocks) {
			delete(p.arrivals, number)
		}
	}
}

// SetBundlePricer installs the pricer used by AddBundle.
func (p *BundlePool) SetBundlePricer(pricer BundlePricer) {
	p.pricer = pricer
}

// AddBundle prices a bundle and admits it into the pool.
func (p *BundlePool) AddBundle(bundle *types.Bundle) error {
	if err := p.validateBundle(bundle); err != nil {
		return err
	}
	hash := bundle.Hash()
	if p.GetBundle(hash) != nil {
		return ErrBundleAlreadyExist
	}
	slots := numSlots(bundle)
	if slots > p.config.GlobalSlots {
		return ErrBundleOversized
	}

	price, err := p.pricer.PriceBundle(bundle)
	if err != nil {
		log.Debug("Bundle pricing failed", "hash", hash, "err", err)
		p.status.UpdateBundleStatus(map[common.Hash]StatusCode{hash: StatusFailed})
		return err
	}
	if price.Cmp(new(big.Int).SetUint64(p.config.PriceLimit)) < 0 {
		return ErrBundleGasPriceLow
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[hash]; ok {
		return ErrBundleAlreadyExist
	}
	if p.slots+slots > p.config.GlobalSlots {
		if price.Cmp(p.lowestPrice()) < 0 {
			return ErrBundleGasPriceLow
		}
		for p.slots+slots > p.config.GlobalSlots {
			p.evictCheapest()
		}
	}
	p.admit(hash, bundle, price, slots)
	p.recordArrival(bundle)
	return nil
}

func (p *BundlePool) validateBundle(bundle *types.Bundle) error {
	if p.pricer == nil {
		return ErrPricerMissing
	}
	if len(bundle.Txs) == 0 {
		return ErrEmptyBundle
	}
	if bundle.MinTimestamp > uint64(time.Now().Add(maxMinTimestampFromNow).Unix()) {
		return ErrBundleTimestampTooHigh
	}
	return nil
}

// admit inserts a bundle. The caller holds p.mu.
func (p *BundlePool) admit(hash common.Hash, bundle *types.Bundle, price *big.Int, slots uint64) {
	p.seq++
	entry := &pooledBundle{bundle: bundle, price: price, seq: p.seq, slots: slots}
	p.entries[hash] = entry
	heap.Push(&p.byPrice, entry)
	p.slots += slots
	p.status.UpdateBundleStatus(map[common.Hash]StatusCode{hash: StatusPending})
	p.updateGauges()
}

func (p *BundlePool) recordArrival(bundle *types.Bundle) {
	head := p.chain.CurrentBlock().Number.Int64()

	p.arrivalsMu.Lock()
	defer p.arrivalsMu.Unlock()
	p.arrivals[head] = append(p.arrivals[head], bundle.TxHashes())
}

// BundleMetrics returns the tx hashes of bundles admitted while the head was
// within [fromBlock, toBlock].
func (p *BundlePool) BundleMetrics(fromBlock, toBlock int64) map[int64][][]common.Hash {
	p.arrivalsMu.RLock()
	defer p.arrivalsMu.RUnlock()

	ret := make(map[int64][][]common.Hash)
	for number := fromBlock; number <= toBlock; number++ {
		if hashes, ok := p.arrivals[number]; ok {
			ret[number] = hashes
		}
	}
	return ret
}

// GetBundle returns the pooled bundle with the given hash, or nil.
func (p *BundlePool) GetBundle(hash common.Hash) *types.Bundle {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if entry := p.entries[hash]; entry != nil {
		return entry.bundle
	}
	return nil
}

// PruneBundle drops a bundle from the pool.
func (p *BundlePool) PruneBundle(hash common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.remove(hash, StatusPruned)
	p.updateGauges()
}

// CancelBundle removes the bundle with the given UUID.
func (p *BundlePool) CancelBundle(id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for hash, entry := range p.entries {
		if entry.bundle.UUID() == id {
			p.remove(hash, StatusCancelled)
			p.updateGauges()
			return nil
		}
	}
	return ErrBundleNotFound
}

// PendingBundles returns the bundles eligible for the given block, oldest
// first. Expired bundles are dropped and future ones are kept for later.
func (p *BundlePool) PendingBundles(blockNumber uint64, blockTimestamp uint64) []*types.Bundle {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneExpired(blockNumber, blockTimestamp)
	ready := make([]*types.Bundle, 0, len(p.entries))
	for _, entry := range p.ordered() {
		if blockTimestamp >= entry.bundle.MinTimestamp {
			ready = append(ready, entry.bundle)
		}
	}
	return ready
}

// AllBundles returns every pooled bundle in admission order.
func (p *BundlePool) AllBundles() []*types.Bundle {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bundles := make([]*types.Bundle, 0, len(p.entries))
	for _, entry := range p.ordered() {
		bundles = append(bundles, entry.bundle)
	}
	return bundles
}

// SetBundleStatus records the outcome of a simulation or inclusion.
func (p *BundlePool) SetBundleStatus(status map[common.Hash]StatusCode) {
	p.status.UpdateBundleStatus(status)
}

// BundleStatus returns the last recorded state of a bundle.
func (p *BundlePool) BundleStatus(hash common.Hash) StatusCode {
	return p.status.GetBundleStatus(hash)
}

// MarkIncluded removes the included bundles from the pool.
func (p *BundlePool) MarkIncluded(bundles []*types.Bundle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, bundle := range bundles {
		p.remove(bundle.Hash(), StatusIncluded)
	}
	p.updateGauges()
}

// Close stops the background pruning loop.
func (p *BundlePool) Close() error {
	close(p.quit)
	p.wg.Wait()
	log.Info("Bundle pool stopped")
	return nil
}

// Reset drops the bundles that can no longer be included after newHead.
func (p *BundlePool) Reset(oldHead, newHead *types.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pruneExpired(newHead.Number.Uint64(), newHead.Time)
}

// pruneExpired removes the bundles that are past their block or time window.
// The caller holds p.mu.
func (p *BundlePool) pruneExpired(number, timestamp uint64) {
	for hash, entry := range p.entries {
		if expired(entry.bundle, number, timestamp) {
			p.remove(hash, StatusPruned)
		}
	}
	p.updateGauges()
}

func expired(bundle *types.Bundle, number, timestamp uint64) bool {
	if bundle.MaxBlockNumber != 0 && number > bundle.MaxBlockNumber {
		return true
	}
	return bundle.MaxTimestamp != 0 && timestamp > bundle.MaxTimestamp
}

// ordered returns the pooled entries sorted by admission. The caller holds p.mu.
func (p *BundlePool) ordered() []*pooledBundle {
	entries := make([]*pooledBundle, 0, len(p.entries))
	for _, entry := range p.entries {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b *pooledBundle) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return entries
}

// remove deletes a bundle and records its final status. The caller holds p.mu.
func (p *BundlePool) remove(hash common.Hash, status StatusCode) {
	entry := p.entries[hash]
	if entry == nil {
		return
	}
	p.slots -= entry.slots
	delete(p.entries, hash)
	heap.Remove(&p.byPrice, entry.index)
	p.status.UpdateBundleStatus(map[common.Hash]StatusCode{hash: status})
}

// evictCheapest removes the lowest priced bundle.
func (p *BundlePool) evictCheapest() {
	if p.byPrice.Len() > 0 {
		p.remove(p.byPrice[0].bundle.Hash(), StatusPruned)
	}
}

// lowestPrice returns the price of the cheapest pooled bundle.
func (p *BundlePool) lowestPrice() *big.Int {
	if p.byPrice.Len() == 0 {
		return new(big.Int)
	}
	return p.byPrice[0].price
}

func (p *BundlePool) updateGauges() {
	bundleGauge.Update(int64(len(p.entries)))
	slotsGauge.Update(int64(p.slots))
}

// numSlots calculates the number of slots needed for a single bundle.
func numSlots(bundle *types.Bundle) uint64 {
	return (bundle.Size() + bundleSlotSize - 1) / bundleSlotSize
}

// priceHeap is a min-heap of pooled bundles ordered by price.
type priceHeap []*pooledBundle

func (h priceHeap) Len() int           { return len(h) }
func (h priceHeap) Less(i, j int) bool { return h[i].price.Cmp(h[j].price) < 0 }

func (h priceHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priceHeap) Push(x any) {
	entry := x.(*pooledBundle)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *priceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	x.index = -1
	*h = old[:n-1]
	return x
}
