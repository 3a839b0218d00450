package core

import (
	"sync"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/panjf2000/ants/v2"
)

type ReceiptProcessor interface {
	Apply(receipt *types.Receipt)
}

var (
	_ ReceiptProcessor = (*ReceiptBloomGenerator)(nil)
	_ ReceiptProcessor = (*AsyncReceiptBloomGenerator)(nil)
)

func NewReceiptBloomGenerator() *ReceiptBloomGenerator {
	return &ReceiptBloomGenerator{}
}

type ReceiptBloomGenerator struct {
}

func (p *ReceiptBloomGenerator) Apply(receipt *types.Receipt) {
	receipt.Bloom = types.CreateBloom(receipt)
}

// NewAsyncReceiptBloomGenerator creates a generator computing blooms on a
// pool of workerSize goroutines. Blooms are only complete after Close.
func NewAsyncReceiptBloomGenerator(workerSize int) (*AsyncReceiptBloomGenerator, error) {
	pool, err := ants.NewPool(workerSize)
	if err != nil {
		return nil, err
	}
	return &AsyncReceiptBloomGenerator{pool: pool}, nil
}

type AsyncReceiptBloomGenerator struct {
	pool *ants.Pool
	wg   sync.WaitGroup
}

func (p *AsyncReceiptBloomGenerator) Apply(receipt *types.Receipt) {
	if receipt == nil || len(receipt.Logs) == 0 {
		return
	}
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		receipt.Bloom = types.CreateBloom(receipt)
	})
	if err != nil {
		p.wg.Done()
		receipt.Bloom = types.CreateBloom(receipt)
	}
}

func (p *AsyncReceiptBloomGenerator) Close() {
	p.wg.Wait()
	p.pool.Release()
}
