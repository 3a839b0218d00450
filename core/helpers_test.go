package core

import (
	"math/big"
	"testing"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	testSender = common.HexToAddress("0x71562b71999873DB5b286dF957af199Ec94617F7")
	testTo     = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testSig    = &types.SignedAuth{V: big.NewInt(27), R: big.NewInt(1), S: big.NewInt(1)}
)

func newTestTx(t *testing.T, nonce uint64) *types.Transaction {
	t.Helper()
	tx, err := types.NewTransaction(types.TxData{
		Nonce:    nonce,
		GasPrice: big.NewInt(1),
		Gas:      params.TxGas,
		To:       &testTo,
		Value:    big.NewInt(1),
	}, testSender, testSig)
	require.NoError(t, err)
	return tx
}

func newTestBlock(gasLimit uint64, txs ...*types.Transaction) *types.Block {
	return types.NewBlock(&types.Header{Number: big.NewInt(1), GasLimit: gasLimit, Time: 1000}, txs)
}

// memState is a Provider recording every call made to it.
type memState struct {
	accounts map[common.Address]bool
	nonces   map[common.Address]uint64
	created  int
	commits  []params.Rules
	snaps    int
	reverts  []int
}

func newMemState() *memState {
	return &memState{accounts: make(map[common.Address]bool), nonces: make(map[common.Address]uint64)}
}

func (s *memState) AccountExists(addr common.Address) bool { return s.accounts[addr] }
func (s *memState) Commit(rules params.Rules)              { s.commits = append(s.commits, rules) }
func (s *memState) GetNonce(addr common.Address) uint64    { return s.nonces[addr] }
func (s *memState) Snapshot() int                          { s.snaps++; return s.snaps }
func (s *memState) RevertToSnapshot(revid int)             { s.reverts = append(s.reverts, revid) }

func (s *memState) CreateAccount(addr common.Address, balance *uint256.Int) {
	s.accounts[addr] = true
	s.created++
}

// funcProcessor executes transactions with a callback.
type funcProcessor func(tx *types.Transaction, header *types.Header, tracer ReceiptTracer) error

func (f funcProcessor) Execute(tx *types.Transaction, header *types.Header, tracer ReceiptTracer) error {
	return f(tx, header, tracer)
}

// gasProcessor reports every transaction as executed with its gas limit.
var gasProcessor = funcProcessor(func(tx *types.Transaction, _ *types.Header, tracer ReceiptTracer) error {
	tracer.MarkAsExecuted(&ExecutionResult{UsedGas: tx.Gas()})
	return nil
})

// countingTracer counts scope calls around a BlockReceiptsTracer.
type countingTracer struct {
	*BlockReceiptsTracer
	starts map[common.Hash]int
	ends   map[common.Hash]int
	open   common.Hash
}

func newCountingTracer(block *types.Block) *countingTracer {
	return &countingTracer{
		BlockReceiptsTracer: NewBlockReceiptsTracer(block, NewReceiptBloomGenerator()),
		starts:              make(map[common.Hash]int),
		ends:                make(map[common.Hash]int),
	}
}

func (t *countingTracer) StartNewTxTrace(tx *types.Transaction) {
	t.starts[tx.Hash()]++
	t.open = tx.Hash()
	t.BlockReceiptsTracer.StartNewTxTrace(tx)
}

func (t *countingTracer) EndTxTrace() {
	t.ends[t.open]++
	t.BlockReceiptsTracer.EndTxTrace()
}
