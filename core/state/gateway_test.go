package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayCommitRules(t *testing.T) {
	addr := common.HexToAddress("0x0101")

	g, err := NewMemoryGateway()
	require.NoError(t, err)
	g.CreateAccount(addr, nil)
	g.Commit(params.Rules{IsHomestead: true})
	assert.True(t, g.AccountExists(addr), "empty account must survive homestead commit")

	g, err = NewMemoryGateway()
	require.NoError(t, err)
	g.CreateAccount(addr, nil)
	g.Commit(params.Rules{IsHomestead: true, IsEIP158: true})
	assert.False(t, g.AccountExists(addr), "empty account must be swept under EIP-158")
}

func TestGatewayBalanceAndNonce(t *testing.T) {
	addr := common.HexToAddress("0x0202")
	g, err := NewMemoryGateway()
	require.NoError(t, err)

	g.CreateAccount(addr, uint256.NewInt(100))
	g.SetNonce(addr, 4)
	assert.Equal(t, uint64(4), g.GetNonce(addr))
	assert.Equal(t, uint64(100), g.GetBalance(addr).Uint64())

	snap := g.Snapshot()
	g.AddBalance(addr, uint256.NewInt(1))
	g.SetNonce(addr, 5)
	g.RevertToSnapshot(snap)
	assert.Equal(t, uint64(4), g.GetNonce(addr))
	assert.Equal(t, uint64(100), g.GetBalance(addr).Uint64())

	cpy := g.Copy()
	cpy.SetNonce(addr, 9)
	assert.Equal(t, uint64(4), g.GetNonce(addr))
	assert.Equal(t, uint64(9), cpy.GetNonce(addr))
}
