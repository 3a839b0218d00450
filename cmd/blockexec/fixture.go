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
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/bnb-chain/blockexec/core/state"
	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// fixture is the JSON input of the execute, select and build commands.
type fixture struct {
	Alloc        map[common.Address]fixtureAccount `json:"alloc"`
	Header       *types.Header                     `json:"header"`
	Transactions []fixtureTx                       `json:"transactions"`
	Bundles      []fixtureBundle                   `json:"bundles"`
	Candidates   []fixtureCandidate                `json:"candidates"`
	SystemCalls  []fixtureSystemCall               `json:"systemCalls"`
}

type fixtureAccount struct {
	Balance *hexutil.Big   `json:"balance"`
	Nonce   hexutil.Uint64 `json:"nonce"`
	Code    hexutil.Bytes  `json:"code"`
}

type fixtureTx struct {
	From     common.Address  `json:"from"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Gas      hexutil.Uint64  `json:"gas"`
	To       *common.Address `json:"to"`
	Value    *hexutil.Big    `json:"value"`
	Input    hexutil.Bytes   `json:"input"`
	V        *hexutil.Big    `json:"v"`
	R        *hexutil.Big    `json:"r"`
	S        *hexutil.Big    `json:"s"`
}

type fixtureBundle struct {
	Txs               []fixtureTx   `json:"txs"`
	MaxBlockNumber    uint64        `json:"maxBlockNumber"`
	MinTimestamp      uint64        `json:"minTimestamp"`
	MaxTimestamp      uint64        `json:"maxTimestamp"`
	RevertingTxHashes []common.Hash `json:"revertingTxHashes"`
	RevertingTxs      []int         `json:"revertingTxs"` // indexes into Txs
}

type fixtureCandidate struct {
	ID       string       `json:"id"`
	GasUsed  uint64       `json:"gasUsed"`
	GasPrice *hexutil.Big `json:"gasPrice"`
}

type fixtureSystemCall struct {
	To    common.Address `json:"to"`
	Input hexutil.Bytes  `json:"input"`
}

func loadFixture(file string) (*fixture, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if fx.Header == nil {
		fx.Header = &types.Header{GasLimit: 30_000_000}
	}
	if fx.Header.Number == nil {
		fx.Header.Number = new(big.Int)
	}
	return &fx, nil
}

// newState creates the in-memory state described by the alloc.
func (fx *fixture) newState() (*state.Gateway, error) {
	st, err := state.NewMemoryGateway()
	if err != nil {
		return nil, err
	}
	for addr, account := range fx.Alloc {
		var balance *uint256.Int
		if account.Balance != nil {
			var overflow bool
			if balance, overflow = uint256.FromBig(account.Balance.ToInt()); overflow {
				return nil, fmt.Errorf("balance of %v overflows 256 bits", addr)
			}
		}
		st.CreateAccount(addr, balance)
		st.SetNonce(addr, uint64(account.Nonce))
		if len(account.Code) > 0 {
			st.SetCode(addr, account.Code)
		}
	}
	return st, nil
}

func (tx *fixtureTx) toTransaction() (*types.Transaction, error) {
	data := types.TxData{
		Nonce:    uint64(tx.Nonce),
		GasPrice: tx.GasPrice.ToInt(),
		Gas:      uint64(tx.Gas),
		To:       tx.To,
		Value:    tx.Value.ToInt(),
		Data:     tx.Input,
	}
	if tx.From == types.SystemAddress {
		return types.NewSystemTransaction(data), nil
	}
	return types.NewTransaction(data, tx.From, &types.SignedAuth{V: tx.V.ToInt(), R: tx.R.ToInt(), S: tx.S.ToInt()})
}

func toTransactions(txs []fixtureTx) (types.Transactions, error) {
	out := make(types.Transactions, len(txs))
	for i := range txs {
		tx, err := txs[i].toTransaction()
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		out[i] = tx
	}
	return out, nil
}

func (b *fixtureBundle) toBundle() (*types.Bundle, error) {
	txs, err := toTransactions(b.Txs)
	if err != nil {
		return nil, err
	}
	reverting := append([]common.Hash{}, b.RevertingTxHashes...)
	for _, idx := range b.RevertingTxs {
		if idx < 0 || idx >= len(txs) {
			return nil, fmt.Errorf("reverting tx index %d out of range", idx)
		}
		reverting = append(reverting, txs[idx].Hash())
	}
	return &types.Bundle{
		Txs:               txs,
		MaxBlockNumber:    b.MaxBlockNumber,
		MinTimestamp:      b.MinTimestamp,
		MaxTimestamp:      b.MaxTimestamp,
		RevertingTxHashes: reverting,
	}, nil
}
