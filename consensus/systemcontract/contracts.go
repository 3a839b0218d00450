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

package systemcontract

import (
	"errors"
	"strings"

	"github.com/bnb-chain/blockexec/core/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const validatorSetABI = `[
	{"type":"function","name":"finalizeChange","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getValidators","inputs":[],"outputs":[{"name":"","type":"address[]"}],"stateMutability":"view"}
]`

const rewardABI = `[
	{"type":"function","name":"reward","inputs":[{"name":"benefactors","type":"address[]"},{"name":"kind","type":"uint16[]"}],"outputs":[{"name":"","type":"address[]"},{"name":"","type":"uint256[]"}],"stateMutability":"nonpayable"}
]`

var errRewardKindsMismatch = errors.New("reward kinds do not match benefactors")

// Benefactor kinds understood by the block reward contract.
const (
	RewardAuthor    uint16 = 0
	RewardEmptyStep uint16 = 2
	RewardExternal  uint16 = 3
)

// ValidatorSetContract issues validator rotation calls.
type ValidatorSetContract struct {
	*SystemContract
	abi abi.ABI
}

// NewValidatorSetContract binds the validator set contract at address.
func NewValidatorSetContract(address common.Address) (*ValidatorSetContract, error) {
	parsed, err := abi.JSON(strings.NewReader(validatorSetABI))
	if err != nil {
		return nil, err
	}
	return &ValidatorSetContract{SystemContract: NewSystemContract(address), abi: parsed}, nil
}

// FinalizeChange returns the system transaction finalising a pending
// validator set change.
func (c *ValidatorSetContract) FinalizeChange(opts ...SystemTxOption) (*types.Transaction, error) {
	data, err := c.abi.Pack("finalizeChange")
	if err != nil {
		return nil, err
	}
	return c.GenerateSystemTransaction(data, opts...), nil
}

// GetValidators returns the system transaction reading the current set.
func (c *ValidatorSetContract) GetValidators(opts ...SystemTxOption) (*types.Transaction, error) {
	data, err := c.abi.Pack("getValidators")
	if err != nil {
		return nil, err
	}
	return c.GenerateSystemTransaction(data, opts...), nil
}

// UnpackValidators decodes the return data of a getValidators call.
func (c *ValidatorSetContract) UnpackValidators(ret []byte) ([]common.Address, error) {
	var validators []common.Address
	if err := c.abi.UnpackIntoInterface(&validators, "getValidators", ret); err != nil {
		return nil, err
	}
	return validators, nil
}

// RewardContract issues block reward distribution calls.
type RewardContract struct {
	*SystemContract
	abi abi.ABI
}

// NewRewardContract binds the block reward contract at address.
func NewRewardContract(address common.Address) (*RewardContract, error) {
	parsed, err := abi.JSON(strings.NewReader(rewardABI))
	if err != nil {
		return nil, err
	}
	return &RewardContract{SystemContract: NewSystemContract(address), abi: parsed}, nil
}

// Reward returns the system transaction rewarding benefactors. The kinds
// slice must be as long as benefactors.
func (c *RewardContract) Reward(benefactors []common.Address, kinds []uint16, opts ...SystemTxOption) (*types.Transaction, error) {
	if len(benefactors) != len(kinds) {
		return nil, errRewardKindsMismatch
	}
	data, err := c.abi.Pack("reward", benefactors, kinds)
	if err != nil {
		return nil, err
	}
	return c.GenerateSystemTransaction(data, opts...), nil
}
