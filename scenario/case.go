// Copyright 2019 The go-ultiledger Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scenario holds end-to-end cases exercising a running ledger
// together with the world it custodies value for.
package scenario

import (
	"context"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/crypto"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

var cases []Case

// Register the input case in the global cases slice.
func Register(c Case) {
	cases = append(cases, c)
}

// GetAll returns the registered cases in registration order.
func GetAll() []Case {
	return cases
}

// Case abstracts a scenario run against a ledger. Each concrete
// case should have the Run method implemented.
type Case interface {
	Desc() string
	Run(env *Env) error
}

// Env is the ledger under test and its outside world.
type Env struct {
	Ledger *ledger.Ledger
	Chain  *memchain.Chain
}

// NewAccount generates an account funded with native value in its
// wallet outside the ledger.
func (e *Env) NewAccount(funds uint64) (string, error) {
	accountID, _, err := crypto.GetAccountKeypair()
	if err != nil {
		return "", fmt.Errorf("get account keypair failed: %v", err)
	}
	if funds > 0 {
		if err := e.Chain.Mint(accountID, funds); err != nil {
			return "", fmt.Errorf("fund account failed: %v", err)
		}
	}
	return accountID, nil
}

// DepositNative pays amount from the account wallet into the ledger.
func (e *Env) DepositNative(ctx context.Context, accountID string, amount uint64) error {
	return e.Chain.Call(ctx, accountID, amount, func(ctx context.Context) error {
		_, err := e.Ledger.Deposit(ctx, accountID, asset.Native, amount)
		return err
	})
}

// Token returns the first accepted token and its contract.
func (e *Env) Token() (asset.Asset, *memchain.TokenContract, bool) {
	tokens := e.Ledger.Registry().Tokens()
	if len(tokens) == 0 {
		return asset.Asset{}, nil, false
	}
	contract, err := e.Chain.Contract(tokens[0].ID)
	if err != nil {
		return asset.Asset{}, nil, false
	}
	return tokens[0], contract, true
}

func expectBalance(l *ledger.Ledger, accountID string, a asset.Asset, want uint64) error {
	if got := l.BalanceOf(accountID, a); got != want {
		return fmt.Errorf("unexpected %s balance: %d, want %d", a, got, want)
	}
	return nil
}

// CheckConservation verifies that for every accepted asset the sum of
// the balances matches the custody flow and the custody holdings.
func CheckConservation(env *Env) error {
	assets := append([]asset.Asset{asset.Native}, env.Ledger.Registry().Tokens()...)
	for _, a := range assets {
		total, err := env.Ledger.TotalBalance(a)
		if err != nil {
			return fmt.Errorf("sum %s balances failed: %v", a, err)
		}
		flow, err := env.Ledger.Supply(a)
		if err != nil {
			return fmt.Errorf("get %s supply failed: %v", a, err)
		}
		if flow.Net() != total {
			return fmt.Errorf("%s balances %d do not match flow %d", a, total, flow.Net())
		}

		var custody uint64
		if a.IsNative() {
			custody = env.Chain.NativeBalance(env.Ledger.ID())
		} else {
			contract, err := env.Chain.Contract(a.ID)
			if err != nil {
				return err
			}
			custody = contract.BalanceOf(env.Ledger.ID())
		}
		if custody != total {
			return fmt.Errorf("%s balances %d do not match custody %d", a, total, custody)
		}
	}
	return nil
}
