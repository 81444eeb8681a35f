package memchain

import (
	"context"
	"fmt"
	"sync"

	"github.com/ultiledger/go-ultivault/transfer"
	"github.com/ultiledger/go-ultivault/util"
)

// Hook runs after a token transfer moved the tokens and before the
// transfer call returns.
type Hook func(ctx context.Context, from string, to string, amount uint64)

// TokenContract is a fungible token with balances and allowances.
// The ledger identity is the only spender it knows about.
type TokenContract struct {
	id        string
	custodian string

	mu           sync.Mutex
	balances     map[string]uint64
	allowances   map[string]map[string]uint64
	hook         Hook
	falseSuccess bool

	store *store
}

func (t *TokenContract) ID() string {
	return t.id
}

func (t *TokenContract) Mint(account string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, err := util.AddUint64(t.balances[account], amount)
	if err != nil {
		return err
	}
	return t.commit(map[string]record{
		balanceKey(t.id, account): {Token: t.id, Account: account, Amount: v},
	})
}

// commit saves the entries and applies them, the caller holds the lock.
func (t *TokenContract) commit(entries map[string]record) error {
	if err := t.store.save(entries); err != nil {
		return err
	}
	for _, r := range entries {
		t.apply(r)
	}
	return nil
}

func (t *TokenContract) apply(records ...record) {
	for _, r := range records {
		if r.Spender == "" {
			t.balances[r.Account] = r.Amount
			continue
		}
		if t.allowances[r.Account] == nil {
			t.allowances[r.Account] = make(map[string]uint64)
		}
		t.allowances[r.Account][r.Spender] = r.Amount
	}
}

func (t *TokenContract) BalanceOf(account string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Approve allows the spender to move up to amount of the owner tokens.
func (t *TokenContract) Approve(owner string, spender string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.commit(map[string]record{
		allowanceKey(t.id, owner, spender): {Token: t.id, Account: owner, Spender: spender, Amount: amount},
	})
}

func (t *TokenContract) Allowance(owner string, spender string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender]
}

// SetHook installs code that runs inside every transfer.
func (t *TokenContract) SetHook(h Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = h
}

// SetFalseSuccess makes transfers report false without an error and
// without moving any token.
func (t *TokenContract) SetFalseSuccess(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.falseSuccess = v
}

// Transfer moves tokens held by the custodian.
func (t *TokenContract) Transfer(ctx context.Context, to string, amount uint64) (bool, error) {
	return t.transfer(ctx, t.custodian, to, amount, false)
}

// TransferFrom moves tokens of the owner on behalf of the custodian.
func (t *TokenContract) TransferFrom(ctx context.Context, from string, to string, amount uint64) (bool, error) {
	return t.transfer(ctx, from, to, amount, true)
}

func (t *TokenContract) transfer(ctx context.Context, from string, to string, amount uint64, spend bool) (bool, error) {
	t.mu.Lock()
	if t.falseSuccess {
		t.mu.Unlock()
		return false, nil
	}
	if spend && t.allowances[from][t.custodian] < amount {
		t.mu.Unlock()
		return false, fmt.Errorf("%w: %s allows %d, needs %d", ErrAllowanceExceeded, from, t.allowances[from][t.custodian], amount)
	}
	if t.balances[from] < amount {
		t.mu.Unlock()
		return false, fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, t.balances[from], amount)
	}
	entries := make(map[string]record)
	if from != to {
		v, err := util.AddUint64(t.balances[to], amount)
		if err != nil {
			t.mu.Unlock()
			return false, err
		}
		entries[balanceKey(t.id, from)] = record{Token: t.id, Account: from, Amount: t.balances[from] - amount}
		entries[balanceKey(t.id, to)] = record{Token: t.id, Account: to, Amount: v}
	}
	if spend {
		entries[allowanceKey(t.id, from, t.custodian)] = record{
			Token:   t.id,
			Account: from,
			Spender: t.custodian,
			Amount:  t.allowances[from][t.custodian] - amount,
		}
	}
	if err := t.commit(entries); err != nil {
		t.mu.Unlock()
		return false, err
	}
	hook := t.hook
	t.mu.Unlock()

	if hook != nil {
		hook(ctx, from, to, amount)
	}
	return true, nil
}

var _ transfer.Token = (*TokenContract)(nil)
