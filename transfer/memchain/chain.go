// Package memchain is an in-process stand-in for the outside world the
// ledger custodies value for: native wallets and fungible token
// contracts. Accounts may carry receiver code and tokens may carry
// transfer hooks, both of which run before the transfer call returns
// and may call back into the ledger.
package memchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ultiledger/go-ultivault/db"
	"github.com/ultiledger/go-ultivault/transfer"
	"github.com/ultiledger/go-ultivault/util"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAllowanceExceeded = errors.New("allowance exceeded")
	ErrUnknownToken      = errors.New("unknown token")
)

// Receiver is code attached to an account which runs when native
// value arrives, returning false rejects the payment.
type Receiver func(ctx context.Context, from string, amount uint64) (accept bool, data []byte)

// Chain holds native wallets and token contracts.
type Chain struct {
	custodian string

	mu        sync.Mutex
	native    map[string]uint64
	receivers map[string]Receiver
	tokens    map[string]*TokenContract

	store *store
}

// New creates a resident chain whose custody account is the ledger
// identity.
func New(custodian string) *Chain {
	return &Chain{
		custodian: custodian,
		native:    make(map[string]uint64),
		receivers: make(map[string]Receiver),
		tokens:    make(map[string]*TokenContract),
	}
}

// Open creates a chain whose wallets are written through to the
// database and restores the native wallets saved there. Token
// holdings are restored when the token is deployed again.
func Open(custodian string, database db.Database) (*Chain, error) {
	s, err := newStore(database)
	if err != nil {
		return nil, err
	}
	c := New(custodian)
	c.store = s
	records, err := s.load(nativeKey(""))
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		c.native[r.Account] = r.Amount
	}
	return c, nil
}

func (c *Chain) Custodian() string {
	return c.custodian
}

// Mint credits native value to the wallet out of thin air.
func (c *Chain) Mint(account string, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := util.AddUint64(c.native[account], amount)
	if err != nil {
		return err
	}
	if err := c.store.save(map[string]record{nativeKey(account): {Account: account, Amount: v}}); err != nil {
		return err
	}
	c.native[account] = v
	return nil
}

func (c *Chain) NativeBalance(account string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.native[account]
}

// SetReceiver attaches receiver code to the account, nil detaches it.
func (c *Chain) SetReceiver(account string, r Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r == nil {
		delete(c.receivers, account)
		return
	}
	c.receivers[account] = r
}

func (c *Chain) moveNative(from string, to string, amount uint64) error {
	if c.native[from] < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, from, c.native[from], amount)
	}
	if from == to {
		return nil
	}
	v, err := util.AddUint64(c.native[to], amount)
	if err != nil {
		return err
	}
	left := c.native[from] - amount
	if err := c.store.save(map[string]record{
		nativeKey(from): {Account: from, Amount: left},
		nativeKey(to):   {Account: to, Amount: v},
	}); err != nil {
		return err
	}
	c.native[from] = left
	c.native[to] = v
	return nil
}

// SendNative pays native value out of the custody wallet. The
// receiver code of the recipient runs without the chain lock held,
// a rejecting receiver gets the payment reverted.
func (c *Chain) SendNative(ctx context.Context, to string, amount uint64) (bool, []byte, error) {
	c.mu.Lock()
	if err := c.moveNative(c.custodian, to, amount); err != nil {
		c.mu.Unlock()
		return false, nil, err
	}
	receiver := c.receivers[to]
	c.mu.Unlock()

	if receiver == nil {
		return true, nil, nil
	}
	accept, data := receiver(ctx, c.custodian, amount)
	if !accept {
		c.mu.Lock()
		defer c.mu.Unlock()
		if err := c.moveNative(to, c.custodian, amount); err != nil {
			return false, data, fmt.Errorf("revert rejected payment failed: %v", err)
		}
		return false, data, nil
	}
	return true, data, nil
}

// Call models a call into the ledger with native value attached: the
// value moves into custody before fn runs and moves back if fn fails
// or panics.
func (c *Chain) Call(ctx context.Context, from string, value uint64, fn func(ctx context.Context) error) (err error) {
	if value == 0 {
		return fn(ctx)
	}

	c.mu.Lock()
	err = c.moveNative(from, c.custodian, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	succeeded := false
	defer func() {
		if succeeded {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if rerr := c.moveNative(c.custodian, from, value); rerr != nil && err != nil {
			err = fmt.Errorf("%v (revert attached value failed: %v)", err, rerr)
		}
	}()

	if err = fn(ctx); err != nil {
		return err
	}
	succeeded = true
	return nil
}

// DeployToken creates the token contract with the asset identifier.
func (c *Chain) DeployToken(assetID string) (*TokenContract, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tokens[assetID]; ok {
		return nil, fmt.Errorf("token %s already deployed", assetID)
	}
	t := &TokenContract{
		id:         assetID,
		custodian:  c.custodian,
		balances:   make(map[string]uint64),
		allowances: make(map[string]map[string]uint64),
		store:      c.store,
	}
	for _, prefix := range []string{"B/" + assetID + "/", "A/" + assetID + "/"} {
		records, err := c.store.load(prefix)
		if err != nil {
			return nil, err
		}
		t.apply(records...)
	}
	c.tokens[assetID] = t
	return t, nil
}

// Token resolves the token contract for the executor.
func (c *Chain) Token(assetID string) (transfer.Token, error) {
	t, err := c.Contract(assetID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Contract returns the deployed token contract.
func (c *Chain) Contract(assetID string) (*TokenContract, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tokens[assetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, assetID)
	}
	return t, nil
}

var (
	_ transfer.NativeSender  = (*Chain)(nil)
	_ transfer.TokenResolver = (*Chain)(nil)
)
