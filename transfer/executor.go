// Package transfer moves value between the ledger custody and the
// outside world through injected, untrusted capabilities.
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
)

var (
	ErrExternalTransferFailed = errors.New("external transfer failed")
	ErrCapabilityMissing      = errors.New("transfer capability missing")
)

// NativeSender sends native value out of the ledger custody. The
// recipient may run arbitrary code, including calls back into the
// ledger, before SendNative returns.
type NativeSender interface {
	SendNative(ctx context.Context, to string, amount uint64) (ok bool, data []byte, err error)
}

// Token is the transfer capability of a fungible token contract.
// Transfer moves tokens held by the ledger, TransferFrom moves
// tokens the owner allowed the ledger to spend.
type Token interface {
	Transfer(ctx context.Context, to string, amount uint64) (bool, error)
	TransferFrom(ctx context.Context, from string, to string, amount uint64) (bool, error)
}

// TokenResolver finds the token contract of an asset identifier.
type TokenResolver interface {
	Token(assetID string) (Token, error)
}

// TransferError describes a failed external transfer. It always
// matches ErrExternalTransferFailed with errors.Is.
type TransferError struct {
	Asset   asset.Asset
	Account string
	Amount  uint64
	// Data is whatever the recipient returned.
	Data []byte
	Err  error
}

func (e *TransferError) Error() string {
	msg := fmt.Sprintf("%v: %d of %s with %s", ErrExternalTransferFailed, e.Amount, e.Asset, e.Account)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransferError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTransferFailed}
	}
	return []error{ErrExternalTransferFailed, e.Err}
}

// Executor performs the external value movements of one ledger.
type Executor struct {
	ledgerID string
	native   NativeSender
	tokens   TokenResolver
}

func NewExecutor(ledgerID string, native NativeSender, tokens TokenResolver) *Executor {
	return &Executor{ledgerID: ledgerID, native: native, tokens: tokens}
}

// SendNative sends native value to the account, a false success
// signal is a failure even when no error is reported.
func (e *Executor) SendNative(ctx context.Context, account string, amount uint64) ([]byte, error) {
	if e.native == nil {
		return nil, &TransferError{Asset: asset.Native, Account: account, Amount: amount, Err: ErrCapabilityMissing}
	}
	ok, data, err := e.native.SendNative(ctx, account, amount)
	if err != nil || !ok {
		return data, &TransferError{Asset: asset.Native, Account: account, Amount: amount, Data: data, Err: err}
	}
	return data, nil
}

// SendToken transfers tokens held by the ledger to the account.
func (e *Executor) SendToken(ctx context.Context, assetID string, account string, amount uint64) error {
	a := asset.Token(assetID)
	token, err := e.token(assetID)
	if err != nil {
		return &TransferError{Asset: a, Account: account, Amount: amount, Err: err}
	}
	ok, err := token.Transfer(ctx, account, amount)
	if err != nil || !ok {
		return &TransferError{Asset: a, Account: account, Amount: amount, Err: err}
	}
	return nil
}

// PullToken moves tokens from the account into the ledger custody.
func (e *Executor) PullToken(ctx context.Context, assetID string, from string, amount uint64) error {
	a := asset.Token(assetID)
	token, err := e.token(assetID)
	if err != nil {
		return &TransferError{Asset: a, Account: from, Amount: amount, Err: err}
	}
	ok, err := token.TransferFrom(ctx, from, e.ledgerID, amount)
	if err != nil || !ok {
		return &TransferError{Asset: a, Account: from, Amount: amount, Err: err}
	}
	return nil
}

// Send dispatches an outbound transfer by asset kind.
func (e *Executor) Send(ctx context.Context, a asset.Asset, account string, amount uint64) error {
	if a.IsNative() {
		_, err := e.SendNative(ctx, account, amount)
		return err
	}
	return e.SendToken(ctx, a.ID, account, amount)
}

func (e *Executor) token(assetID string) (Token, error) {
	if e.tokens == nil {
		return nil, ErrCapabilityMissing
	}
	token, err := e.tokens.Token(assetID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrCapabilityMissing
	}
	return token, nil
}
