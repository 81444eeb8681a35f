package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/log"
)

func init() {
	Register(&TokenRoundTrip{})
}

// TokenRoundTrip pulls tokens into the ledger, moves them between two
// accounts and sends them out again.
type TokenRoundTrip struct{}

func (tr *TokenRoundTrip) Desc() string {
	return "token deposit, internal transfer and withdraw"
}

func (tr *TokenRoundTrip) Run(env *Env) error {
	token, contract, ok := env.Token()
	if !ok {
		log.Info("no token registered, skip")
		return nil
	}
	ctx := context.Background()
	alice, err := env.NewAccount(0)
	if err != nil {
		return err
	}
	bob, err := env.NewAccount(0)
	if err != nil {
		return err
	}
	if err := contract.Mint(alice, 1000); err != nil {
		return err
	}

	_, err = env.Ledger.Deposit(ctx, alice, token, 500)
	if !errors.Is(err, ledger.ErrExternalTransferFailed) {
		return fmt.Errorf("deposit without allowance returned %v", err)
	}
	if err := contract.Approve(alice, env.Ledger.ID(), 500); err != nil {
		return err
	}
	if _, err := env.Ledger.Deposit(ctx, alice, token, 500); err != nil {
		return fmt.Errorf("deposit failed: %v", err)
	}
	if _, err := env.Ledger.TransferInternal(ctx, alice, bob, token, 200); err != nil {
		return fmt.Errorf("transfer failed: %v", err)
	}
	if _, err := env.Ledger.Withdraw(ctx, bob, token, 200); err != nil {
		return fmt.Errorf("withdraw failed: %v", err)
	}
	if got := contract.BalanceOf(bob); got != 200 {
		return fmt.Errorf("bob wallet holds %d", got)
	}
	if err := expectBalance(env.Ledger, bob, token, 0); err != nil {
		return err
	}
	return expectBalance(env.Ledger, alice, token, 300)
}
