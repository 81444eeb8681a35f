package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/ledger"
)

func init() {
	Register(&WithdrawSequence{})
	Register(&RejectedWithdraw{})
}

// WithdrawSequence deposits 100, withdraws 40, fails to withdraw 100
// and withdraws the remaining 60.
type WithdrawSequence struct{}

func (ws *WithdrawSequence) Desc() string {
	return "deposit, partial withdraw, overdraw and withdraw all"
}

func (ws *WithdrawSequence) Run(env *Env) error {
	ctx := context.Background()
	alice, err := env.NewAccount(100)
	if err != nil {
		return err
	}
	if err := env.DepositNative(ctx, alice, 100); err != nil {
		return fmt.Errorf("deposit failed: %v", err)
	}
	if _, err := env.Ledger.Withdraw(ctx, alice, asset.Native, 40); err != nil {
		return fmt.Errorf("withdraw failed: %v", err)
	}
	if err := expectBalance(env.Ledger, alice, asset.Native, 60); err != nil {
		return err
	}
	_, err = env.Ledger.Withdraw(ctx, alice, asset.Native, 100)
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		return fmt.Errorf("overdraw returned %v", err)
	}
	sent, err := env.Ledger.WithdrawAll(ctx, alice, asset.Native)
	if err != nil {
		return fmt.Errorf("withdraw all failed: %v", err)
	}
	if sent != 60 {
		return fmt.Errorf("withdraw all sent %d", sent)
	}
	if got := env.Chain.NativeBalance(alice); got != 100 {
		return fmt.Errorf("wallet holds %d after round trip", got)
	}
	return expectBalance(env.Ledger, alice, asset.Native, 0)
}

// RejectedWithdraw sends to a recipient refusing the value, the debit
// must be rolled back.
type RejectedWithdraw struct{}

func (rw *RejectedWithdraw) Desc() string {
	return "withdraw to a rejecting recipient leaves the balance intact"
}

func (rw *RejectedWithdraw) Run(env *Env) error {
	ctx := context.Background()
	bob, err := env.NewAccount(50)
	if err != nil {
		return err
	}
	if err := env.DepositNative(ctx, bob, 50); err != nil {
		return fmt.Errorf("deposit failed: %v", err)
	}

	env.Chain.SetReceiver(bob, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		return false, []byte("refused")
	})
	defer env.Chain.SetReceiver(bob, nil)

	_, err = env.Ledger.Withdraw(ctx, bob, asset.Native, 20)
	if !errors.Is(err, ledger.ErrExternalTransferFailed) {
		return fmt.Errorf("rejected withdraw returned %v", err)
	}
	return expectBalance(env.Ledger, bob, asset.Native, 50)
}
