package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/log"
)

func init() {
	Register(&ReentrantReceiver{})
	Register(&ReentrantTokenHook{})
}

// ReentrantReceiver withdraws again from inside the receiver code
// that runs while the first withdrawal is paid out.
type ReentrantReceiver struct{}

func (rr *ReentrantReceiver) Desc() string {
	return "receiver re-entering withdraw is rejected"
}

func (rr *ReentrantReceiver) Run(env *Env) error {
	ctx := context.Background()
	mallory, err := env.NewAccount(100)
	if err != nil {
		return err
	}
	if err := env.DepositNative(ctx, mallory, 100); err != nil {
		return fmt.Errorf("deposit failed: %v", err)
	}

	var innerErr error
	var seen uint64
	env.Chain.SetReceiver(mallory, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		seen = env.Ledger.BalanceOf(mallory, asset.Native)
		_, innerErr = env.Ledger.Withdraw(ctx, mallory, asset.Native, amount)
		return true, nil
	})
	defer env.Chain.SetReceiver(mallory, nil)

	if _, err := env.Ledger.Withdraw(ctx, mallory, asset.Native, 100); err != nil {
		return fmt.Errorf("outer withdraw failed: %v", err)
	}
	if !errors.Is(innerErr, ledger.ErrReentrancyDetected) {
		return fmt.Errorf("inner withdraw returned %v", innerErr)
	}
	if seen != 0 {
		return fmt.Errorf("reentrant read saw %d before the debit", seen)
	}
	if got := env.Chain.NativeBalance(mallory); got != 100 {
		return fmt.Errorf("attacker wallet holds %d", got)
	}
	log.Debugw("reentrant withdraw rejected", "account", mallory, "err", innerErr)
	return expectBalance(env.Ledger, mallory, asset.Native, 0)
}

// ReentrantTokenHook moves the balance internally from inside the
// token transfer hook.
type ReentrantTokenHook struct{}

func (rt *ReentrantTokenHook) Desc() string {
	return "token hook re-entering transfer is rejected"
}

func (rt *ReentrantTokenHook) Run(env *Env) error {
	token, contract, ok := env.Token()
	if !ok {
		log.Info("no token registered, skip")
		return nil
	}
	ctx := context.Background()
	mallory, err := env.NewAccount(0)
	if err != nil {
		return err
	}
	accomplice, err := env.NewAccount(0)
	if err != nil {
		return err
	}
	if err := contract.Mint(mallory, 80); err != nil {
		return err
	}
	if err := contract.Approve(mallory, env.Ledger.ID(), 80); err != nil {
		return err
	}
	if _, err := env.Ledger.Deposit(ctx, mallory, token, 80); err != nil {
		return fmt.Errorf("token deposit failed: %v", err)
	}

	var innerErr error
	contract.SetHook(func(ctx context.Context, from string, to string, amount uint64) {
		if to == mallory {
			_, innerErr = env.Ledger.TransferInternal(ctx, mallory, accomplice, token, amount)
		}
	})
	defer contract.SetHook(nil)

	if _, err := env.Ledger.WithdrawAll(ctx, mallory, token); err != nil {
		return fmt.Errorf("outer withdraw failed: %v", err)
	}
	if !errors.Is(innerErr, ledger.ErrReentrancyDetected) {
		return fmt.Errorf("inner transfer returned %v", innerErr)
	}
	return expectBalance(env.Ledger, accomplice, token, 0)
}
