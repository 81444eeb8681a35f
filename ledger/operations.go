package ledger

import (
	"context"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/log"
)

func (l *Ledger) validate(accountID string, a asset.Asset, amount uint64) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if err := l.registry.ValidateAccount(accountID); err != nil {
		return err
	}
	return l.registry.ValidateAsset(a)
}

// Deposit credits the account with amount of the asset and returns
// the new balance. Native value is already in custody when Deposit is
// called, tokens are pulled from the account first and credited only
// after the pull succeeded.
func (l *Ledger) Deposit(ctx context.Context, accountID string, a asset.Asset, amount uint64) (uint64, error) {
	if err := l.validate(accountID, a, amount); err != nil {
		return 0, l.fail(OpDeposit, accountID, a, err)
	}

	var balance uint64
	err := l.guarded(ctx, OpDeposit, func(env *envelope) error {
		bal, err := l.balance(env, accountID, a)
		if err != nil {
			return err
		}
		newBal, err := checkAdd(bal, amount)
		if err != nil {
			return err
		}
		flow, err := l.flow(env.tx, a)
		if err != nil {
			return err
		}
		if flow.Inflow, err = checkAdd(flow.Inflow, amount); err != nil {
			return err
		}

		if !a.IsNative() {
			if err := l.executor.PullToken(ctx, a.ID, accountID, amount); err != nil {
				return err
			}
		}

		if err := l.setBalance(env, accountID, a, newBal); err != nil {
			return l.stranded(OpDeposit, accountID, a, amount, err)
		}
		if err := l.saveFlow(env.tx, a, flow); err != nil {
			return l.stranded(OpDeposit, accountID, a, amount, err)
		}
		env.emit(event.New(event.Deposited, l.id, accountID, a.Key(), amount, newBal))
		balance = newBal
		return nil
	})
	if err != nil {
		return 0, l.fail(OpDeposit, accountID, a, err)
	}

	log.Debugw("deposit committed", "op", OpDeposit, "account", accountID, "asset", a.Key(), "amount", amount, "balance", balance)
	return balance, nil
}

// stranded reports value which already moved into custody but could
// not be credited.
func (l *Ledger) stranded(op Op, accountID string, a asset.Asset, amount uint64, err error) error {
	if !a.IsNative() {
		log.Errorw("tokens pulled but not credited", "op", op, "account", accountID, "asset", a.Key(), "amount", amount, "err", err)
	}
	return err
}

// Withdraw debits amount of the asset from the account and sends it
// out of custody. The debit is visible to reads while the transfer is
// in flight and is discarded if the transfer fails.
func (l *Ledger) Withdraw(ctx context.Context, accountID string, a asset.Asset, amount uint64) (uint64, error) {
	if err := l.validate(accountID, a, amount); err != nil {
		return 0, l.fail(OpWithdraw, accountID, a, err)
	}

	err := l.guarded(ctx, OpWithdraw, func(env *envelope) error {
		return l.withdraw(ctx, env, accountID, a, amount)
	})
	if err != nil {
		return 0, l.fail(OpWithdraw, accountID, a, err)
	}

	log.Debugw("withdraw committed", "op", OpWithdraw, "account", accountID, "asset", a.Key(), "amount", amount)
	return amount, nil
}

// WithdrawAll sends the whole balance of the account in the asset,
// the balance is read inside the guarded section.
func (l *Ledger) WithdrawAll(ctx context.Context, accountID string, a asset.Asset) (uint64, error) {
	if err := l.registry.ValidateAccount(accountID); err != nil {
		return 0, l.fail(OpWithdrawAll, accountID, a, err)
	}
	if err := l.registry.ValidateAsset(a); err != nil {
		return 0, l.fail(OpWithdrawAll, accountID, a, err)
	}

	var sent uint64
	err := l.guarded(ctx, OpWithdrawAll, func(env *envelope) error {
		bal, err := l.balance(env, accountID, a)
		if err != nil {
			return err
		}
		if bal == 0 {
			return fmt.Errorf("%w: nothing to withdraw", ErrInsufficientBalance)
		}
		if err := l.withdraw(ctx, env, accountID, a, bal); err != nil {
			return err
		}
		sent = bal
		return nil
	})
	if err != nil {
		return 0, l.fail(OpWithdrawAll, accountID, a, err)
	}

	log.Debugw("withdraw all committed", "op", OpWithdrawAll, "account", accountID, "asset", a.Key(), "amount", sent)
	return sent, nil
}

// withdraw stages the debit and the outflow, then performs the
// external send.
func (l *Ledger) withdraw(ctx context.Context, env *envelope, accountID string, a asset.Asset, amount uint64) error {
	bal, err := l.balance(env, accountID, a)
	if err != nil {
		return err
	}
	if err := checkSufficient(bal, amount); err != nil {
		return err
	}
	newBal, err := l.am.SubBalance(bal, amount)
	if err != nil {
		return err
	}
	flow, err := l.flow(env.tx, a)
	if err != nil {
		return err
	}
	if flow.Outflow, err = checkAdd(flow.Outflow, amount); err != nil {
		return err
	}

	if err := l.setBalance(env, accountID, a, newBal); err != nil {
		return err
	}
	if err := l.saveFlow(env.tx, a, flow); err != nil {
		return err
	}

	if err := l.executor.Send(ctx, a, accountID, amount); err != nil {
		return err
	}
	env.emit(event.New(event.Withdrawn, l.id, accountID, a.Key(), amount, newBal))
	return nil
}

// TransferInternal moves amount of the asset between two accounts of
// the ledger without any external transfer.
func (l *Ledger) TransferInternal(ctx context.Context, from string, to string, a asset.Asset, amount uint64) (bool, error) {
	if err := l.validate(from, a, amount); err != nil {
		return false, l.fail(OpTransferInternal, from, a, err)
	}
	if err := l.registry.ValidateDestination(to); err != nil {
		return false, l.fail(OpTransferInternal, from, a, err)
	}

	err := l.guarded(ctx, OpTransferInternal, func(env *envelope) error {
		fromBal, err := l.balance(env, from, a)
		if err != nil {
			return err
		}
		if err := checkSufficient(fromBal, amount); err != nil {
			return err
		}

		ev := event.New(event.Transferred, l.id, from, a.Key(), amount, fromBal)
		ev.Counterparty = to
		ev.CounterpartyBalance = fromBal
		if from == to {
			env.emit(ev)
			return nil
		}

		toBal, err := l.balance(env, to, a)
		if err != nil {
			return err
		}
		newTo, err := checkAdd(toBal, amount)
		if err != nil {
			return err
		}
		newFrom, err := l.am.SubBalance(fromBal, amount)
		if err != nil {
			return err
		}

		if err := l.setBalance(env, from, a, newFrom); err != nil {
			return err
		}
		if err := l.setBalance(env, to, a, newTo); err != nil {
			return err
		}
		ev.Balance = newFrom
		ev.CounterpartyBalance = newTo
		env.emit(ev)
		return nil
	})
	if err != nil {
		return false, l.fail(OpTransferInternal, from, a, err)
	}

	log.Debugw("transfer committed", "op", OpTransferInternal, "account", from, "to", to, "asset", a.Key(), "amount", amount)
	return true, nil
}

// Pay settles a payment of due native value from payer to payee out
// of paid, which is already in custody. The excess is refunded to the
// payer inside the same guarded section and a failed refund aborts
// the whole payment.
func (l *Ledger) Pay(ctx context.Context, payer string, payee string, a asset.Asset, paid uint64, due uint64) (uint64, error) {
	if !a.IsNative() {
		return 0, l.fail(OpPay, payer, a, fmt.Errorf("%w: payments accept native value only", ErrInvalidAsset))
	}
	if err := l.validate(payer, a, due); err != nil {
		return 0, l.fail(OpPay, payer, a, err)
	}
	if err := l.registry.ValidateDestination(payee); err != nil {
		return 0, l.fail(OpPay, payer, a, err)
	}
	if paid < due {
		return 0, l.fail(OpPay, payer, a, fmt.Errorf("%w: paid %d, due %d", ErrInsufficientBalance, paid, due))
	}
	refund := paid - due

	err := l.guarded(ctx, OpPay, func(env *envelope) error {
		bal, err := l.balance(env, payee, a)
		if err != nil {
			return err
		}
		newBal, err := checkAdd(bal, due)
		if err != nil {
			return err
		}
		flow, err := l.flow(env.tx, a)
		if err != nil {
			return err
		}
		if flow.Inflow, err = checkAdd(flow.Inflow, paid); err != nil {
			return err
		}
		if flow.Outflow, err = checkAdd(flow.Outflow, refund); err != nil {
			return err
		}

		if err := l.setBalance(env, payee, a, newBal); err != nil {
			return err
		}
		if err := l.saveFlow(env.tx, a, flow); err != nil {
			return err
		}

		ev := event.New(event.Paid, l.id, payee, a.Key(), due, newBal)
		ev.Counterparty = payer
		env.emit(ev)

		if refund == 0 {
			return nil
		}
		if _, err := l.executor.SendNative(ctx, payer, refund); err != nil {
			return err
		}
		payerBal, err := l.balance(env, payer, a)
		if err != nil {
			return err
		}
		refunded := event.New(event.Refunded, l.id, payer, a.Key(), refund, payerBal)
		refunded.Counterparty = payee
		env.emit(refunded)
		return nil
	})
	if err != nil {
		return 0, l.fail(OpPay, payer, a, err)
	}

	log.Debugw("payment committed", "op", OpPay, "account", payer, "payee", payee, "asset", a.Key(), "amount", due, "refund", refund)
	return refund, nil
}
