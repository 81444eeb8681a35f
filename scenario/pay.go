package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/ledger"
)

func init() {
	Register(&OverpaymentRefund{})
}

// OverpaymentRefund pays a fee with too much value attached, the
// excess goes back to the payer. A payer refusing the refund aborts
// the whole payment.
type OverpaymentRefund struct{}

func (op *OverpaymentRefund) Desc() string {
	return "overpaid fee is refunded, refused refund aborts the payment"
}

func (op *OverpaymentRefund) Run(env *Env) error {
	ctx := context.Background()
	payer, err := env.NewAccount(100)
	if err != nil {
		return err
	}
	registrar, err := env.NewAccount(0)
	if err != nil {
		return err
	}

	pay := func(paid uint64, due uint64) (uint64, error) {
		var refund uint64
		err := env.Chain.Call(ctx, payer, paid, func(ctx context.Context) error {
			var err error
			refund, err = env.Ledger.Pay(ctx, payer, registrar, asset.Native, paid, due)
			return err
		})
		return refund, err
	}

	refund, err := pay(100, 30)
	if err != nil {
		return fmt.Errorf("pay failed: %v", err)
	}
	if refund != 70 || env.Chain.NativeBalance(payer) != 70 {
		return fmt.Errorf("refund %d, payer wallet %d", refund, env.Chain.NativeBalance(payer))
	}

	env.Chain.SetReceiver(payer, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		return false, nil
	})
	defer env.Chain.SetReceiver(payer, nil)

	_, err = pay(70, 30)
	if !errors.Is(err, ledger.ErrExternalTransferFailed) {
		return fmt.Errorf("refused refund returned %v", err)
	}
	if got := env.Chain.NativeBalance(payer); got != 70 {
		return fmt.Errorf("payer wallet holds %d after aborted payment", got)
	}
	return expectBalance(env.Ledger, registrar, asset.Native, 30)
}
