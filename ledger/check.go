package ledger

import (
	"fmt"

	"github.com/ultiledger/go-ultivault/util"
)

// Pure checks run before any mutation.

func checkAmount(amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func checkSufficient(balance uint64, amount uint64) error {
	if balance < amount {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, balance, amount)
	}
	return nil
}

func checkAdd(x uint64, y uint64) (uint64, error) {
	v, err := util.AddUint64(x, y)
	if err != nil {
		return x, fmt.Errorf("%w: %d + %d", ErrOverflow, x, y)
	}
	return v, nil
}
