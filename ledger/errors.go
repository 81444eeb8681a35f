package ledger

import (
	"errors"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/guard"
	"github.com/ultiledger/go-ultivault/transfer"
	"github.com/ultiledger/go-ultivault/util"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrOverflow               = util.ErrOverflow
	ErrInvalidAccount         = asset.ErrInvalidAccount
	ErrInvalidAsset           = asset.ErrInvalidAsset
	ErrReentrancyDetected     = guard.ErrReentrancyDetected
	ErrExternalTransferFailed = transfer.ErrExternalTransferFailed
)

type Op string

const (
	OpDeposit          Op = "deposit"
	OpWithdraw         Op = "withdraw"
	OpWithdrawAll      Op = "withdrawAll"
	OpTransferInternal Op = "transferInternal"
	OpPay              Op = "pay"
)

// OpError is returned by every failed ledger operation, the
// underlying sentinel is reachable with errors.Is.
type OpError struct {
	Op      Op
	Account string
	Asset   asset.Asset
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s for %s failed: %v", e.Op, e.Asset, e.Account, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
