// Package ledger implements the guarded balance ledger: per-account
// balances over native and fungible assets whose mutations compose
// atomically with the external value movements they cause.
//
// Every mutating operation runs as one critical section of the ledger
// guard and inside one transactional envelope: the checks run first,
// then the balances are mutated (and visible to reads), then the
// external transfer is attempted, and the mutation is committed only
// if the transfer succeeded. Reentrant calls made by the external
// party fail with ErrReentrancyDetected.
package ledger

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ultiledger/go-ultivault/account"
	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/db"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/guard"
	"github.com/ultiledger/go-ultivault/log"
	"github.com/ultiledger/go-ultivault/transfer"
)

// Context represents contextual information Ledger needs
type Context struct {
	Database  db.Database        // database instance
	AM        *account.Manager   // balance table
	Registry  *asset.Registry    // accepted assets and ledger identity
	Executor  *transfer.Executor // external value movements
	Publisher event.Publisher    // optional, events are dropped if nil
}

func ValidateContext(lc *Context) error {
	if lc == nil {
		return errors.New("ledger context is nil")
	}
	if lc.Database == nil {
		return errors.New("database instance is nil")
	}
	if lc.AM == nil {
		return errors.New("account manager is nil")
	}
	if lc.Registry == nil {
		return errors.New("asset registry is nil")
	}
	if lc.Registry.LedgerID() == "" {
		return errors.New("ledger ID is empty")
	}
	if lc.Executor == nil {
		return errors.New("transfer executor is nil")
	}
	return nil
}

// Ledger owns the balance table of one custody and the guard
// shared by all of its mutating entry points.
type Ledger struct {
	id       string
	database db.Database
	bucket   string

	am        *account.Manager
	registry  *asset.Registry
	executor  *transfer.Executor
	publisher event.Publisher

	guard *guard.Guard

	// envelope of the guarded operation in flight
	active atomic.Pointer[envelope]
}

func NewLedger(lc *Context) (*Ledger, error) {
	if err := ValidateContext(lc); err != nil {
		return nil, fmt.Errorf("ledger context is invalid: %v", err)
	}
	l := &Ledger{
		id:        lc.Registry.LedgerID(),
		database:  lc.Database,
		bucket:    "FLOW",
		am:        lc.AM,
		registry:  lc.Registry,
		executor:  lc.Executor,
		publisher: lc.Publisher,
		guard:     guard.New(),
	}
	if l.publisher == nil {
		l.publisher = event.Nop
	}
	if err := l.database.NewBucket(l.bucket); err != nil {
		return nil, fmt.Errorf("create db bucket %s failed: %v", l.bucket, err)
	}
	return l, nil
}

// ID is the identity of the ledger custody.
func (l *Ledger) ID() string {
	return l.id
}

func (l *Ledger) Registry() *asset.Registry {
	return l.registry
}

// reader returns the staged state of the operation in flight, so
// reentrant reads observe the mutation before the external call.
func (l *Ledger) reader() db.Getter {
	if env := l.active.Load(); env != nil {
		return env.tx
	}
	return l.database
}

// BalanceOf returns the balance of the account in the asset, unknown
// accounts and assets read as zero.
func (l *Ledger) BalanceOf(accountID string, a asset.Asset) uint64 {
	balance, err := l.am.GetBalance(l.reader(), accountID, a)
	if err != nil {
		log.Warnw("read balance failed", "account", accountID, "asset", a.Key(), "err", err)
		return 0
	}
	return balance
}

// Supply returns the value that moved into and out of the custody
// in the asset. Inflow minus outflow always equals TotalBalance.
func (l *Ledger) Supply(a asset.Asset) (Flow, error) {
	return l.flow(l.reader(), a)
}

// TotalBalance sums the balances of every account in the asset.
func (l *Ledger) TotalBalance(a asset.Asset) (uint64, error) {
	return l.am.TotalBalance(l.reader(), a)
}
