package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/db"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/log"
)

const publishTimeout = 5 * time.Second

type entryRef struct {
	account string
	asset   asset.Asset
}

// envelope stages the mutations of one guarded operation in a db
// transaction together with the events they produce.
type envelope struct {
	tx      db.Tx
	touched []entryRef
	events  []*event.Event
}

func (env *envelope) emit(ev *event.Event) {
	env.events = append(env.events, ev)
}

func (l *Ledger) balance(env *envelope, accountID string, a asset.Asset) (uint64, error) {
	return l.am.GetBalance(env.tx, accountID, a)
}

func (l *Ledger) setBalance(env *envelope, accountID string, a asset.Asset, balance uint64) error {
	if err := l.am.SaveBalance(env.tx, accountID, a, balance); err != nil {
		return err
	}
	env.touched = append(env.touched, entryRef{account: accountID, asset: a})
	return nil
}

// guarded runs fn as the critical section of the ledger guard inside
// a fresh envelope. The envelope is committed only if fn succeeds and
// rolled back on every other path, the guard is released last.
func (l *Ledger) guarded(ctx context.Context, op Op, fn func(env *envelope) error) error {
	if err := l.guard.Acquire(); err != nil {
		return err
	}
	defer l.guard.Release()

	tx, err := l.database.Begin()
	if err != nil {
		return fmt.Errorf("begin tx failed: %v", err)
	}
	env := &envelope{tx: tx}
	l.active.Store(env)
	defer l.active.Store(nil)

	finished := false
	defer func() {
		if finished {
			return
		}
		if err := tx.Rollback(); err != nil {
			log.Errorw("rollback tx failed", "op", op, "err", err)
		}
	}()

	if err := fn(env); err != nil {
		return err
	}

	finished = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx failed: %v", err)
	}
	for _, ref := range env.touched {
		l.am.Evict(ref.account, ref.asset)
	}
	l.active.Store(nil)

	// events go out in commit order while the guard is still held,
	// the caller going away does not cancel them
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, ev := range env.events {
		if err := l.publisher.Publish(pctx, ev); err != nil {
			log.Errorw("publish event failed", "op", op, "event", ev.ID, "kind", ev.Kind, "err", err)
		}
	}
	return nil
}

func (l *Ledger) fail(op Op, accountID string, a asset.Asset, err error) error {
	log.Warnw("ledger operation failed", "op", op, "account", accountID, "asset", a.Key(), "err", err)
	return &OpError{Op: op, Account: accountID, Asset: a, Err: err}
}
