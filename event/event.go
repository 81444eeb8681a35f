// Package event defines the notifications a ledger emits after each
// committed operation, for external auditing.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	Deposited   Kind = "DEPOSITED"
	Withdrawn   Kind = "WITHDRAWN"
	Transferred Kind = "TRANSFERRED"
	Paid        Kind = "PAID"
	Refunded    Kind = "REFUNDED"
)

// Event carries the committed balance of the account after the
// operation, so replaying events in order reproduces the balances.
type Event struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	LedgerID     string    `json:"ledger_id"`
	Account      string    `json:"account"`
	Counterparty string    `json:"counterparty,omitempty"`
	Asset        string    `json:"asset"`
	Amount       uint64    `json:"amount"`
	Balance      uint64    `json:"balance"`
	OccurredAt   time.Time `json:"occurred_at"`

	// set for transfers between accounts
	CounterpartyBalance uint64 `json:"counterparty_balance,omitempty"`
}

func New(kind Kind, ledgerID string, account string, asset string, amount uint64, balance uint64) *Event {
	return &Event{
		ID:         uuid.New().String(),
		Kind:       kind,
		LedgerID:   ledgerID,
		Account:    account,
		Asset:      asset,
		Amount:     amount,
		Balance:    balance,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events, in the order they are published.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

type nop struct{}

func (nop) Publish(context.Context, *Event) error { return nil }

// Nop discards every event.
var Nop Publisher = nop{}

// Recorder keeps the published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([]*Event, len(r.events))
	copy(copied, r.events)
	return copied
}

// Multi publishes to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev *Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var (
	_ Publisher = (*Recorder)(nil)
	_ Publisher = Multi(nil)
)
