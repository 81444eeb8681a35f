// Package guard provides the mutual exclusion flag that turns a ledger
// operation into a critical section rejecting reentrant invocation.
package guard

import (
	"errors"
	"sync/atomic"
)

var ErrReentrancyDetected = errors.New("reentrant call detected")

// Guard is a binary lock shared by every mutating entry point of one
// ledger instance. There is no recursive mode: an acquire while the
// guard is held fails even for the holder itself.
type Guard struct {
	locked atomic.Bool
}

func New() *Guard {
	return &Guard{}
}

// Acquire transitions the guard from unlocked to locked or returns
// ErrReentrancyDetected if it is already locked.
func (g *Guard) Acquire() error {
	if !g.locked.CompareAndSwap(false, true) {
		return ErrReentrancyDetected
	}
	return nil
}

// Release unlocks the guard unconditionally.
func (g *Guard) Release() {
	g.locked.Store(false)
}

// Locked reports whether a guarded section is in flight.
func (g *Guard) Locked() bool {
	return g.locked.Load()
}

// Do runs fn inside the critical section. The guard is released on
// every exit path of fn, including a panic.
func (g *Guard) Do(fn func() error) error {
	if err := g.Acquire(); err != nil {
		return err
	}
	defer g.Release()

	return fn()
}
