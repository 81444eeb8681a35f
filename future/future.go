// Package future defines futures as messages to hand work from the
// http service over to the single goroutine driving the ledger.
package future

import (
	"errors"
	"fmt"
	"sync"
)

var ErrStopped = errors.New("event loop stopped")

type Future interface {
	Error() error
}

// Allow a future to respond an error in the future
type deferError struct {
	err       error
	errChan   chan error
	responded bool
}

// Every future should call this method to initialize
// underlying error channel
func (d *deferError) Init() {
	d.errChan = make(chan error, 1)
}

// Each future should respond error once and multiple
// calling with different error on the same future will
// have no effects.
func (d *deferError) Respond(err error) {
	if d.errChan == nil || d.responded {
		return
	}
	d.errChan <- err
	close(d.errChan)
	d.responded = true
}

// Error always return the first responded error
func (d *deferError) Error() error {
	if d.err != nil {
		return d.err
	}
	if d.errChan == nil {
		panic("waiting for response on nil channel")
	}
	d.err = <-d.errChan
	return d.err
}

// Future for the event loop to run a ledger operation
type Task struct {
	deferError
	Fn func() error
}

func NewTask(fn func() error) *Task {
	t := &Task{Fn: fn}
	t.Init()
	return t
}

// run the task and respond its error, a panic is responded as an
// error so the loop survives it
func (t *Task) run() {
	defer func() {
		if r := recover(); r != nil {
			t.Respond(fmt.Errorf("task panicked: %v", r))
		}
	}()
	t.Respond(t.Fn())
}

// Loop runs the dispatched tasks one at a time in its own goroutine.
type Loop struct {
	tasks    chan *Task
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		tasks:    make(chan *Task),
		stopChan: make(chan struct{}),
	}
}

func (l *Loop) Start() {
	go l.eventLoop()
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}

// Dispatch runs fn on the loop and waits for its error.
func (l *Loop) Dispatch(fn func() error) error {
	select {
	case <-l.stopChan:
		return ErrStopped
	default:
	}

	t := NewTask(fn)
	select {
	case l.tasks <- t:
	case <-l.stopChan:
		return ErrStopped
	}
	return t.Error()
}

func (l *Loop) eventLoop() {
	for {
		select {
		case t := <-l.tasks:
			t.run()
		case <-l.stopChan:
			return
		}
	}
}
