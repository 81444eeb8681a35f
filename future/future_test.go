// Copyright 2019 The go-ultiledger Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package future

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskFuture(t *testing.T) {
	tf := Task{}
	// test respond without Init will panic
	assert.Panics(t, func() { tf.Error() })
	// test error response
	tf.Init()
	tf.Respond(errors.New("task error"))
	assert.Error(t, tf.Error())
	// test reuse the same future will have no effect,
	// we still will get the first error
	tf.Respond(errors.New("another task error"))
	assert.Equal(t, "task error", tf.Error().Error())
}

func TestLoopDispatch(t *testing.T) {
	l := NewLoop()
	l.Start()
	defer l.Stop()

	// tasks never run concurrently
	var (
		wg      sync.WaitGroup
		running int
		overlap bool
		count   int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Dispatch(func() error {
				running++
				if running > 1 {
					overlap = true
				}
				count++
				running--
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, overlap)
	assert.Equal(t, 50, count)

	errTask := errors.New("task failed")
	assert.Equal(t, errTask, l.Dispatch(func() error { return errTask }))

	// a panicking task does not stop the loop
	err := l.Dispatch(func() error { panic("boom") })
	assert.Error(t, err)
	assert.NoError(t, l.Dispatch(func() error { return nil }))
}

func TestLoopStopped(t *testing.T) {
	l := NewLoop()
	l.Start()
	l.Stop()
	l.Stop()
	assert.Equal(t, ErrStopped, l.Dispatch(func() error { return nil }))
}
