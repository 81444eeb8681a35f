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

package util

import (
	"errors"
	"math"
)

var (
	ErrOverflow  = errors.New("uint64 addition overflow")
	ErrUnderflow = errors.New("uint64 subtraction underflow")
)

// Add two uint64 values and check overflow before computing
// the sum, x is returned unchanged on overflow.
func AddUint64(x uint64, y uint64) (uint64, error) {
	if x > math.MaxUint64-y {
		return x, ErrOverflow
	}
	return x + y, nil
}

// Subtract y from x and check underflow before computing
// the difference, x is returned unchanged on underflow.
func SubUint64(x uint64, y uint64) (uint64, error) {
	if x < y {
		return x, ErrUnderflow
	}
	return x - y, nil
}

// Find the max between two uint64 values
func MaxUint64(x uint64, y uint64) uint64 {
	if x >= y {
		return x
	}
	return y
}

// Find the min between two uint64 values
func MinUint64(x uint64, y uint64) uint64 {
	if x <= y {
		return x
	}
	return y
}
