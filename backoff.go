// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"runtime"

	"code.hybscloud.com/spin"
)

// BackoffFunc is invoked once per failed attempt inside a spin loop.
// attempt counts from 0 and restarts with every operation.
//
// A BackoffFunc must not touch the queue or lock it is installed on.
// It only decides how long to stall before the next attempt; correctness
// never depends on it.
type BackoffFunc func(attempt int)

// YieldBackoff yields the processor on every attempt.
// Useful when more goroutines spin than there are Ps.
func YieldBackoff(int) {
	runtime.Gosched()
}

// waiter runs the configured BackoffFunc, or spin.Wait when none is set.
type waiter struct {
	sw      spin.Wait
	fn      BackoffFunc
	attempt int
}

func (w *waiter) once() {
	if w.fn != nil {
		w.fn(w.attempt)
		w.attempt++
		return
	}
	w.sw.Once()
}
