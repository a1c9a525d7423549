// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import (
	"sync"

	"code.hybscloud.com/atomix"
	"golang.org/x/sys/cpu"
)

const (
	writerBit  uint32 = 1 << 31      // Writer holds or is acquiring the lock
	readerMask uint32 = writerBit - 1 // Active reader count
)

// RWSpinLock is a reader-writer lock that never parks the goroutine.
//
// The whole state is one 32-bit word: bit 31 is the writer flag and bits
// 0-30 count active readers. Waiting is a busy spin with a CPU pause hint
// (or the BackoffFunc set by SetBackoff), so critical sections should be
// short.
//
// There is no fairness: a continuous stream of readers can starve a
// waiting writer indefinitely.
//
// The zero value is an unlocked lock. An RWSpinLock must not be copied
// after first use.
type RWSpinLock struct {
	_       cpu.CacheLinePad
	state   atomix.Uint32
	backoff BackoffFunc
	_       cpu.CacheLinePad
}

var _ sync.Locker = (*RWSpinLock)(nil)

// SetBackoff installs fn as the spin strategy. It must be called before
// the lock is shared between goroutines. A nil fn restores the default.
func (l *RWSpinLock) SetBackoff(fn BackoffFunc) {
	l.backoff = fn
}

// RLock acquires a shared lock, spinning while a writer holds the lock.
func (l *RWSpinLock) RLock() {
	w := waiter{fn: l.backoff}
	for {
		s := l.state.LoadRelaxed()
		if s&writerBit == 0 {
			if s == readerMask {
				panic("ringq: RWSpinLock reader count overflow")
			}
			if l.state.CompareAndSwapAcqRel(s, s+1) {
				return
			}
		}
		w.once()
	}
}

// TryRLock tries to acquire a shared lock without waiting for a writer
// and reports whether it succeeded. It retries only when racing other
// readers.
func (l *RWSpinLock) TryRLock() bool {
	for {
		s := l.state.LoadRelaxed()
		if s&writerBit != 0 || s == readerMask {
			return false
		}
		if l.state.CompareAndSwapAcqRel(s, s+1) {
			return true
		}
	}
}

// RUnlock releases one shared lock.
// Panics if no shared lock is held.
func (l *RWSpinLock) RUnlock() {
	s := l.state.AddAcqRel(^uint32(0))
	if s&readerMask == readerMask {
		panic("ringq: RUnlock of unlocked RWSpinLock")
	}
}

// Lock acquires the exclusive lock.
//
// It first claims the writer bit, which only succeeds on an idle lock
// and keeps new readers out, then waits until the word holds the writer
// bit alone before returning.
func (l *RWSpinLock) Lock() {
	w := waiter{fn: l.backoff}
	for !l.state.CompareAndSwapAcqRel(0, writerBit) {
		w.once()
	}
	for l.state.LoadAcquire() != writerBit {
		w.once()
	}
}

// TryLock tries to acquire the exclusive lock and reports whether it
// succeeded. It fails while any reader or writer holds the lock.
func (l *RWSpinLock) TryLock() bool {
	return l.state.CompareAndSwapAcqRel(0, writerBit)
}

// Unlock releases the exclusive lock.
// Panics if the lock is not write-locked.
func (l *RWSpinLock) Unlock() {
	if l.state.LoadRelaxed()&writerBit == 0 {
		panic("ringq: Unlock of unlocked RWSpinLock")
	}
	l.state.StoreRelease(0)
}

// RLocker returns a sync.Locker that takes the shared side of l.
func (l *RWSpinLock) RLocker() sync.Locker {
	return (*rlocker)(l)
}

type rlocker RWSpinLock

func (r *rlocker) Lock()   { (*RWSpinLock)(r).RLock() }
func (r *rlocker) Unlock() { (*RWSpinLock)(r).RUnlock() }
