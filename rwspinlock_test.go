// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/cheoljun99/ringq"
)

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		runtime.Gosched()
	}
}

// TestRWSpinLockStates walks Idle → ReadLocked(n) → Idle → WriteLocked → Idle.
func TestRWSpinLockStates(t *testing.T) {
	var l ringq.RWSpinLock

	// Idle
	if !l.TryLock() {
		t.Fatal("TryLock on idle lock failed")
	}
	// WriteLocked
	if l.TryLock() {
		t.Fatal("TryLock on write-locked lock succeeded")
	}
	if l.TryRLock() {
		t.Fatal("TryRLock on write-locked lock succeeded")
	}
	l.Unlock()

	// ReadLocked(3)
	for range 3 {
		l.RLock()
	}
	if !l.TryRLock() {
		t.Fatal("TryRLock on read-locked lock failed")
	}
	if l.TryLock() {
		t.Fatal("TryLock with active readers succeeded")
	}
	for range 4 {
		l.RUnlock()
	}

	// Idle again
	l.Lock()
	l.Unlock()
}

// TestRWSpinLockReadersCoexist tests that shared holders do not exclude
// each other.
func TestRWSpinLockReadersCoexist(t *testing.T) {
	const readers = 8
	var l ringq.RWSpinLock
	var holding atomix.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RLock()
			holding.Add(1)
			<-release
			l.RUnlock()
		}()
	}

	waitFor(t, "all readers inside", func() bool { return holding.Load() == readers })
	close(release)
	wg.Wait()

	if !l.TryLock() {
		t.Fatal("lock not idle after all readers released")
	}
	l.Unlock()
}

// TestRWSpinLockWriterWaitsForReaders tests that Lock only returns once
// the shared holders active at call time have released.
func TestRWSpinLockWriterWaitsForReaders(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock state is published through atomix orderings")
	}
	var l ringq.RWSpinLock
	var acquired atomix.Bool

	l.RLock()
	l.RLock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Lock()
		acquired.Store(true)
		l.Unlock()
	}()

	time.Sleep(20 * time.Millisecond)
	if acquired.Load() {
		t.Fatal("writer entered while readers held the lock")
	}

	l.RUnlock()
	time.Sleep(10 * time.Millisecond)
	if acquired.Load() {
		t.Fatal("writer entered while one reader held the lock")
	}

	l.RUnlock()
	<-done
	if !acquired.Load() {
		t.Fatal("writer did not enter")
	}
}

// TestRWSpinLockWriterExcludesReaders tests that no RLock completes
// between Lock and Unlock.
func TestRWSpinLockWriterExcludesReaders(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock state is published through atomix orderings")
	}
	var l ringq.RWSpinLock
	var entered atomix.Int32

	l.Lock()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RLock()
			entered.Add(1)
			l.RUnlock()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	if n := entered.Load(); n != 0 {
		t.Fatalf("%d readers entered while write-locked", n)
	}

	l.Unlock()
	wg.Wait()
	if n := entered.Load(); n != 4 {
		t.Fatalf("entered: got %d, want 4", n)
	}
}

// TestRWSpinLockMutualExclusion hammers the lock with writers updating a
// pair of plain fields and readers checking that they never observe a
// half-done update.
func TestRWSpinLockMutualExclusion(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: guarded fields are published through atomix orderings")
	}

	const (
		writers   = 4
		readers   = 8
		perWriter = 20000
	)

	var l ringq.RWSpinLock
	var a, b int
	var torn atomix.Int64
	var stop atomix.Bool

	var rw sync.WaitGroup
	for range readers {
		rw.Add(1)
		go func() {
			defer rw.Done()
			for !stop.Load() {
				l.RLock()
				if a != b {
					torn.Add(1)
				}
				l.RUnlock()
			}
		}()
	}

	var ww sync.WaitGroup
	for range writers {
		ww.Add(1)
		go func() {
			defer ww.Done()
			for range perWriter {
				l.Lock()
				a++
				b++
				l.Unlock()
			}
		}()
	}

	ww.Wait()
	stop.Store(true)
	rw.Wait()

	if n := torn.Load(); n != 0 {
		t.Fatalf("readers observed %d torn updates", n)
	}
	if a != writers*perWriter || b != writers*perWriter {
		t.Fatalf("a=%d b=%d, want %d", a, b, writers*perWriter)
	}
}

// TestRWSpinLockBackoff tests that a custom backoff runs while spinning.
func TestRWSpinLockBackoff(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: lock state is published through atomix orderings")
	}
	var l ringq.RWSpinLock
	var calls atomix.Int64
	l.SetBackoff(func(int) {
		calls.Add(1)
		runtime.Gosched()
	})

	l.Lock()
	done := make(chan struct{})
	go func() {
		l.RLock()
		l.RUnlock()
		close(done)
	}()

	waitFor(t, "reader to spin", func() bool { return calls.Load() > 0 })
	l.Unlock()
	<-done
}

// TestRWSpinLockRLocker tests the shared-side sync.Locker.
func TestRWSpinLockRLocker(t *testing.T) {
	var l ringq.RWSpinLock
	var locker sync.Locker = l.RLocker()

	locker.Lock()
	locker.Lock()
	if l.TryLock() {
		t.Fatal("TryLock succeeded while RLocker held")
	}
	locker.Unlock()
	locker.Unlock()
	if !l.TryLock() {
		t.Fatal("TryLock failed after RLocker released")
	}
	l.Unlock()
}

func TestRWSpinLockMisusePanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func(l *ringq.RWSpinLock)
	}{
		{"UnlockIdle", func(l *ringq.RWSpinLock) { l.Unlock() }},
		{"UnlockReadLocked", func(l *ringq.RWSpinLock) { l.RLock(); l.Unlock() }},
		{"RUnlockIdle", func(l *ringq.RWSpinLock) { l.RUnlock() }},
		{"RUnlockWriteLocked", func(l *ringq.RWSpinLock) { l.Lock(); l.RUnlock() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l ringq.RWSpinLock
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.fn(&l)
		})
	}
}
