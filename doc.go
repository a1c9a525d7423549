// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ringq provides bounded byte-message queues and a reader-writer
// spin lock for low-latency pipelines (packet and frame processing).
//
// The package offers three queue variants, one per producer/consumer
// pattern, plus a lock:
//
//   - SPSC: Single-Producer Single-Consumer, wait-free, no CAS
//   - MPSC: Multi-Producer Single-Consumer, lock-free producers, wait-free consumer
//   - MPMC: Multi-Producer Multi-Consumer, lock-free on both sides
//   - RWSpinLock: reader-writer lock on a single atomic word, spin only
//
// None of them depends on another.
//
// # Quick Start
//
// Direct constructors use 65535-byte slots:
//
//	q := ringq.NewSPSC(1024)
//	q := ringq.NewMPSC(1024)
//	q := ringq.NewMPMC(4096)
//
// The Builder selects the algorithm from the declared constraints and
// sizes the slots:
//
//	q := ringq.New(1024).SingleProducer().SingleConsumer().Build() // → SPSC
//	q := ringq.New(1024).SingleConsumer().MaxPayload(72).Build()   // → MPSC
//	q := ringq.New(1024).Build()                                   // → MPMC
//
// # Basic Usage
//
// Messages are copied in and out of fixed-size slots:
//
//	q := ringq.NewMPSC(1024)
//
//	// Enqueue (non-blocking); p can be reused right away
//	n, err := q.Enqueue(p)
//	if ringq.IsWouldBlock(err) {
//	    // Queue is full - retry later or drop
//	}
//
//	// Dequeue (non-blocking)
//	buf := make([]byte, q.MaxPayload())
//	n, err = q.Dequeue(buf)
//	if ringq.IsWouldBlock(err) {
//	    // Queue is empty - poll again
//	}
//	process(buf[:n])
//
// # Message Size
//
// Every slot reserves MaxPayload bytes. A message longer than that is not
// rejected: Enqueue stores the first MaxPayload bytes and returns that
// count, so n < len(p) (see [Truncated]) marks the loss. Dequeue copies
// min(len(buf), message length) bytes and consumes the message either
// way.
//
// Zero-length messages are valid and dequeue as n == 0, err == nil.
//
// # Capacity
//
// Capacity rounds up to the next power of 2, minimum 2:
//
//	ringq.NewMPMC(0)     // Actual capacity: 2
//	ringq.NewMPMC(1)     // Actual capacity: 2
//	ringq.NewMPMC(5)     // Actual capacity: 8
//	ringq.NewMPMC(1000)  // Actual capacity: 1024
//
// All Cap() slots are usable: the Cap()+1-th Enqueue without a Dequeue
// returns ErrWouldBlock. Queues never grow.
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when operations cannot proceed. This error
// is sourced from [code.hybscloud.com/iox] for ecosystem consistency.
// Nothing ever blocks: callers pick their own waiting strategy.
//
//	backoff := iox.Backoff{}
//	for {
//	    _, err := q.Enqueue(frame)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !ringq.IsWouldBlock(err) {
//	        return err
//	    }
//	    backoff.Wait()
//	}
//
// Contract violations (bad capacity, mismatched builder constraints,
// unlocking an unlocked RWSpinLock) panic.
//
// # Backoff
//
// MPSC and MPMC claim loops and the RWSpinLock spins pause the CPU
// between attempts via [code.hybscloud.com/spin]. Embedders can swap the
// strategy with [Builder.Backoff] or [RWSpinLock.SetBackoff]:
//
//	q := ringq.New(4096).Backoff(ringq.YieldBackoff).Build()
//
// # Thread Safety
//
// All queue operations are thread-safe within their access pattern
// constraints:
//
//   - SPSC: One producer goroutine, one consumer goroutine
//   - MPSC: Multiple producer goroutines, one consumer goroutine
//   - MPMC: Multiple producer and consumer goroutines
//
// Violating these constraints causes undefined behavior including data
// corruption. Building with -tags ringqdebug adds a check that panics
// when two goroutines overlap on a single-owner side.
//
// A queue or lock must not be discarded while goroutines still use it.
//
// # Race Detection
//
// Payload bytes are plain memory published through per-slot sequence
// numbers with acquire-release semantics. The race detector cannot
// observe that happens-before edge and may report false positives.
// Concurrent tests are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions.
//
// Subpackage canframe encodes CAN frames as queue messages, and worker
// runs producer and consumer loops with restart on failure. The
// ringq-pump command under cmd combines both.
package ringq
