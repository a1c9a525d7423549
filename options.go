// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import "math/bits"

// DefaultMaxPayload is the per-message byte bound used unless the Builder
// sets another one. It is also the largest bound a queue accepts.
const DefaultMaxPayload = 65535

// MaxCapacity is the largest capacity New accepts (1<<62 on 64-bit).
const MaxCapacity = 1 << (bits.UintSize - 2)

// Options configures queue creation and algorithm selection.
type Options struct {
	// Producer/Consumer constraints (determines queue type)
	singleProducer bool
	singleConsumer bool

	// Slot count request (rounds up to next power of 2, minimum 2)
	capacity int

	// Bytes per slot
	maxPayload int

	// Spin strategy for claim loops, nil means spin.Wait
	backoff BackoffFunc
}

// Builder creates queues with fluent configuration.
//
// The builder selects the algorithm from the producer/consumer
// constraints.
//
// Example:
//
//	// SPSC queue (wait-free, no CAS)
//	q := ringq.New(1024).SingleProducer().SingleConsumer().BuildSPSC()
//
//	// MPSC queue with MTU-sized slots
//	q := ringq.New(4096).SingleConsumer().MaxPayload(1500).BuildMPSC()
//
//	// MPMC queue that yields instead of pausing under contention
//	q := ringq.New(4096).Backoff(ringq.YieldBackoff).Build()
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2 with a minimum of 2:
// capacity=0 and capacity=1 result in 2, capacity=5 results in 8,
// capacity=1000 results in 1024.
//
// Panics if capacity < 0 or capacity > MaxCapacity.
func New(capacity int) *Builder {
	if capacity < 0 {
		panic("ringq: capacity must be >= 0")
	}
	if capacity > MaxCapacity {
		panic("ringq: capacity too large")
	}
	return &Builder{opts: Options{capacity: capacity, maxPayload: DefaultMaxPayload}}
}

// SingleProducer declares that only one goroutine will enqueue.
func (b *Builder) SingleProducer() *Builder {
	b.opts.singleProducer = true
	return b
}

// SingleConsumer declares that only one goroutine will dequeue.
// Enables the CAS-free consumer of SPSC and MPSC.
func (b *Builder) SingleConsumer() *Builder {
	b.opts.singleConsumer = true
	return b
}

// MaxPayload sets the per-message byte bound. Longer messages are
// truncated on Enqueue.
//
// Every slot reserves n bytes, so the queue holds Cap()*n bytes of
// payload storage. Panics unless 1 <= n <= DefaultMaxPayload.
func (b *Builder) MaxPayload(n int) *Builder {
	if n < 1 || n > DefaultMaxPayload {
		panic("ringq: max payload must be in [1, 65535]")
	}
	b.opts.maxPayload = n
	return b
}

// Backoff installs fn as the spin strategy of the claim loops.
// A nil fn restores the default CPU pause.
func (b *Builder) Backoff(fn BackoffFunc) *Builder {
	b.opts.backoff = fn
	return b
}

// Build creates a Queue with automatic algorithm selection.
//
// Algorithm selection:
//
//	SingleProducer + SingleConsumer → SPSC (Lamport ring buffer)
//	SingleConsumer only             → MPSC (CAS producers, sequential consumer)
//	Otherwise                       → MPMC (CAS on both sides)
//
// There is no dedicated single-producer multi-consumer variant;
// SingleProducer alone selects MPMC.
func (b *Builder) Build() Queue {
	switch {
	case b.opts.singleProducer && b.opts.singleConsumer:
		return newSPSC(&b.opts)
	case b.opts.singleConsumer:
		return newMPSC(&b.opts)
	default:
		return newMPMC(&b.opts)
	}
}

// BuildSPSC creates an SPSC queue.
// Panics if builder is not configured with SingleProducer().SingleConsumer().
func (b *Builder) BuildSPSC() *SPSC {
	if !b.opts.singleProducer || !b.opts.singleConsumer {
		panic("ringq: BuildSPSC requires SingleProducer().SingleConsumer()")
	}
	return newSPSC(&b.opts)
}

// BuildMPSC creates an MPSC queue.
// Panics if builder is not configured with SingleConsumer() only.
func (b *Builder) BuildMPSC() *MPSC {
	if b.opts.singleProducer || !b.opts.singleConsumer {
		panic("ringq: BuildMPSC requires SingleConsumer() without SingleProducer()")
	}
	return newMPSC(&b.opts)
}

// BuildMPMC creates an MPMC queue.
// Panics if the builder declares a single consumer.
func (b *Builder) BuildMPMC() *MPMC {
	if b.opts.singleConsumer {
		panic("ringq: BuildMPMC requires no SingleConsumer()")
	}
	return newMPMC(&b.opts)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padSlot fills a cache line after a sequence word and a length.
type padSlot [64 - 8 - 4]byte
