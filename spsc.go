// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import "code.hybscloud.com/atomix"

// SPSC is a single-producer single-consumer bounded queue of byte
// messages.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's dequeue index, and vice versa,
// reducing cross-core cache line traffic. Each side owns its cursor
// exclusively, so both operations are wait-free and use no CAS.
//
// Cursors are free-running counters, so all Cap() slots are usable.
//
// Memory: capacity*MaxPayload bytes plus 4 bytes per slot
type SPSC struct {
	_          pad
	head       atomix.Uint64 // Consumer reads from here
	_          pad
	cachedTail uint64 // Consumer's cached view of tail
	_          pad
	tail       atomix.Uint64 // Producer writes here
	_          pad
	cachedHead uint64 // Producer's cached view of head
	_          pad
	lens       []uint32
	slab       []byte
	mask       uint64
	width      int
	producer   roleGuard
	consumer   roleGuard
}

// NewSPSC creates a new SPSC queue with DefaultMaxPayload-sized slots.
// Capacity rounds up to the next power of 2, minimum 2.
func NewSPSC(capacity int) *SPSC {
	return New(capacity).SingleProducer().SingleConsumer().BuildSPSC()
}

func newSPSC(o *Options) *SPSC {
	n := roundToPow2(o.capacity)
	return &SPSC{
		lens:  make([]uint32, n),
		slab:  make([]byte, n*o.maxPayload),
		mask:  uint64(n - 1),
		width: o.maxPayload,
	}
}

// Enqueue adds a message to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *SPSC) Enqueue(p []byte) (int, error) {
	q.producer.enter("ringq: concurrent producers on SPSC")

	if len(p) > q.width {
		p = p[:q.width]
	}

	tail := q.tail.LoadRelaxed()
	if tail-q.cachedHead > q.mask {
		q.cachedHead = q.head.LoadAcquire()
		if tail-q.cachedHead > q.mask {
			q.producer.exit()
			return 0, ErrWouldBlock
		}
	}

	i := tail & q.mask
	n := copy(q.payload(i), p)
	q.lens[i] = uint32(n)
	q.tail.StoreRelease(tail + 1)
	q.producer.exit()
	return n, nil
}

// Dequeue removes the oldest message into buf (consumer only).
// Returns (0, ErrWouldBlock) if the queue is empty.
func (q *SPSC) Dequeue(buf []byte) (int, error) {
	q.consumer.enter("ringq: concurrent consumers on SPSC")

	head := q.head.LoadRelaxed()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.LoadAcquire()
		if head >= q.cachedTail {
			q.consumer.exit()
			return 0, ErrWouldBlock
		}
	}

	i := head & q.mask
	n := copy(buf, q.payload(i)[:q.lens[i]])
	q.head.StoreRelease(head + 1)
	q.consumer.exit()
	return n, nil
}

// Cap returns the queue capacity.
func (q *SPSC) Cap() int {
	return int(q.mask + 1)
}

// MaxPayload returns the per-message byte bound.
func (q *SPSC) MaxPayload() int {
	return q.width
}

func (q *SPSC) payload(i uint64) []byte {
	off := int(i) * q.width
	return q.slab[off : off+q.width : off+q.width]
}
