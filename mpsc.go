// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

// MPSC is a CAS-based multi-producer single-consumer bounded queue of
// byte messages.
//
// Producers claim positions with a CAS on tail and publish through the
// per-slot sequence (Vyukov). The single consumer reads sequentially and
// needs no CAS: Dequeue is wait-free.
//
// Memory: capacity slots of 64 bytes plus capacity*MaxPayload bytes
type MPSC struct {
	seqRing
	consumer roleGuard
}

// NewMPSC creates a new MPSC queue with DefaultMaxPayload-sized slots.
// Capacity rounds up to the next power of 2, minimum 2.
func NewMPSC(capacity int) *MPSC {
	return New(capacity).SingleConsumer().BuildMPSC()
}

func newMPSC(o *Options) *MPSC {
	q := &MPSC{}
	q.init(o)
	return q
}

// Enqueue adds a message to the queue (multiple producers safe).
// Returns ErrWouldBlock if the queue is full.
func (q *MPSC) Enqueue(p []byte) (int, error) {
	return q.enqueue(p)
}

// Dequeue removes the oldest message into buf (single consumer only).
// Returns (0, ErrWouldBlock) if the queue is empty.
func (q *MPSC) Dequeue(buf []byte) (int, error) {
	q.consumer.enter("ringq: concurrent consumers on MPSC")

	head := q.head.LoadRelaxed()
	slot := &q.slots[head&q.mask]
	seq := slot.seq.LoadAcquire()

	if int64(seq-(head+1)) < 0 {
		q.consumer.exit()
		return 0, ErrWouldBlock
	}

	n := q.take(slot, head, buf)
	q.head.StoreRelease(head + 1)
	q.consumer.exit()
	return n, nil
}
