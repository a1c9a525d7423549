// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

// MPMC is a CAS-based multi-producer multi-consumer bounded queue of
// byte messages (Vyukov bounded MPMC).
//
// Uses per-slot sequence numbers which provide:
//   - ABA safety across laps: a slot's sequence only grows
//   - A happens-before edge per transferred message
//   - Lock-free progress on both sides
//
// Memory: capacity slots of 64 bytes plus capacity*MaxPayload bytes
type MPMC struct {
	seqRing
}

// NewMPMC creates a new MPMC queue with DefaultMaxPayload-sized slots.
// Capacity rounds up to the next power of 2, minimum 2.
func NewMPMC(capacity int) *MPMC {
	return New(capacity).BuildMPMC()
}

func newMPMC(o *Options) *MPMC {
	q := &MPMC{}
	q.init(o)
	return q
}

// Enqueue adds a message to the queue.
// Returns ErrWouldBlock if the queue is full.
func (q *MPMC) Enqueue(p []byte) (int, error) {
	return q.enqueue(p)
}

// Dequeue removes the oldest message into buf.
// Returns (0, ErrWouldBlock) if the queue is empty.
func (q *MPMC) Dequeue(buf []byte) (int, error) {
	w := waiter{fn: q.backoff}
	for {
		head := q.head.LoadRelaxed()
		slot := &q.slots[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq - (head + 1))

		if diff == 0 {
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				return q.take(slot, head, buf), nil
			}
		} else if diff < 0 {
			return 0, ErrWouldBlock
		}
		w.once()
	}
}
