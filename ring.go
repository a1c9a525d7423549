// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

import "code.hybscloud.com/atomix"

// seqSlot is the per-slot metadata of the sequence-based rings.
//
// For the message at position i, seq == i means the slot is free for the
// producer claiming i, and seq == i+1 means the message is published.
// The consumer re-arms the slot with seq = i+capacity for the producer of
// the next lap. n is written before the release store of seq and read
// after the acquire load, so it needs no atomic access of its own.
type seqSlot struct {
	seq atomix.Uint64
	n   uint32
	_   padSlot
}

// seqRing holds the state shared by MPSC and MPMC: the cursors, the slot
// metadata and the payload slab. Slot i owns slab[i*width : (i+1)*width].
type seqRing struct {
	_        pad
	tail     atomix.Uint64 // Producers CAS here
	_        pad
	head     atomix.Uint64 // Consumers advance this
	_        pad
	slots    []seqSlot
	slab     []byte
	mask     uint64
	capacity uint64
	width    int
	backoff  BackoffFunc
}

func (r *seqRing) init(o *Options) {
	n := uint64(roundToPow2(o.capacity))
	r.slots = make([]seqSlot, n)
	r.slab = make([]byte, int(n)*o.maxPayload)
	r.mask = n - 1
	r.capacity = n
	r.width = o.maxPayload
	r.backoff = o.backoff

	for i := uint64(0); i < n; i++ {
		r.slots[i].seq.StoreRelaxed(i)
	}
}

// payload returns the fixed-width byte window of the slot at pos.
func (r *seqRing) payload(pos uint64) []byte {
	off := int(pos&r.mask) * r.width
	return r.slab[off : off+r.width : off+r.width]
}

// enqueue is the Vyukov producer shared by MPSC and MPMC.
func (r *seqRing) enqueue(p []byte) (int, error) {
	if len(p) > r.width {
		p = p[:r.width]
	}

	w := waiter{fn: r.backoff}
	for {
		tail := r.tail.LoadRelaxed()
		slot := &r.slots[tail&r.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq - tail)

		if diff == 0 {
			if r.tail.CompareAndSwapAcqRel(tail, tail+1) {
				n := copy(r.payload(tail), p)
				slot.n = uint32(n)
				slot.seq.StoreRelease(tail + 1)
				return n, nil
			}
		} else if diff < 0 {
			// Slot still holds the message of the previous lap.
			return 0, ErrWouldBlock
		}
		w.once()
	}
}

// take copies the published message at pos into buf and re-arms the slot.
// The caller must own pos.
func (r *seqRing) take(slot *seqSlot, pos uint64, buf []byte) int {
	n := copy(buf, r.payload(pos)[:slot.n])
	slot.seq.StoreRelease(pos + r.capacity)
	return n
}

// Cap returns the queue capacity.
func (r *seqRing) Cap() int {
	return int(r.capacity)
}

// MaxPayload returns the per-message byte bound.
func (r *seqRing) MaxPayload() int {
	return r.width
}
