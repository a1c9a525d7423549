// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq

// Queue is the combined producer-consumer interface for a bounded
// byte-message FIFO.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Both
// operations return ErrWouldBlock when they cannot proceed (queue full or
// empty).
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// Example:
//
//	q := ringq.NewMPMC(1024)
//
//	if _, err := q.Enqueue([]byte("frame")); err != nil {
//	    // Handle full queue
//	}
//
//	buf := make([]byte, q.MaxPayload())
//	n, err := q.Dequeue(buf)
//	if err == nil {
//	    fmt.Printf("%s\n", buf[:n])
//	}
type Queue interface {
	Producer
	Consumer

	// Cap returns the number of slots (a power of 2, at least 2).
	Cap() int

	// MaxPayload returns the per-message byte bound.
	MaxPayload() int
}

// Producer is the interface for enqueueing messages.
type Producer interface {
	// Enqueue copies p into the next free slot (non-blocking).
	//
	// Messages longer than MaxPayload are truncated to MaxPayload bytes;
	// the returned count then is smaller than len(p). The caller may
	// reuse p as soon as Enqueue returns.
	//
	// Returns (bytes stored, nil) on success, (0, ErrWouldBlock) if the
	// queue is full.
	//
	// Thread safety depends on queue type:
	//   - SPSC: single producer only
	//   - MPSC/MPMC: multiple producers safe
	Enqueue(p []byte) (int, error)
}

// Consumer is the interface for dequeueing messages.
type Consumer interface {
	// Dequeue removes the oldest published message and copies
	// min(len(buf), message length) bytes of it into buf (non-blocking).
	// The message is consumed even when buf is too short to hold all of
	// it. Dequeue(nil) discards one message.
	//
	// Returns (bytes copied, nil) on success, (0, ErrWouldBlock) if the
	// queue is empty.
	//
	// Thread safety depends on queue type:
	//   - SPSC/MPSC: single consumer only
	//   - MPMC: multiple consumers safe
	Dequeue(buf []byte) (int, error)
}
