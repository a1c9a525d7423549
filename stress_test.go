// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringq_test

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/cheoljun99/ringq"
	"github.com/valyala/fastrand"
)

const stressPayload = 64

// encodeTagged writes producer id and sequence followed by a random
// length filler derived from both, and returns the message.
func encodeTagged(buf []byte, producer, seq uint32) []byte {
	binary.LittleEndian.PutUint32(buf[0:4], producer)
	binary.LittleEndian.PutUint32(buf[4:8], seq)
	n := 8 + int(fastrand.Uint32n(stressPayload-8+1))
	fill := byte(producer*31 + seq)
	for i := 8; i < n; i++ {
		buf[i] = fill
	}
	return buf[:n]
}

// decodeTagged returns producer and sequence of m and whether the filler
// is intact.
func decodeTagged(m []byte) (producer, seq uint32, ok bool) {
	if len(m) < 8 {
		return 0, 0, false
	}
	producer = binary.LittleEndian.Uint32(m[0:4])
	seq = binary.LittleEndian.Uint32(m[4:8])
	fill := byte(producer*31 + seq)
	for _, b := range m[8:] {
		if b != fill {
			return producer, seq, false
		}
	}
	return producer, seq, true
}

// TestSPSCOrderConcurrent verifies no loss, no duplication and FIFO order
// between one producer and one consumer goroutine.
func TestSPSCOrderConcurrent(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: payload bytes are published through cross-variable ordering")
	}

	const total = 100000
	q := ringq.New(64).SingleProducer().SingleConsumer().MaxPayload(stressPayload).BuildSPSC()
	deadline := time.Now().Add(10 * time.Second)

	go func() {
		buf := make([]byte, stressPayload)
		backoff := iox.Backoff{}
		for i := range total {
			m := encodeTagged(buf, 0, uint32(i))
			for {
				if _, err := q.Enqueue(m); err == nil {
					break
				}
				if time.Now().After(deadline) {
					return
				}
				backoff.Wait()
			}
			backoff.Reset()
		}
	}()

	buf := make([]byte, stressPayload)
	backoff := iox.Backoff{}
	for i := 0; i < total; {
		n, err := q.Dequeue(buf)
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("timeout: received %d/%d", i, total)
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		_, seq, ok := decodeTagged(buf[:n])
		if !ok {
			t.Fatalf("message %d corrupted", i)
		}
		if seq != uint32(i) {
			t.Fatalf("FIFO violation: got seq %d, want %d", seq, i)
		}
		i++
	}

	if _, err := q.Dequeue(buf); !ringq.IsWouldBlock(err) {
		t.Fatalf("Dequeue after drain: got %v, want ErrWouldBlock", err)
	}
}

// TestMPSCExactlyOnce verifies that P producers enqueuing K messages each
// deliver exactly P×K messages to the consumer, every producer's messages
// in their enqueue order.
func TestMPSCExactlyOnce(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 8
		itemsPerProd = 10000
		timeout      = 10 * time.Second
	)

	q := ringq.New(128).SingleConsumer().MaxPayload(stressPayload).BuildMPSC()
	deadline := time.Now().Add(timeout)

	var wg sync.WaitGroup
	for p := range numProducers {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			buf := make([]byte, stressPayload)
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				m := encodeTagged(buf, id, uint32(i))
				for {
					if _, err := q.Enqueue(m); err == nil {
						break
					}
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(uint32(p))
	}

	next := make([]uint32, numProducers)
	buf := make([]byte, stressPayload)
	backoff := iox.Backoff{}
	for received := 0; received < numProducers*itemsPerProd; {
		n, err := q.Dequeue(buf)
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("timeout: received %d/%d", received, numProducers*itemsPerProd)
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()

		producer, seq, ok := decodeTagged(buf[:n])
		if !ok || producer >= numProducers {
			t.Fatalf("corrupted message: producer=%d seq=%d", producer, seq)
		}
		if seq != next[producer] {
			t.Fatalf("producer %d: got seq %d, want %d (loss, duplicate or reorder)", producer, seq, next[producer])
		}
		next[producer]++
		received++
	}

	wg.Wait()
	if _, err := q.Dequeue(buf); !ringq.IsWouldBlock(err) {
		t.Fatalf("Dequeue after drain: got %v, want ErrWouldBlock", err)
	}
}

// TestMPMCExactlyOnce verifies that the union of everything dequeued by C
// consumers equals the P×K enqueued messages, each exactly once.
func TestMPMCExactlyOnce(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 8
		numConsumers = 8
		itemsPerProd = 10000
		timeout      = 10 * time.Second
	)

	q := ringq.New(64).MaxPayload(stressPayload).BuildMPMC()
	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var consumed, corrupted atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			buf := make([]byte, stressPayload)
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				m := encodeTagged(buf, id, uint32(i))
				for {
					if _, err := q.Enqueue(m); err == nil {
						break
					}
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(uint32(p))
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, stressPayload)
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				n, err := q.Dequeue(buf)
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				producer, seq, ok := decodeTagged(buf[:n])
				if !ok || producer >= numProducers || seq >= itemsPerProd {
					corrupted.Add(1)
				} else {
					seen[int(producer)*itemsPerProd+int(seq)].Add(1)
				}
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout: consumed=%d/%d", consumed.Load(), expectedTotal)
	}
	if c := corrupted.Load(); c != 0 {
		t.Fatalf("%d corrupted messages", c)
	}
	if got := consumed.Load(); got != int64(expectedTotal) {
		t.Fatalf("consumed %d, want %d", got, expectedTotal)
	}

	var missing, duplicates int
	for i := range expectedTotal {
		switch seen[i].Load() {
		case 0:
			missing++
		case 1:
		default:
			duplicates++
		}
	}
	if missing != 0 || duplicates != 0 {
		t.Fatalf("missing=%d duplicates=%d", missing, duplicates)
	}
}

// TestMPMCPerProducerFIFO verifies that a single consumer of an MPMC queue
// sees each producer's messages in order.
func TestMPMCPerProducerFIFO(t *testing.T) {
	if ringq.RaceEnabled {
		t.Skip("skip: FIFO test requires precise timing")
	}

	const (
		numProducers = 4
		itemsPerProd = 5000
	)

	q := ringq.New(32).MaxPayload(stressPayload).Backoff(ringq.YieldBackoff).BuildMPMC()
	deadline := time.Now().Add(5 * time.Second)

	var wg sync.WaitGroup
	for p := range numProducers {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			buf := make([]byte, stressPayload)
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				m := encodeTagged(buf, id, uint32(i))
				for {
					if _, err := q.Enqueue(m); err == nil {
						break
					}
					if time.Now().After(deadline) {
						return // Let the consumer detect via count mismatch
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(uint32(p))
	}

	next := make([]uint32, numProducers)
	buf := make([]byte, stressPayload)
	backoff := iox.Backoff{}
	for collected := 0; collected < numProducers*itemsPerProd; {
		n, err := q.Dequeue(buf)
		if err != nil {
			if time.Now().After(deadline) {
				t.Fatalf("consumer timeout: collected %d/%d", collected, numProducers*itemsPerProd)
			}
			backoff.Wait()
			continue
		}
		backoff.Reset()
		producer, seq, ok := decodeTagged(buf[:n])
		if !ok || producer >= numProducers {
			t.Fatalf("corrupted message: producer=%d seq=%d", producer, seq)
		}
		if seq != next[producer] {
			t.Fatalf("producer %d: FIFO violation: got %d, want %d", producer, seq, next[producer])
		}
		next[producer]++
		collected++
	}
	wg.Wait()
}
