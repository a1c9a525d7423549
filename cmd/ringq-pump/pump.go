// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log/slog"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/cheoljun99/ringq"
	"github.com/cheoljun99/ringq/canframe"
	"github.com/cheoljun99/ringq/worker"
	"github.com/valyala/fastrand"
)

// stats counts frames per identifier. The consumer is the only writer;
// the reporter reads concurrently.
type stats struct {
	mu   ringq.RWSpinLock
	byID map[uint32]uint64

	sent     atomix.Uint64
	received atomix.Uint64
	invalid  atomix.Uint64
}

func newStats() *stats {
	return &stats{byID: make(map[uint32]uint64)}
}

func (s *stats) record(id uint32) {
	s.mu.Lock()
	s.byID[id]++
	s.mu.Unlock()
}

// busiest returns the identifier with the most frames and the number of
// distinct identifiers seen.
func (s *stats) busiest() (id uint32, count uint64, distinct int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, v := range s.byID {
		if v > count || (v == count && k < id) {
			id, count = k, v
		}
	}
	return id, count, len(s.byID)
}

func (s *stats) reportLoop(logger *slog.Logger, interval time.Duration) worker.LoopFunc {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil

			case <-ticker.C:
				id, count, distinct := s.busiest()
				logger.Info("progress",
					"sent", s.sent.LoadRelaxed(),
					"received", s.received.LoadRelaxed(),
					"ids", distinct,
					"busiest_id", id,
					"busiest_count", count,
				)
			}
		}
	}
}

func (s *stats) logSummary(logger *slog.Logger, elapsed time.Duration, restarts int64) {
	id, count, distinct := s.busiest()
	received := s.received.LoadRelaxed()

	var rate float64
	if elapsed > 0 {
		rate = float64(received) / elapsed.Seconds()
	}

	logger.Info("summary",
		"sent", s.sent.LoadRelaxed(),
		"received", received,
		"invalid", s.invalid.LoadRelaxed(),
		"ids", distinct,
		"busiest_id", id,
		"busiest_count", count,
		"restarts", restarts,
		"elapsed", elapsed.Round(time.Millisecond),
		"frames_per_sec", int64(rate),
	)
}

// generator is shared by every producer worker.
type generator struct {
	q      *ringq.MPSC
	frames int
	fd     bool
	st     *stats
}

func (g *generator) encode(buf []byte) ([]byte, error) {
	id := fastrand.Uint32n(canframe.SFFMask + 1)

	if g.fd {
		f := canframe.FDFrame{ID: id, Flags: canframe.FDF | canframe.BRS}
		f.Len = canframe.DLCToLen(uint8(fastrand.Uint32n(canframe.FDMaxDLC + 1)))
		for i := range f.Len {
			f.Data[i] = byte(fastrand.Uint32())
		}
		return f.AppendBinary(buf[:0])
	}

	f := canframe.Frame{ID: id, Len: uint8(fastrand.Uint32n(canframe.MaxDLen + 1))}
	for i := range f.Len {
		f.Data[i] = byte(fastrand.Uint32())
	}
	return f.AppendBinary(buf[:0])
}

// loop enqueues g.frames frames, then idles until ctx is done so the pool
// does not restart it.
func (g *generator) loop(ctx context.Context) error {
	buf := make([]byte, 0, canframe.FDMTU)
	backoff := iox.Backoff{}

	for k := 0; g.frames == 0 || k < g.frames; k++ {
		b, err := g.encode(buf)
		if err != nil {
			return err
		}

		for {
			_, err := g.q.Enqueue(b)
			if err == nil {
				break
			}
			if !ringq.IsWouldBlock(err) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			backoff.Wait()
		}
		backoff.Reset()
		g.st.sent.AddAcqRel(1)
	}

	<-ctx.Done()
	return nil
}

// sink is the single consumer of the queue.
type sink struct {
	q      *ringq.MPSC
	st     *stats
	target uint64
	done   context.CancelFunc
}

func (s *sink) decode(b []byte) (uint32, error) {
	kind, err := canframe.KindOf(b)
	if err != nil {
		return 0, err
	}

	switch kind {
	case canframe.KindFD:
		var f canframe.FDFrame
		if err := f.UnmarshalBinary(b); err != nil {
			return 0, err
		}
		return f.Ident(), nil

	default:
		var f canframe.Frame
		if err := f.UnmarshalBinary(b); err != nil {
			return 0, err
		}
		return f.Ident(), nil
	}
}

func (s *sink) loop(ctx context.Context) error {
	buf := make([]byte, s.q.MaxPayload())
	backoff := iox.Backoff{}

	for ctx.Err() == nil {
		n, err := s.q.Dequeue(buf)
		if ringq.IsWouldBlock(err) {
			backoff.Wait()
			continue
		}
		if err != nil {
			return err
		}
		backoff.Reset()

		id, err := s.decode(buf[:n])
		if err != nil {
			s.st.invalid.AddAcqRel(1)
			continue
		}
		s.st.record(id)

		if received := s.st.received.AddAcqRel(1); received == s.target {
			s.done()
		}
	}
	return nil
}
