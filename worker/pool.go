// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cheoljun99/ringq/worker"

// Factory builds the i-th worker of a pool.
type Factory func(i int) *Worker

// Report is the outcome of one Pool.Monitor pass.
type Report struct {
	Live      int // workers running when the pass began
	Dead      int // workers found terminated
	Recovered int // terminated workers restarted successfully
	Failed    int // terminated workers that could not be restarted
}

// Pool keeps a fixed number of workers alive.
type Pool struct {
	size    int
	factory Factory
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	ctx     context.Context
	workers []*Worker

	live atomix.Int64

	restarts metric.Int64Counter
	failures metric.Int64Counter
	reg      metric.Registration
}

// NewPool returns a stopped pool of size workers. A size of zero is
// treated as one.
func NewPool(size int, factory Factory, opts ...Option) (*Pool, error) {
	if size < 0 {
		panic("worker: pool size must be >= 0")
	}
	if factory == nil {
		panic("worker: nil factory")
	}
	if size == 0 {
		size = 1
	}

	o := buildOptions(opts)
	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	p := &Pool{
		size:    size,
		factory: factory,
		logger:  o.logger,
	}

	if err := p.initMetrics(mp.Meter(meterName)); err != nil {
		return nil, fmt.Errorf("worker pool: metrics: %w", err)
	}

	return p, nil
}

func (p *Pool) initMetrics(meter metric.Meter) error {
	var err error

	p.restarts, err = meter.Int64Counter("ringq.worker.restarts",
		metric.WithDescription("Terminated workers restarted by the pool monitor"),
	)
	if err != nil {
		return err
	}

	p.failures, err = meter.Int64Counter("ringq.worker.recovery_failures",
		metric.WithDescription("Terminated workers the pool monitor failed to restart"),
	)
	if err != nil {
		return err
	}

	live, err := meter.Int64ObservableGauge("ringq.worker.live",
		metric.WithDescription("Workers believed alive after the last monitor pass"),
	)
	if err != nil {
		return err
	}

	p.reg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(live, p.live.Load())
		return nil
	}, live)
	return err
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return p.size }

// Start builds every worker through the factory and starts them. If any
// worker fails to start, the pool is stopped and the error returned.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool: %w", ErrAlreadyStarted)
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.workers = make([]*Worker, 0, p.size)
	for i := range p.size {
		p.workers = append(p.workers, p.factory(i))
	}

	p.started = true
	for _, w := range p.workers {
		if err := w.Start(p.ctx); err != nil {
			p.stopLocked()
			return fmt.Errorf("worker pool: start %s: %w", w.Name(), err)
		}
	}

	p.live.Store(int64(p.size))
	p.logger.Info("worker pool started", "size", p.size)
	return nil
}

// Stop stops every worker. It is a no-op on a stopped pool.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pool) stopLocked() {
	if !p.started {
		return
	}

	p.cancel()
	for _, w := range p.workers {
		w.Stop()
	}

	p.workers = nil
	p.ctx = nil
	p.cancel = nil
	p.started = false
	p.live.Store(0)

	p.logger.Info("worker pool stopped")
}

// Monitor restarts every terminated worker and reports the counts. If
// any restart fails the pool is stopped and ErrRecoveryFailed returned.
// If the context passed to Start is done, terminated workers are counted
// but not restarted, the pool is stopped and the context error returned.
func (p *Pool) Monitor(ctx context.Context) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return Report{}, ErrNotStarted
	}

	var r Report

	// Workers of a cancelled pool ended on purpose; restarting them into
	// the dead context would only count false recoveries.
	if err := p.ctx.Err(); err != nil {
		for _, w := range p.workers {
			if w.Terminated() {
				r.Dead++
			}
		}
		r.Live = p.size - r.Dead
		p.stopLocked()
		return r, fmt.Errorf("worker pool: %w", err)
	}

	for _, w := range p.workers {
		if !w.Terminated() {
			continue
		}

		r.Dead++
		p.logger.Warn("worker dead, restarting", "worker", w.Name(), "err", w.Err())

		w.Stop()
		if err := w.Start(p.ctx); err != nil {
			r.Failed++
			p.logger.Error("worker restart failed", "worker", w.Name(), "err", err)
			continue
		}
		r.Recovered++
	}
	r.Live = p.size - r.Dead

	if r.Recovered > 0 {
		p.restarts.Add(ctx, int64(r.Recovered))
	}
	if r.Failed > 0 {
		p.failures.Add(ctx, int64(r.Failed))
	}
	p.live.Store(int64(p.size - r.Failed))

	level := slog.LevelDebug
	if r.Dead > 0 {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "worker pool monitor",
		"live", r.Live, "dead", r.Dead, "recovered", r.Recovered, "failed", r.Failed)

	if r.Failed > 0 {
		p.stopLocked()
		return r, fmt.Errorf("%w: %d of %d workers", ErrRecoveryFailed, r.Failed, r.Dead)
	}

	return r, nil
}

// Run calls Monitor every interval until ctx is done or Monitor fails.
func (p *Pool) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if _, err := p.Monitor(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Close stops the pool and unregisters its metric callback.
func (p *Pool) Close() error {
	p.Stop()
	return p.reg.Unregister()
}
