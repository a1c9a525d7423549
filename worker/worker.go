// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package worker runs user-supplied loops on goroutines with an explicit
// start/stop lifecycle and a liveness probe, and keeps a fixed-size pool
// of them alive by restarting the ones that terminated.
//
// A typical loop drains or fills a ringq queue until its context is
// cancelled:
//
//	w := worker.New("drain", func(ctx context.Context) error {
//		buf := make([]byte, q.MaxPayload())
//		var backoff iox.Backoff
//		for ctx.Err() == nil {
//			n, err := q.Dequeue(buf)
//			if ringq.IsWouldBlock(err) {
//				backoff.Wait()
//				continue
//			}
//			backoff.Reset()
//			handle(buf[:n])
//		}
//		return nil
//	})
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
//	defer w.Stop()
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrAlreadyStarted is returned by Start on a running worker or pool.
	ErrAlreadyStarted = errors.New("worker: already started")

	// ErrNotStarted is returned by Pool.Monitor on a pool that is not running.
	ErrNotStarted = errors.New("worker: not started")

	// ErrRecoveryFailed is returned by Pool.Monitor when at least one
	// terminated worker could not be restarted. The pool is stopped.
	ErrRecoveryFailed = errors.New("worker: recovery failed")
)

// LoopFunc is the body of a worker. It should return once ctx is done.
type LoopFunc func(ctx context.Context) error

// PanicError wraps a value recovered from a panicking loop.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker: loop panicked: %v", e.Value)
}

type options struct {
	logger        *slog.Logger
	setup         func(ctx context.Context) error
	cleanup       func()
	meterProvider metric.MeterProvider
}

// Option configures a Worker or a Pool.
type Option func(*options)

// WithLogger sets the logger for lifecycle events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSetup runs fn before every start of the worker. A setup error
// aborts the start.
func WithSetup(fn func(ctx context.Context) error) Option {
	return func(o *options) { o.setup = fn }
}

// WithCleanup runs fn after every stop of the worker, and after a failed
// setup.
func WithCleanup(fn func()) Option {
	return func(o *options) { o.cleanup = fn }
}

// WithMeterProvider sets the provider for pool metrics. Defaults to
// otel.GetMeterProvider(). Workers ignore it.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Worker runs a LoopFunc on its own goroutine.
//
// Start and Stop may be called repeatedly, in that order; Terminated is
// safe to call from any goroutine at any time.
type Worker struct {
	name string
	loop LoopFunc
	opts options

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	stateMu sync.Mutex
	term    bool
	err     error
}

// New returns a stopped worker.
func New(name string, loop LoopFunc, opts ...Option) *Worker {
	if loop == nil {
		panic("worker: nil loop")
	}
	return &Worker{
		name: name,
		loop: loop,
		opts: buildOptions(opts),
	}
}

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// Start runs setup, then launches the loop with a context derived from
// ctx. If setup fails, cleanup runs and the setup error is returned.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("%w: %s", ErrAlreadyStarted, w.name)
	}

	if w.opts.setup != nil {
		if err := w.opts.setup(ctx); err != nil {
			if w.opts.cleanup != nil {
				w.opts.cleanup()
			}
			w.opts.logger.Error("worker setup failed", "worker", w.name, "err", err)
			return fmt.Errorf("worker %s: setup: %w", w.name, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.setState(false, nil)
	w.cancel = cancel
	w.done = done
	w.running = true

	go w.run(runCtx, done)

	w.opts.logger.Debug("worker started", "worker", w.name)
	return nil
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		w.setState(true, err)
		close(done)

		switch {
		case ctx.Err() != nil:
		case err != nil:
			w.opts.logger.Error("worker terminated", "worker", w.name, "err", err)
		default:
			w.opts.logger.Warn("worker loop returned", "worker", w.name)
		}
	}()

	err = w.loop(ctx)
}

// Stop cancels the loop, waits for it to return and runs cleanup. It is
// a no-op on a stopped worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.stateMu.Lock()
	w.term = true
	w.stateMu.Unlock()

	w.cancel()
	<-w.done

	if w.opts.cleanup != nil {
		w.opts.cleanup()
	}

	w.cancel = nil
	w.done = nil
	w.running = false

	w.opts.logger.Debug("worker stopped", "worker", w.name)
}

// Terminated reports whether the loop has returned, panicked or been
// asked to stop. A worker that was never started is not terminated.
func (w *Worker) Terminated() bool {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.term
}

// Err returns the error of the last loop run, or nil.
func (w *Worker) Err() error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.err
}

func (w *Worker) setState(term bool, err error) {
	w.stateMu.Lock()
	w.term = term
	w.err = err
	w.stateMu.Unlock()
}
