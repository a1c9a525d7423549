// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ringq-pump pushes random CAN frames from a pool of producer
// workers through an MPSC queue into a single consumer that keeps per-ID
// frame counts.
//
// Usage:
//
//	ringq-pump [-producers 4] [-capacity 1024] [-frames 100000] [-fd]
//	           [-monitor 1s] [-duration 0] [-log-level info]
//
// With -frames 0 producers run until -duration elapses or the process is
// interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheoljun99/ringq"
	"github.com/cheoljun99/ringq/canframe"
	"github.com/cheoljun99/ringq/worker"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type config struct {
	producers int
	capacity  int
	frames    int
	fd        bool
	monitor   time.Duration
	duration  time.Duration
	logLevel  slog.Level
}

func parseFlags() (*config, error) {
	cfg := &config{}
	flag.IntVar(&cfg.producers, "producers", 4, "number of producer workers")
	flag.IntVar(&cfg.capacity, "capacity", 1024, "queue capacity, rounded up to a power of two")
	flag.IntVar(&cfg.frames, "frames", 100000, "frames per producer, 0 for unbounded")
	flag.BoolVar(&cfg.fd, "fd", false, "send CAN FD frames instead of classic frames")
	flag.DurationVar(&cfg.monitor, "monitor", time.Second, "pool monitor interval")
	flag.DurationVar(&cfg.duration, "duration", 0, "stop after this long, 0 for no limit")
	level := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	if err := cfg.logLevel.UnmarshalText([]byte(*level)); err != nil {
		return nil, fmt.Errorf("invalid -log-level %q: %w", *level, err)
	}
	if cfg.producers < 1 {
		return nil, fmt.Errorf("invalid -producers %d: must be >= 1", cfg.producers)
	}
	if cfg.capacity < 0 {
		return nil, fmt.Errorf("invalid -capacity %d: must be >= 0", cfg.capacity)
	}
	if cfg.frames < 0 {
		return nil, fmt.Errorf("invalid -frames %d: must be >= 0", cfg.frames)
	}
	if cfg.monitor <= 0 {
		return nil, fmt.Errorf("invalid -monitor %s: must be > 0", cfg.monitor)
	}
	return cfg, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorableStdout(), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	}))
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := newLogger(cfg.logLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("ringq-pump failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config, logger *slog.Logger) error {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelCtx()

	if cfg.duration > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.duration)
		defer cancelTimeout()
	}

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer meterProvider.Shutdown(context.Background())

	if err := otelruntime.Start(otelruntime.WithMeterProvider(meterProvider)); err != nil {
		return fmt.Errorf("runtime metrics: %w", err)
	}

	q := ringq.New(cfg.capacity).SingleConsumer().MaxPayload(canframe.FDMTU).BuildMPSC()

	var target uint64
	if cfg.frames > 0 {
		target = uint64(cfg.producers) * uint64(cfg.frames)
	}

	st := newStats()
	gen := &generator{q: q, frames: cfg.frames, fd: cfg.fd, st: st}
	drain := &sink{q: q, st: st, target: target, done: cancelCtx}

	pool, err := worker.NewPool(cfg.producers, func(i int) *worker.Worker {
		return worker.New(fmt.Sprintf("producer-%d", i), gen.loop, worker.WithLogger(logger))
	}, worker.WithLogger(logger), worker.WithMeterProvider(meterProvider))
	if err != nil {
		return err
	}
	defer pool.Close()

	consumer := worker.New("consumer", drain.loop, worker.WithLogger(logger))
	reporter := worker.New("reporter", st.reportLoop(logger, cfg.monitor), worker.WithLogger(logger))

	logger.Info("starting",
		"producers", cfg.producers, "capacity", q.Cap(), "frames", cfg.frames, "fd", cfg.fd)

	start := time.Now()
	if err := consumer.Start(ctx); err != nil {
		return err
	}
	defer consumer.Stop()

	if err := reporter.Start(ctx); err != nil {
		return err
	}
	defer reporter.Stop()

	if err := pool.Start(ctx); err != nil {
		return err
	}

	runErr := pool.Run(ctx, cfg.monitor)
	elapsed := time.Since(start)

	pool.Stop()
	consumer.Stop()
	reporter.Stop()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		logger.Warn("cannot collect metrics", "err", err)
	}

	st.logSummary(logger, elapsed, int64Sum(&rm, "ringq.worker.restarts"))
	logger.Debug("runtime",
		"goroutines", int64Sum(&rm, "go.goroutine.count"),
		"allocated_bytes", int64Sum(&rm, "go.memory.allocated"),
	)
	return runErr
}

// int64Sum returns the total of the named int64 counter, or 0.
func int64Sum(rm *metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
