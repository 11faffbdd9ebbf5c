// Package janitor implements background pruning of registry entries older than
// the configured retention window. It runs independently from the app Service
// to keep lifecycle concerns isolated from request path logic.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/haukened/upid/internal/metrics"
)

// Pruner is the registry operation the Janitor requires.
type Pruner interface {
	// DeleteBefore removes identifiers whose embedded timestamp precedes t and
	// returns the number removed.
	DeleteBefore(ctx context.Context, t time.Time) (int, error)
}

// Recorder receives pruning metrics. *metrics.Manager satisfies it.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}

// Config holds tunables for the Janitor.
type Config struct {
	Interval  time.Duration    // how often a cycle begins
	Retention time.Duration    // identifiers older than this are pruned
	Now       func() time.Time // optional clock (defaults to time.Now)
	Logger    *slog.Logger     // optional logger (defaults to slog.Default())
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	Pruned              uint64
	Errors              uint64
	CycleLastDurationMS int64
}

type cycleMetrics struct {
	mu sync.Mutex
	MetricsView
}

func (m *cycleMetrics) record(pruned int, failed bool, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cycles++
	if pruned > 0 {
		m.Pruned += uint64(pruned)
	}
	if failed {
		m.Errors++
	}
	m.CycleLastDurationMS = d.Milliseconds()
}

// Janitor encapsulates the background pruning loop.
type Janitor struct {
	pruner   Pruner
	recorder Recorder
	cfg      Config
	metrics  cycleMetrics

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor. recorder may be nil.
func New(pruner Pruner, recorder Recorder, cfg Config) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Janitor{
		pruner:   pruner,
		recorder: recorder,
		cfg:      cfg,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the janitor loop in a new goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return
	}
	j.ticker = time.NewTicker(j.cfg.Interval)
	go j.loop(ctx)
}

// Stop signals the loop to exit and waits for completion. It is a no-op if
// the loop was never started.
func (j *Janitor) Stop() {
	if j.ticker == nil {
		return
	}
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (j *Janitor) MetricsSnapshot() MetricsView {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()
	return j.metrics.MetricsView
}

func (j *Janitor) loop(ctx context.Context) {
	log := j.cfg.Logger.With("domain", "janitor")
	defer func() {
		j.ticker.Stop()
		close(j.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stop", "reason", "context_cancel")
			return
		case <-j.stopCh:
			log.Info("janitor stop", "reason", "stop_signal")
			return
		case <-j.ticker.C:
			j.runCycle(ctx)
		}
	}
}

// runCycle prunes everything issued before now minus retention.
func (j *Janitor) runCycle(ctx context.Context) {
	start := time.Now()
	log := j.cfg.Logger.With("domain", "janitor", "action", "cycle")
	cutoff := j.cfg.Now().UTC().Add(-j.cfg.Retention)
	count, err := j.pruner.DeleteBefore(ctx, cutoff)
	failed := err != nil
	if failed && !errors.Is(err, context.Canceled) {
		log.Error("prune", "error", err)
	}
	j.metrics.record(count, failed, time.Since(start))
	if j.recorder != nil && !failed {
		j.recorder.Inc(metrics.CounterPruned, int64(count))
		j.recorder.Observe(metrics.SummaryJanitorPrunedPerCycle, int64(count))
	}
	log.Info("cycle complete", "cutoff", cutoff, "pruned", count, "ms", time.Since(start).Milliseconds())
}
