// Package metrics provides a lightweight persistent metrics manager.
// It batches in-memory counter and summary observations and periodically
// flushes them to the SQLite database that also holds the upid registry.
// Only monotonic counters and simple (count,sum,min,max) summaries are
// supported.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Counter names used by the service.
const (
	CounterIssued       = "upids_issued_total"
	CounterInspected    = "upids_inspected_total"
	CounterDecodeErrors = "upids_decode_errors_total"
	CounterPruned       = "upids_pruned_total"
)

// Summary names.
const (
	SummaryJanitorPrunedPerCycle = "janitor_pruned_per_cycle"
)

// Config controls flush cadence and logging.
type Config struct {
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Summary aggregates observations of a single named value.
type Summary struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

func (s *Summary) merge(o Summary) {
	if s.Count == 0 {
		*s = o
		return
	}
	s.Count += o.Count
	s.Sum += o.Sum
	s.Min = min(s.Min, o.Min)
	s.Max = max(s.Max, o.Max)
}

// Manager aggregates metric events and flushes them.
type Manager struct {
	cfg     Config
	db      *sql.DB
	events  chan event
	stop    chan struct{}
	done    chan struct{}
	started bool

	// in-memory deltas (protected by mu)
	mu        sync.Mutex
	counters  map[string]int64
	summaries map[string]*Summary
}

type eventKind int

const (
	eventInc eventKind = iota + 1
	eventObserve
)

type event struct {
	kind eventKind
	name string
	v    int64
}

// New creates a Manager. Call Start to begin background flushing.
func New(db *sql.DB, cfg Config) *Manager {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		db:        db,
		events:    make(chan event, 1024),
		counters:  make(map[string]int64),
		summaries: make(map[string]*Summary),
	}
}

// InitSchema ensures metrics tables exist.
func (m *Manager) InitSchema(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS metrics_counters (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics_summaries (
	name TEXT PRIMARY KEY,
	count INTEGER NOT NULL,
	sum INTEGER NOT NULL,
	min INTEGER NOT NULL,
	max INTEGER NOT NULL
);`
	_, err := m.db.ExecContext(ctx, ddl)
	return err
}

// Start launches the background flush loop. A stopped Manager may be started
// again.
func (m *Manager) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(ctx, m.stop, m.done)
}

// Stop signals the flush loop to exit, applies queued events and performs a
// final flush.
func (m *Manager) Stop(ctx context.Context) error {
	if m.started {
		close(m.stop)
		<-m.done
		m.started = false
	}
	m.drain()
	return m.flush(ctx)
}

// Inc increments a counter by delta (>=1). Events are dropped when the queue
// is full.
func (m *Manager) Inc(name string, delta int64) {
	if delta <= 0 {
		return
	}
	select {
	case m.events <- event{kind: eventInc, name: name, v: delta}:
	default:
	}
}

// Observe records a summary observation.
func (m *Manager) Observe(name string, value int64) {
	select {
	case m.events <- event{kind: eventObserve, name: name, v: value}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	log := m.cfg.Logger.With("domain", "metrics")
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer func() {
		ticker.Stop()
		close(done)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("metrics stop", "reason", "context_cancel")
			return
		case <-stop:
			log.Info("metrics stop", "reason", "stop_signal")
			return
		case ev := <-m.events:
			m.apply(ev)
		case <-ticker.C:
			if err := m.flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("flush", "error", err)
			}
		}
	}
}

// drain applies every queued event without blocking.
func (m *Manager) drain() {
	for {
		select {
		case ev := <-m.events:
			m.apply(ev)
		default:
			return
		}
	}
}

func (m *Manager) apply(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev.kind {
	case eventInc:
		m.counters[ev.name] += ev.v
	case eventObserve:
		agg := m.summaries[ev.name]
		if agg == nil {
			agg = &Summary{}
			m.summaries[ev.name] = agg
		}
		agg.merge(Summary{Count: 1, Sum: ev.v, Min: ev.v, Max: ev.v})
	}
}

// Snapshot returns persisted values with unflushed in-memory deltas layered on
// top.
func (m *Manager) Snapshot(ctx context.Context) (map[string]int64, map[string]Summary, error) {
	counters := make(map[string]int64)
	summaries := make(map[string]Summary)

	rows, err := m.db.QueryContext(ctx, `SELECT name, value FROM metrics_counters`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n string
		var v int64
		if err := rows.Scan(&n, &v); err != nil {
			return nil, nil, err
		}
		counters[n] = v
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	srows, err := m.db.QueryContext(ctx, `SELECT name, count, sum, min, max FROM metrics_summaries`)
	if err != nil {
		return nil, nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var n string
		var s Summary
		if err := srows.Scan(&n, &s.Count, &s.Sum, &s.Min, &s.Max); err != nil {
			return nil, nil, err
		}
		summaries[n] = s
	}
	if err := srows.Err(); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	for n, v := range m.counters {
		counters[n] += v
	}
	for n, agg := range m.summaries {
		cur := summaries[n]
		cur.merge(*agg)
		summaries[n] = cur
	}
	m.mu.Unlock()
	return counters, summaries, nil
}

// flush writes in-memory deltas to SQLite in a single transaction and resets them.
func (m *Manager) flush(ctx context.Context) error {
	m.mu.Lock()
	if len(m.counters) == 0 && len(m.summaries) == 0 {
		m.mu.Unlock()
		return nil
	}
	counters, summaries := m.counters, m.summaries
	m.counters = make(map[string]int64)
	m.summaries = make(map[string]*Summary)
	m.mu.Unlock()

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for name, delta := range counters {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics_counters(name,value) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET value = value + excluded.value`, name, delta); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for name, agg := range summaries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics_summaries(name,count,sum,min,max) VALUES(?,?,?,?,?) ON CONFLICT(name) DO UPDATE SET count = metrics_summaries.count + excluded.count, sum = metrics_summaries.sum + excluded.sum, min = MIN(metrics_summaries.min, excluded.min), max = MAX(metrics_summaries.max, excluded.max)`, name, agg.Count, agg.Sum, agg.Min, agg.Max); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
