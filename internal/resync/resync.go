// Package resync periodically reseeds the ID space from the directory. It runs
// independently from the request path; a failed cycle is logged and leaves the
// previously loaded state serving.
package resync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/haukened/uidgen/internal/metrics"
)

// Initializer reseeds the ID space and returns the available count.
// *app.Service satisfies it.
type Initializer interface {
	Initialize(ctx context.Context) (int, error)
}

// Recorder receives cycle counts. It may be nil.
type Recorder interface {
	Inc(name string, delta int64)
}

// Config holds tunables for the Loop.
type Config struct {
	Interval time.Duration // how often a cycle begins
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
	Recorder Recorder
}

// Stats accumulates in-memory counters for operational insight.
type Stats struct {
	mu                  sync.Mutex
	cycles              uint64
	failures            uint64
	lastAvailable       int
	cycleLastDurationMS int64
}

// StatsView is a read-only snapshot safe to copy.
type StatsView struct {
	Cycles              uint64
	Failures            uint64
	LastAvailable       int
	CycleLastDurationMS int64
}

func (s *Stats) record(d time.Duration, available int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	s.cycleLastDurationMS = d.Milliseconds()
	if err != nil {
		s.failures++
		return
	}
	s.lastAvailable = available
}

// Loop encapsulates the background resync loop.
type Loop struct {
	target Initializer
	cfg    Config
	stats  *Stats

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Loop.
func New(target Initializer, cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		target: target,
		cfg:    cfg,
		stats:  &Stats{},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the loop in a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	if l.ticker != nil {
		return
	} // already started
	l.ticker = time.NewTicker(l.cfg.Interval)
	go l.loop(ctx)
}

// Stop signals the loop to exit and waits for completion. Stop on a loop that
// was never started returns immediately.
func (l *Loop) Stop() {
	if l.ticker == nil {
		return
	}
	l.once.Do(func() { close(l.stopCh) })
	<-l.doneCh
}

// Snapshot returns a copy of current stats.
func (l *Loop) Snapshot() StatsView {
	l.stats.mu.Lock()
	defer l.stats.mu.Unlock()
	return StatsView{
		Cycles:              l.stats.cycles,
		Failures:            l.stats.failures,
		LastAvailable:       l.stats.lastAvailable,
		CycleLastDurationMS: l.stats.cycleLastDurationMS,
	}
}

// Gauges exposes the loop stats to the metrics endpoint.
func (l *Loop) Gauges() map[string]int64 {
	v := l.Snapshot()
	return map[string]int64{
		metrics.GaugeResyncCycles:         int64(v.Cycles),
		metrics.GaugeResyncFailures:       int64(v.Failures),
		metrics.GaugeResyncLastAvailable:  int64(v.LastAvailable),
		metrics.GaugeResyncLastDurationMS: v.CycleLastDurationMS,
	}
}

func (l *Loop) loop(ctx context.Context) {
	log := l.cfg.Logger.With("domain", "resync")
	defer func() {
		l.ticker.Stop()
		close(l.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("resync stop", "reason", "context_cancel")
			return
		case <-l.stopCh:
			log.Info("resync stop", "reason", "stop_signal")
			return
		case <-l.ticker.C:
			l.runCycle(ctx)
		}
	}
}

// runCycle performs one reseed.
func (l *Loop) runCycle(ctx context.Context) {
	start := time.Now()
	log := l.cfg.Logger.With("domain", "resync", "action", "cycle")
	available, err := l.target.Initialize(ctx)
	l.stats.record(time.Since(start), available, err)
	if l.cfg.Recorder != nil {
		l.cfg.Recorder.Inc(metrics.CounterResyncCycles, 1)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("reseed failed, keeping previous state", "err", err)
		}
		return
	}
	log.Info("cycle complete", "available", available, "ms", time.Since(start).Milliseconds())
}
