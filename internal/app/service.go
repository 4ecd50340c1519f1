// Package app contains the application orchestration layer for uidgen. It wires
// the ID space with the directory port and metric recording.
package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/haukened/uidgen/internal/directory"
	"github.com/haukened/uidgen/internal/domain"
	"github.com/haukened/uidgen/internal/metrics"
)

// Service orchestrates uid allocation and reseeding. Construct with New.
type Service struct {
	space     Allocator
	directory directory.Source
	recorder  Recorder
	maxBatch  int

	ready atomic.Bool
}

// New returns a Service. recorder may be nil. maxBatch <= 0 disables the per
// request limit.
func New(space Allocator, dir directory.Source, recorder Recorder, maxBatch int) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{space: space, directory: dir, recorder: recorder, maxBatch: maxBatch}
}

// Allocate hands out up to n uids. A short (or empty) result means the pool
// is exhausted and is not an error. n <= 0 yields an empty allocation;
// n above the configured batch limit is rejected with domain.ErrInvalidCount.
func (s *Service) Allocate(_ context.Context, n int) (Allocation, error) {
	if s.maxBatch > 0 && n > s.maxBatch {
		return Allocation{}, fmt.Errorf("%w: %d exceeds limit %d", domain.ErrInvalidCount, n, s.maxBatch)
	}
	uids, available := s.space.Allocate(n)
	if n > 0 {
		s.recorder.Inc(metrics.CounterUIDsRequested, int64(n))
		s.recorder.Inc(metrics.CounterUIDsAllocated, int64(len(uids)))
		s.recorder.Inc(metrics.CounterUIDsShortfall, int64(n-len(uids)))
		s.recorder.Observe(metrics.SummaryUIDsPerRequest, int64(len(uids)))
	}
	return Allocation{UIDs: uids, Available: available}, nil
}

// Status returns the number of uids that can still be allocated.
func (s *Service) Status() int { return s.space.Available() }

// Initialize reseeds the ID space from the directory. Malformed or out of
// range directory entries abort the reseed and keep the previous state; the
// error wraps domain.ErrMalformedUID or domain.ErrOutOfRange. Allocations made
// since the last initialize that the directory does not know about yet are
// forgotten by a successful reseed.
func (s *Service) Initialize(ctx context.Context) (int, error) {
	available, err := s.initialize(ctx)
	if err != nil {
		s.recorder.Inc(metrics.CounterInitializeFailed, 1)
		return 0, err
	}
	s.recorder.Inc(metrics.CounterInitialize, 1)
	s.ready.Store(true)
	return available, nil
}

func (s *Service) initialize(ctx context.Context) (int, error) {
	format := s.space.Format()
	uids, err := s.directory.OccupiedUIDs(ctx, format.Tag)
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}
	occupied, err := format.ParseAll(uids)
	if err != nil {
		return 0, fmt.Errorf("parse directory: %w", err)
	}
	if err := s.space.Initialize(occupied); err != nil {
		return 0, fmt.Errorf("seed id space: %w", err)
	}
	return s.space.Available(), nil
}

// Ready reports whether at least one Initialize has succeeded.
func (s *Service) Ready() bool { return s.ready.Load() }

type nopRecorder struct{}

func (nopRecorder) Inc(string, int64)     {}
func (nopRecorder) Observe(string, int64) {}
