// Package idspace implements the bounded unique-identifier pool. A Space owns
// an occupancy bitmap over [0, capacity) and hands out previously unused
// slots, rendered through a domain.UIDFormat.
//
// Slots are chosen by picking a uniformly random start index and probing
// forward (wrapping at capacity) for the first free slot. With low occupancy
// the expected probe is O(1). As the pool approaches exhaustion the probe
// length grows towards O(capacity) and requests slow down accordingly; the
// bitset's word-at-a-time scan only lowers the constant. This is accepted: the pool
// is sized so that it is never expected to run close to full.
//
// All state is guarded by one mutex. Allocations never block waiting for
// capacity and slots are never released except by Initialize.
package idspace

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/haukened/uidgen/internal/domain"
)

// Space is a fixed-capacity ID space. It is safe for concurrent use.
// Construct via New.
type Space struct {
	format   domain.UIDFormat
	capacity int

	mu        sync.Mutex
	used      *bitset.BitSet
	available int
	rng       *rand.Rand
}

// Option customises a Space.
type Option func(*Space)

// WithRand replaces the probe start source. Tests use a seeded source for
// reproducible sequences.
func WithRand(r *rand.Rand) Option { return func(s *Space) { s.rng = r } }

// New returns an empty Space (all slots free) for the given format.
func New(format domain.UIDFormat, opts ...Option) *Space {
	capacity := format.Capacity()
	s := &Space{
		format:   format,
		capacity: capacity,
		used:     bitset.New(uint(capacity)),
	}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		now := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	s.reset()
	return s
}

// Capacity returns the number of addressable slots (10^digits).
func (s *Space) Capacity() int { return s.capacity }

// Format returns the uid format used to render allocated slots.
func (s *Space) Format() domain.UIDFormat { return s.format }

// Initialize resets the bitmap to all free and marks each index in occupied as
// used. Duplicate indexes count once. If any index lies outside [0, capacity)
// nothing is changed and an error wrapping domain.ErrOutOfRange is returned;
// callers must treat that as corrupted directory state.
func (s *Space) Initialize(occupied []int) error {
	for _, idx := range occupied {
		if idx < 0 || idx >= s.capacity {
			return fmt.Errorf("%w: %d not in [0,%d)", domain.ErrOutOfRange, idx, s.capacity)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for _, idx := range occupied {
		if s.mark(idx) {
			s.available--
		}
	}
	return nil
}

// Allocate reserves up to n previously unused slots and returns them formatted,
// in allocation order, together with the available count observed right after
// the allocation. Fewer than n results (possibly none) mean the pool ran dry;
// that is not an error. n <= 0 yields an empty result.
func (s *Space) Allocate(n int) ([]string, int) {
	if n <= 0 {
		return []string{}, s.Available()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	size := n
	if size > s.available {
		size = s.available
	}
	uids := make([]string, 0, size)
	for i := 0; i < n && s.available > 0; i++ {
		idx := s.nextFree(s.rng.IntN(s.capacity))
		s.mark(idx)
		s.available--
		uids = append(uids, s.format.Format(idx))
	}
	return uids, s.available
}

// Available returns the number of free slots.
func (s *Space) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// reset clears every slot. Caller holds mu (or owns s).
func (s *Space) reset() {
	s.used.ClearAll()
	s.available = s.capacity
}

// mark sets the slot and reports whether it was previously free.
func (s *Space) mark(idx int) bool {
	i := uint(idx)
	if s.used.Test(i) {
		return false
	}
	s.used.Set(i)
	return true
}

// nextFree returns the first free slot at or after start, wrapping at capacity.
// Callers check available first; it returns -1 only when the space is full.
func (s *Space) nextFree(start int) int {
	if i, ok := s.used.NextClear(uint(start)); ok {
		return int(i)
	}
	if i, ok := s.used.NextClear(0); ok {
		return int(i)
	}
	return -1
}
