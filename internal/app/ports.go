// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the core use-cases of uidgen depend upon. It follows a
// hexagonal (ports & adapters) design: this package declares what the core
// needs, while adapter packages (HTTP layer, metrics, resync loop) provide or
// consume concrete implementations. The directory port is package directory's
// Source. No I/O, logging, SQL, or network concerns belong here.
package app

import (
	"github.com/haukened/uidgen/internal/domain"
)

// Allocator is the ID space port. It is satisfied by *idspace.Space.
type Allocator interface {
	// Initialize replaces the occupancy state with exactly the given indexes.
	// It must leave the previous state untouched when it returns an error.
	Initialize(occupied []int) error
	// Allocate reserves up to n unused slots and returns them formatted along
	// with the available count observed atomically with the allocation.
	Allocate(n int) (uids []string, available int)
	// Available returns the number of free slots.
	Available() int
	// Format returns the uid format of the space.
	Format() domain.UIDFormat
}

// Recorder receives metric events. *metrics.Manager satisfies it.
type Recorder interface {
	Inc(name string, delta int64)
	Observe(name string, value int64)
}

// Allocation is the outcome of one allocation request.
type Allocation struct {
	UIDs      []string
	Available int
}
