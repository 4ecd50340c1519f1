// Package directory defines the Directory Sync port: the authoritative source
// of identifiers that were already issued and must never be handed out again.
// Adapters live in the sqlite and file subpackages.
package directory

import "context"

// Source returns every already-issued uid that carries the given tag. Entries
// are returned verbatim; parsing and range checks are the caller's job so that
// malformed data is rejected in one place.
type Source interface {
	OccupiedUIDs(ctx context.Context, tag string) ([]string, error)
}

// Pinger is implemented by sources that can report their own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
