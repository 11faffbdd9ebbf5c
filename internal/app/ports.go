// Package app defines the application layer "ports" (interfaces) and simple
// data contracts that the upid service depends upon. It follows a hexagonal
// (ports & adapters) design: this package declares what the core needs, while
// adapter packages (SQLite registry, HTTP layer, janitor, metrics) provide
// concrete implementations. No I/O, logging, SQL, or network concerns belong
// here.
package app

import (
	"context"
	"time"

	"github.com/haukened/upid"
)

// Record is an identifier known to the registry.
type Record struct {
	ID       upid.UPID
	IssuedAt time.Time // wall-clock time the service issued ID
}

// Clock abstracts time to enable deterministic testing of issue timestamps.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time
}

// Registry is the storage port for issued identifiers.
type Registry interface {
	// Insert persists a newly issued identifier. Inserting an identifier that
	// already exists is an error.
	Insert(ctx context.Context, rec Record) error

	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id upid.UPID) (Record, error)

	// List returns up to limit records with the given four-character prefix,
	// oldest first.
	List(ctx context.Context, prefix string, limit int) ([]Record, error)

	// DeleteBefore removes records whose embedded timestamp precedes t and
	// returns how many were removed.
	DeleteBefore(ctx context.Context, t time.Time) (int, error)
}

// Counter receives monotonic counter increments. It is satisfied by
// *metrics.Manager.
type Counter interface {
	Inc(name string, delta int64)
}
