// Package store provides the feed journal: an append-only, ordered log of
// ingestion batches. The history index is rebuilt from it on every run; the
// journal holds the feed, never the index itself.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilupskalvis/vhist/internal/models"
)

// Sentinel errors for expected conditions.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyBatch     = errors.New("empty batch")
	ErrUnknownBackend = errors.New("unknown journal backend")
)

// Journal backends
const (
	BackendBbolt  = "bbolt"
	BackendSQLite = "sqlite"
)

// Journal defines the contract for batch journal persistence.
type Journal interface {
	// Append stores b under the next sequence number, sets b.Seq and b.AppendedAt,
	// and returns the sequence number.
	Append(ctx context.Context, b *models.Batch) (uint64, error)
	// Get returns the batch stored under seq. Returns ErrNotFound if missing.
	Get(ctx context.Context, seq uint64) (*models.Batch, error)
	// List returns the headers of all batches in sequence order.
	List(ctx context.Context) ([]models.BatchHeader, error)
	// Replay calls fn for every batch in sequence order, stopping at the first error.
	Replay(ctx context.Context, fn func(*models.Batch) error) error
	// Count returns the number of journaled batches.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open opens the journal at path with the given backend
func Open(backend, path string) (Journal, error) {
	switch backend {
	case BackendBbolt, "":
		return NewBboltJournal(path)
	case BackendSQLite:
		return NewSQLiteJournal(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func checkBatch(b *models.Batch) error {
	if b == nil || (b.RecordCount() == 0 && len(b.Links) == 0) {
		return ErrEmptyBatch
	}
	return nil
}
