package syncer

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrConflict reports a uniqueness/integrity violation. For BulkInsert
	// it additionally promises that nothing was committed, so falling back
	// to row-by-row insertion is safe.
	ErrConflict = errors.New("syncer: integrity conflict")

	// ErrAmbiguous reports that more than one internal row matched a single
	// source identifier. Counted as a row error, never fatal.
	ErrAmbiguous = errors.New("syncer: ambiguous source match")
)

// Store is the internal-store contract the sync core consumes. The GORM
// implementation lives in gormstore.go; tests substitute fakes.
type Store interface {
	// LookupBySource finds the internal id for (entityType, sourceID).
	// A miss is (Nil, false, nil), not an error.
	LookupBySource(ctx context.Context, entityType string, sourceID int64) (uuid.UUID, bool, error)

	// GetOrCreate inserts a row unless one already exists for the source
	// key. Existing rows are returned untouched: a changed attribute on
	// re-sync does not update the stored row.
	GetOrCreate(ctx context.Context, entityType string, sourceID *int64, attrs map[string]any) (id uuid.UUID, created bool, err error)

	// BulkInsert writes all rows in a single all-or-nothing batch. On a
	// uniqueness violation it returns ErrConflict with nothing committed.
	BulkInsert(ctx context.Context, entityType string, rows []map[string]any) error

	// EnsureGradebookOwner records staffID as an owner of the gradebook if
	// the edge is not already present.
	EnsureGradebookOwner(ctx context.Context, gradebookID, staffID uuid.UUID) error
}
