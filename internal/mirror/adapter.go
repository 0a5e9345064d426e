package mirror

import (
	"context"
	"errors"
)

// ErrNotImplemented is returned by adapters for entity types the underlying
// source system does not mirror. The orchestrator skips those stages.
var ErrNotImplemented = errors.New("mirror: query not implemented for this source")

// Row is one record from the external mirror: field name to value, in
// source-system naming. Rows are read-only as far as this package is
// concerned.
type Row map[string]any

// SourceAdapter is the query contract one external SIS mirror implements.
// Every method takes a staff member's source-system identifier and returns
// the current, non-deleted rows related to that staff member, or
// ErrNotImplemented.
type SourceAdapter interface {
	// StaffSourceIDs lists every staff identifier present in the mirror.
	StaffSourceIDs(ctx context.Context) ([]int64, error)

	Staff(ctx context.Context, staffSourceID int64) (Row, error)
	Sites(ctx context.Context, staffSourceID int64) ([]Row, error)
	Terms(ctx context.Context, staffSourceID int64) ([]Row, error)
	GradingPeriods(ctx context.Context, staffSourceID int64) ([]Row, error)
	Sections(ctx context.Context, staffSourceID int64) ([]Row, error)
	Students(ctx context.Context, staffSourceID int64) ([]Row, error)
	Enrollments(ctx context.Context, staffSourceID int64) ([]Row, error)
	Gradebooks(ctx context.Context, staffSourceID int64) ([]Row, error)
	Categories(ctx context.Context, staffSourceID int64) ([]Row, error)
	Assignments(ctx context.Context, staffSourceID int64) ([]Row, error)
	Scores(ctx context.Context, staffSourceID int64) ([]Row, error)
}
