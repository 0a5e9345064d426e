package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/mirror"
)

// Orchestrator drives reconciliation across the dependency-ordered entity
// stages for one staff member at a time. Stage order is the core invariant
// of the pipeline: a later stage's FK lookups depend on earlier stages
// having created the referenced rows in the same pass. Stages are never
// parallelized; independent staff members may be.
type Orchestrator struct {
	store  Store
	source mirror.SourceAdapter
	specs  []EntitySpec
	log    *logger.Logger
}

func NewOrchestrator(store Store, source mirror.SourceAdapter, specs []EntitySpec, baseLog *logger.Logger) *Orchestrator {
	if len(specs) == 0 {
		specs = DefaultSpecs()
	}
	return &Orchestrator{
		store:  store,
		source: source,
		specs:  specs,
		log:    baseLog.With("component", "Orchestrator"),
	}
}

// ReconcileStaff runs the full stage pipeline for one staff member and
// returns per-type outcomes. The FK cache lives exactly as long as this
// call.
func (o *Orchestrator) ReconcileStaff(ctx context.Context, staffSourceID int64) (map[string]Outcome, error) {
	log := o.log.With("staff_source_id", staffSourceID)
	outcomes := map[string]Outcome{}

	// Fresh resolver per run: the internal store can change between runs,
	// so cached resolutions must not outlive one pass.
	resolver := NewResolver(o.store, o.log)

	staffID, staffOutcome, err := o.fetchOrCreateStaff(ctx, staffSourceID)
	if err != nil {
		return nil, err
	}
	outcomes[TypeStaff] = staffOutcome

	rec := NewReconciler(o.store, resolver, staffID, o.log)

	for _, spec := range o.specs {
		if spec.Type == TypeStaff {
			continue
		}
		rows, err := o.fetchStage(ctx, spec.Type, staffSourceID)
		if err != nil {
			if errors.Is(err, mirror.ErrNotImplemented) {
				log.Debug("Stage not implemented by source, skipping", "entity_type", spec.Type)
				continue
			}
			return nil, fmt.Errorf("fetch %s rows: %w", spec.Type, err)
		}
		if rows == nil {
			continue
		}
		outcome, err := rec.ReconcileType(ctx, spec, rows)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", spec.Type, err)
		}
		agg := outcomes[spec.Type]
		agg.Add(outcome)
		outcomes[spec.Type] = agg
		log.Debug("Stage reconciled", "entity_type", spec.Type, "created", outcome.Created, "errors", outcome.Errors)
	}
	return outcomes, nil
}

// fetchOrCreateStaff resolves the staff member's internal profile, creating
// a bare one when the source cannot describe staff at all.
func (o *Orchestrator) fetchOrCreateStaff(ctx context.Context, staffSourceID int64) (uuid.UUID, Outcome, error) {
	var out Outcome

	attrs := map[string]any{}
	row, err := o.source.Staff(ctx, staffSourceID)
	if err != nil && !errors.Is(err, mirror.ErrNotImplemented) {
		return uuid.Nil, out, fmt.Errorf("fetch staff row: %w", err)
	}
	if row != nil {
		attrs = CopyFields(o.specFor(TypeStaff), row)
	}

	sid := staffSourceID
	id, created, err := o.store.GetOrCreate(ctx, TypeStaff, &sid, attrs)
	if err != nil {
		return uuid.Nil, out, fmt.Errorf("get or create staff profile: %w", err)
	}
	if created {
		out.Created++
	}
	return id, out, nil
}

func (o *Orchestrator) specFor(entityType string) EntitySpec {
	for _, spec := range o.specs {
		if spec.Type == entityType {
			return spec
		}
	}
	return EntitySpec{Type: entityType}
}

func (o *Orchestrator) fetchStage(ctx context.Context, entityType string, staffSourceID int64) ([]mirror.Row, error) {
	switch entityType {
	case TypeSite:
		return o.source.Sites(ctx, staffSourceID)
	case TypeTerm:
		return o.source.Terms(ctx, staffSourceID)
	case TypeGradingPeriod:
		return o.source.GradingPeriods(ctx, staffSourceID)
	case TypeSection:
		return o.source.Sections(ctx, staffSourceID)
	case TypeStudent:
		return o.source.Students(ctx, staffSourceID)
	case TypeEnrollment:
		return o.source.Enrollments(ctx, staffSourceID)
	case TypeGradebook:
		return o.source.Gradebooks(ctx, staffSourceID)
	case TypeCategory:
		return o.source.Categories(ctx, staffSourceID)
	case TypeAssignment:
		return o.source.Assignments(ctx, staffSourceID)
	case TypeScoreCache:
		return o.source.Scores(ctx, staffSourceID)
	default:
		return nil, fmt.Errorf("no source query for entity type %q", entityType)
	}
}

// AllOptions configures a batch run over many staff members.
type AllOptions struct {
	// StaffSourceIDs limits the batch; empty means every staff member the
	// source enumerates.
	StaffSourceIDs []int64
	// Sparse processes only every Nth staff member when > 1. Used to smoke
	// test against production-sized mirrors without the full cost.
	Sparse int
	// Workers parallelizes across staff members when > 1. Each staff
	// member's run still gets its own FK cache.
	Workers int
}

// StaffFailure records one staff member whose pipeline errored without
// aborting the batch.
type StaffFailure struct {
	StaffSourceID int64  `json:"staff_source_id"`
	Error         string `json:"error"`
}

// BatchResult aggregates outcomes across a batch run.
type BatchResult struct {
	Totals         map[string]Outcome
	StaffProcessed int
	Failures       []StaffFailure
}

func (b *BatchResult) TotalCreated() int {
	n := 0
	for _, o := range b.Totals {
		n += o.Created
	}
	return n
}

func (b *BatchResult) TotalErrors() int {
	n := 0
	for _, o := range b.Totals {
		n += o.Errors
	}
	return n
}

// Summary renders the per-type counts in stage order, then a grand total.
func (b *BatchResult) Summary() string {
	var sb strings.Builder
	for _, spec := range DefaultSpecs() {
		o, ok := b.Totals[spec.Type]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "%-16s created=%d errors=%d\n", spec.Type, o.Created, o.Errors)
	}
	fmt.Fprintf(&sb, "staff processed: %d, failed: %d\n", b.StaffProcessed, len(b.Failures))
	fmt.Fprintf(&sb, "total: created=%d errors=%d\n", b.TotalCreated(), b.TotalErrors())
	return sb.String()
}

// ReconcileAll runs the pipeline for many staff members, summing per-type
// outcomes. One staff member's failure is recorded and never halts the
// batch; only mapping-configuration defects abort the whole run.
func (o *Orchestrator) ReconcileAll(ctx context.Context, opts AllOptions) (*BatchResult, error) {
	ids := opts.StaffSourceIDs
	if len(ids) == 0 {
		var err error
		ids, err = o.source.StaffSourceIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("enumerate staff: %w", err)
		}
	}
	if opts.Sparse > 1 {
		sampled := make([]int64, 0, len(ids)/opts.Sparse+1)
		for i, id := range ids {
			if i%opts.Sparse == 0 {
				sampled = append(sampled, id)
			}
		}
		ids = sampled
	}

	result := &BatchResult{Totals: map[string]Outcome{}}
	var mu sync.Mutex

	record := func(staffSourceID int64, outcomes map[string]Outcome, runErr error) {
		mu.Lock()
		defer mu.Unlock()
		result.StaffProcessed++
		if runErr != nil {
			result.Failures = append(result.Failures, StaffFailure{
				StaffSourceID: staffSourceID,
				Error:         runErr.Error(),
			})
			return
		}
		for t, outcome := range outcomes {
			agg := result.Totals[t]
			agg.Add(outcome)
			result.Totals[t] = agg
		}
	}

	runOne := func(staffSourceID int64) (err error) {
		defer func() {
			if r := recover(); r != nil {
				record(staffSourceID, nil, fmt.Errorf("panic: %v", r))
				err = nil
			}
		}()
		outcomes, runErr := o.ReconcileStaff(ctx, staffSourceID)
		if runErr != nil && errors.Is(runErr, ErrBadFieldName) {
			// Mapping defect, not a data problem: abort the batch.
			return runErr
		}
		record(staffSourceID, outcomes, runErr)
		return nil
	}

	workers := opts.Workers
	if workers <= 1 {
		for _, id := range ids {
			if err := runOne(id); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		staffSourceID := id
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return runOne(staffSourceID)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
