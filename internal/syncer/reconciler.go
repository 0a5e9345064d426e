package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/mirror"
)

// Outcome accumulates per-entity-type reconciliation counts: rows newly
// created vs rows that hit an unrecoverable per-row integrity error.
type Outcome struct {
	Created int `json:"created"`
	Errors  int `json:"errors"`
}

func (o *Outcome) Add(other Outcome) {
	o.Created += other.Created
	o.Errors += other.Errors
}

// Reconciler converts one staff member's source rows into internal rows.
// It is bound to the requesting staff member so entity enrichment (the
// gradebook ownership edge) knows who asked.
type Reconciler struct {
	store    Store
	resolver *Resolver
	staffID  uuid.UUID
	log      *logger.Logger
}

func NewReconciler(store Store, resolver *Resolver, staffID uuid.UUID, baseLog *logger.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		resolver: resolver,
		staffID:  staffID,
		log:      baseLog.With("component", "Reconciler"),
	}
}

// ReconcileType processes one entity type's source rows. High-volume types
// are queued and batch-inserted; everything else is get-or-create row by
// row. Re-running over unchanged source data creates nothing and errors
// nothing.
func (r *Reconciler) ReconcileType(ctx context.Context, spec EntitySpec, rows []mirror.Row) (Outcome, error) {
	var out Outcome
	var queued []map[string]any

	for _, row := range rows {
		attrs, rowErr, err := r.buildAttrs(ctx, spec, row)
		if err != nil {
			return out, err
		}
		if rowErr {
			out.Errors++
			continue
		}

		sourceID, hasSource := asInt64(row[SourceKey])

		if spec.Bulk {
			if hasSource {
				attrs[SourceKey] = sourceID
			}
			queued = append(queued, attrs)
			continue
		}

		var sidPtr *int64
		if hasSource {
			sidPtr = &sourceID
		}
		id, created, err := r.store.GetOrCreate(ctx, spec.Type, sidPtr, attrs)
		if err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrAmbiguous) {
				out.Errors++
				continue
			}
			return out, err
		}
		if created {
			out.Created++
		}
		if err := r.afterWrite(ctx, spec, id); err != nil {
			return out, err
		}
	}

	if len(queued) > 0 {
		bulkOut, err := r.flushBulk(ctx, spec, queued)
		out.Add(bulkOut)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// flushBulk attempts the batch insert; on an integrity conflict the store
// guarantees nothing committed, so each queued row is retried individually
// with get-or-create. That retry is the whole policy: no backoff, no batch
// bisection.
func (r *Reconciler) flushBulk(ctx context.Context, spec EntitySpec, queued []map[string]any) (Outcome, error) {
	var out Outcome

	err := r.store.BulkInsert(ctx, spec.Type, queued)
	if err == nil {
		out.Created = len(queued)
		return out, nil
	}
	if !errors.Is(err, ErrConflict) {
		return out, err
	}

	r.log.Debug("Bulk insert conflicted, falling back to row-by-row",
		"entity_type", spec.Type, "rows", len(queued))

	for _, rec := range queued {
		var sidPtr *int64
		attrs := make(map[string]any, len(rec))
		for k, v := range rec {
			if k == SourceKey {
				sid, ok := asInt64(v)
				if ok {
					sidPtr = &sid
				}
				continue
			}
			attrs[k] = v
		}
		_, created, err := r.store.GetOrCreate(ctx, spec.Type, sidPtr, attrs)
		if err != nil {
			if errors.Is(err, ErrConflict) || errors.Is(err, ErrAmbiguous) {
				out.Errors++
				continue
			}
			return out, err
		}
		if created {
			out.Created++
		}
	}
	return out, nil
}

// buildAttrs runs the field mapper and FK resolver for one row, then
// applies entity-type enrichment. rowErr=true marks a recoverable per-row
// failure; a returned error aborts the run.
func (r *Reconciler) buildAttrs(ctx context.Context, spec EntitySpec, row mirror.Row) (attrs map[string]any, rowErr bool, err error) {
	attrs = CopyFields(spec, row)

	for _, fk := range spec.FKFields {
		raw, ok := row[fk]
		if !ok {
			continue
		}
		target, id, resolved, err := r.resolver.Resolve(ctx, fk, raw)
		if err != nil {
			if errors.Is(err, ErrBadFieldName) {
				return nil, false, err
			}
			if errors.Is(err, ErrAmbiguous) {
				return nil, true, nil
			}
			return nil, false, err
		}
		if resolved {
			attrs[target] = id
		}
		// Unresolved references are omitted, not failed: the related row
		// may simply not be synced yet, and the next pass repairs it.
	}

	r.enrich(spec, attrs)
	return attrs, false, nil
}

func (r *Reconciler) enrich(spec EntitySpec, attrs map[string]any) {
	if spec.Type != TypeSection {
		return
	}
	name, _ := attrs["name"].(string)
	if strings.TrimSpace(name) != "" {
		return
	}
	period := ""
	if v, ok := attrs["period"]; ok && v != nil {
		period = fmt.Sprintf("%v", v)
	}
	course, _ := attrs["course_name"].(string)
	if period == "" && course == "" {
		return
	}
	attrs["name"] = strings.TrimSpace(fmt.Sprintf("P%s %s", period, course))
}

func (r *Reconciler) afterWrite(ctx context.Context, spec EntitySpec, id uuid.UUID) error {
	if spec.Type != TypeGradebook || r.staffID == uuid.Nil {
		return nil
	}
	// A gradebook always records the staff member whose sync produced it
	// as an owner, whether or not this pass created the row.
	return r.store.EnsureGradebookOwner(ctx, id, r.staffID)
}
