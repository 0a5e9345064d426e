package deltas

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

// Engine computes delta records from the reconciled current-state caches.
// It only ever reads the pull schema; the one thing it writes is the delta
// tables.
type Engine struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngine(db *gorm.DB, baseLog *logger.Logger) *Engine {
	return &Engine{db: db, log: baseLog.With("component", "DeltaEngine")}
}

// Result counts what one computation pass did.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Settled int `json:"settled"`
}

// MissingEntry is one missing assignment as exposed outward.
type MissingEntry struct {
	AssignmentID     uuid.UUID `json:"assignment_id"`
	AssignmentName   string    `json:"assignment_name"`
	StudentID        uuid.UUID `json:"student_id"`
	StudentFirstName string    `json:"student_first_name"`
	StudentLastName  string    `json:"student_last_name"`
	GradebookID      uuid.UUID `json:"gradebook_id"`
	GradebookName    string    `json:"gradebook_name"`
}

// ComputeMissing recomputes missing-assignment deltas for one staff member.
// Each (student, gradebook) pair keeps at most one unsettled missing delta:
// an existing one is updated in place, a student no longer missing anything
// gets theirs settled rather than deleted.
func (e *Engine) ComputeMissing(ctx context.Context, staffID uuid.UUID, gradingPeriodID *uuid.UUID) (Result, error) {
	var res Result

	periodIDs, err := e.scopePeriods(ctx, gradingPeriodID)
	if err != nil {
		return res, err
	}
	if len(periodIDs) == 0 {
		return res, nil
	}

	gradebookIDs, err := e.ownedGradebookIDs(ctx, staffID, periodIDs)
	if err != nil {
		return res, err
	}

	for _, gid := range gradebookIDs {
		gres, err := e.computeForGradebook(ctx, gid)
		if err != nil {
			return res, fmt.Errorf("compute missing deltas for gradebook %s: %w", gid, err)
		}
		res.Created += gres.Created
		res.Updated += gres.Updated
		res.Settled += gres.Settled
	}

	e.log.Info("Missing deltas computed",
		"staff_id", staffID, "gradebooks", len(gradebookIDs),
		"created", res.Created, "updated", res.Updated, "settled", res.Settled)
	return res, nil
}

func (e *Engine) computeForGradebook(ctx context.Context, gradebookID uuid.UUID) (Result, error) {
	var res Result

	var cacheRows []types.ScoreCache
	err := e.db.WithContext(ctx).
		Where("gradebook_id = ? AND is_missing = ?", gradebookID, true).
		Order("student_id").
		Find(&cacheRows).Error
	if err != nil {
		return res, err
	}

	missingByStudent := map[uuid.UUID][]types.ScoreCache{}
	for _, row := range cacheRows {
		if row.StudentID == nil {
			continue
		}
		missingByStudent[*row.StudentID] = append(missingByStudent[*row.StudentID], row)
	}

	var open []types.Delta
	err = e.db.WithContext(ctx).
		Where("gradebook_id = ? AND kind = ? AND settled = ?", gradebookID, types.DeltaKindMissing, false).
		Find(&open).Error
	if err != nil {
		return res, err
	}
	openByStudent := map[uuid.UUID]*types.Delta{}
	for i := range open {
		openByStudent[open[i].StudentID] = &open[i]
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		for studentID, rows := range missingByStudent {
			records := buildMissingRecords(rows, now)

			if existing, ok := openByStudent[studentID]; ok {
				if err := tx.Where("delta_id = ?", existing.ID).Delete(&types.MissingAssignmentRecord{}).Error; err != nil {
					return err
				}
				for _, r := range records {
					r.DeltaID = existing.ID
					if err := tx.Create(r).Error; err != nil {
						return err
					}
				}
				if err := tx.Model(&types.Delta{}).Where("id = ?", existing.ID).Update("updated_at", now).Error; err != nil {
					return err
				}
				res.Updated++
				continue
			}

			gid := gradebookID
			delta := &types.Delta{
				Kind:        types.DeltaKindMissing,
				StudentID:   studentID,
				GradebookID: &gid,
			}
			if err := tx.Create(delta).Error; err != nil {
				return err
			}
			for _, r := range records {
				r.DeltaID = delta.ID
				if err := tx.Create(r).Error; err != nil {
					return err
				}
			}
			res.Created++
		}

		// Soft-resolve deltas whose student is no longer missing anything.
		for studentID, existing := range openByStudent {
			if _, still := missingByStudent[studentID]; still {
				continue
			}
			if err := tx.Model(&types.Delta{}).Where("id = ?", existing.ID).Update("settled", true).Error; err != nil {
				return err
			}
			res.Settled++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func buildMissingRecords(rows []types.ScoreCache, now time.Time) []*types.MissingAssignmentRecord {
	records := make([]*types.MissingAssignmentRecord, 0, len(rows))
	for _, row := range rows {
		if row.AssignmentID == nil {
			continue
		}
		missingOn := now
		if row.MissingOn != nil {
			missingOn = *row.MissingOn
		}
		records = append(records, &types.MissingAssignmentRecord{
			AssignmentID: *row.AssignmentID,
			MissingOn:    missingOn,
		})
	}
	return records
}

// scopePeriods resolves the grading-period scope: an explicit period id, or
// every period whose window contains the current date.
func (e *Engine) scopePeriods(ctx context.Context, gradingPeriodID *uuid.UUID) ([]uuid.UUID, error) {
	if gradingPeriodID != nil {
		return []uuid.UUID{*gradingPeriodID}, nil
	}
	now := time.Now().UTC()
	var ids []uuid.UUID
	err := e.db.WithContext(ctx).
		Model(&types.GradingPeriod{}).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("resolve active grading periods: %w", err)
	}
	return ids, nil
}

func (e *Engine) ownedGradebookIDs(ctx context.Context, staffID uuid.UUID, periodIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := e.db.WithContext(ctx).
		Table("gradebook AS g").
		Joins("JOIN gradebook_owner AS ow ON ow.gradebook_id = g.id").
		Joins("JOIN section AS s ON s.id = g.section_id").
		Where("ow.staff_id = ? AND s.grading_period_id IN ?", staffID, periodIDs).
		Distinct().
		Pluck("g.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("resolve owned gradebooks: %w", err)
	}
	return ids, nil
}

// MissingForGradebook lists missing-assignment cache entries for one
// gradebook, joined out to names. No flagged rows means an empty slice.
func (e *Engine) MissingForGradebook(ctx context.Context, gradebookID uuid.UUID) ([]MissingEntry, error) {
	entries := make([]MissingEntry, 0)
	err := e.db.WithContext(ctx).
		Table("score_cache AS sc").
		Select("sc.assignment_id, a.name AS assignment_name, sc.student_id, st.first_name AS student_first_name, st.last_name AS student_last_name, sc.gradebook_id, g.name AS gradebook_name").
		Joins("JOIN assignment AS a ON a.id = sc.assignment_id").
		Joins("JOIN student AS st ON st.id = sc.student_id").
		Joins("JOIN gradebook AS g ON g.id = sc.gradebook_id").
		Where("sc.gradebook_id = ? AND sc.is_missing = ?", gradebookID, true).
		Order("sc.student_id").
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query missing for gradebook %s: %w", gradebookID, err)
	}
	return entries, nil
}

// AllMissingForUser groups every missing entry across the staff member's
// gradebooks by student id.
func (e *Engine) AllMissingForUser(ctx context.Context, staffID uuid.UUID, gradingPeriodID *uuid.UUID) (map[string][]MissingEntry, error) {
	periodIDs, err := e.scopePeriods(ctx, gradingPeriodID)
	if err != nil {
		return nil, err
	}
	out := map[string][]MissingEntry{}
	if len(periodIDs) == 0 {
		return out, nil
	}
	gradebookIDs, err := e.ownedGradebookIDs(ctx, staffID, periodIDs)
	if err != nil {
		return nil, err
	}
	for _, gid := range gradebookIDs {
		entries, err := e.MissingForGradebook(ctx, gid)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			key := entry.StudentID.String()
			out[key] = append(out[key], entry)
		}
	}
	return out, nil
}
