package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
)

// GormStore implements Store on the pull schema. Entity type names map 1:1
// onto table names.
type GormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormStore(db *gorm.DB, baseLog *logger.Logger) *GormStore {
	return &GormStore{db: db, log: baseLog.With("component", "GormStore")}
}

func tableFor(entityType string) (string, error) {
	if !knownTypes[entityType] {
		return "", fmt.Errorf("unknown entity type %q", entityType)
	}
	return entityType, nil
}

// isConflict recognizes uniqueness violations across drivers. The gorm
// TranslateError path covers postgres and sqlite when enabled; the string
// checks cover connections opened without it.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func (s *GormStore) LookupBySource(ctx context.Context, entityType string, sourceID int64) (uuid.UUID, bool, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return uuid.Nil, false, err
	}
	var ids []uuid.UUID
	err = s.db.WithContext(ctx).
		Table(table).
		Where("source_object_id = ?", sourceID).
		Limit(2).
		Pluck("id", &ids).Error
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup %s by source id %d: %w", entityType, sourceID, err)
	}
	switch len(ids) {
	case 0:
		return uuid.Nil, false, nil
	case 1:
		return ids[0], true, nil
	default:
		return uuid.Nil, false, fmt.Errorf("%w: %s source id %d", ErrAmbiguous, entityType, sourceID)
	}
}

func (s *GormStore) GetOrCreate(ctx context.Context, entityType string, sourceID *int64, attrs map[string]any) (uuid.UUID, bool, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return uuid.Nil, false, err
	}

	if sourceID != nil {
		id, found, err := s.LookupBySource(ctx, entityType, *sourceID)
		if err != nil {
			return uuid.Nil, false, err
		}
		if found {
			return id, false, nil
		}
	}

	rec := s.newRecord(attrs)
	if sourceID != nil {
		rec[SourceKey] = *sourceID
	}
	id := rec["id"].(uuid.UUID)

	if err := s.db.WithContext(ctx).Table(table).Create(rec).Error; err != nil {
		if isConflict(err) {
			// Lost a race on the source key, or hit a different unique
			// constraint. Only the former is recoverable by re-reading.
			if sourceID != nil {
				existing, found, lookupErr := s.LookupBySource(ctx, entityType, *sourceID)
				if lookupErr == nil && found {
					return existing, false, nil
				}
			}
			return uuid.Nil, false, fmt.Errorf("create %s: %w", entityType, ErrConflict)
		}
		return uuid.Nil, false, fmt.Errorf("create %s: %w", entityType, err)
	}
	return id, true, nil
}

func (s *GormStore) BulkInsert(ctx context.Context, entityType string, rows []map[string]any) error {
	table, err := tableFor(entityType)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	recs := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, s.newRecord(row))
	}

	// One transaction: either the whole batch lands or none of it does,
	// which is what makes the row-by-row fallback safe.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(table).Create(recs).Error
	})
	if err != nil {
		if isConflict(err) {
			return fmt.Errorf("bulk insert %s: %w", entityType, ErrConflict)
		}
		return fmt.Errorf("bulk insert %s: %w", entityType, err)
	}
	return nil
}

func (s *GormStore) EnsureGradebookOwner(ctx context.Context, gradebookID, staffID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).
		Table("gradebook_owner").
		Where("gradebook_id = ? AND staff_id = ?", gradebookID, staffID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check gradebook owner: %w", err)
	}
	if count > 0 {
		return nil
	}
	err = s.db.WithContext(ctx).
		Table("gradebook_owner").
		Create(map[string]any{"gradebook_id": gradebookID, "staff_id": staffID}).Error
	if err != nil {
		if isConflict(err) {
			return nil
		}
		return fmt.Errorf("create gradebook owner: %w", err)
	}
	return nil
}

// newRecord copies attrs and fills identity and timestamps. Map-based
// inserts bypass gorm hooks, so ids are assigned here.
func (s *GormStore) newRecord(attrs map[string]any) map[string]any {
	now := time.Now().UTC()
	rec := make(map[string]any, len(attrs)+3)
	for k, v := range attrs {
		rec[k] = v
	}
	rec["id"] = uuid.New()
	rec["created_at"] = now
	rec["updated_at"] = now
	return rec
}
