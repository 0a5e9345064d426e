package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

type ActionRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ActionRecord) (*types.ActionRecord, error)
	ListForStaff(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) ([]*types.ActionRecord, error)
}

type actionRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionRecordRepo(db *gorm.DB, baseLog *logger.Logger) ActionRecordRepo {
	repoLog := baseLog.With("repo", "ActionRecordRepo")
	return &actionRecordRepo{db: db, log: repoLog}
}

func (r *actionRecordRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *actionRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ActionRecord) (*types.ActionRecord, error) {
	if err := r.conn(tx).WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *actionRecordRepo) ListForStaff(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) ([]*types.ActionRecord, error) {
	var results []*types.ActionRecord
	if err := r.conn(tx).WithContext(ctx).
		Preload("Deltas").
		Where("staff_id = ?", staffID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
