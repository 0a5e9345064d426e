package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

type DeltaRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Delta, error)
	ListUnsettledForStaff(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) ([]*types.Delta, error)
	Settle(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type deltaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDeltaRepo(db *gorm.DB, baseLog *logger.Logger) DeltaRepo {
	repoLog := baseLog.With("repo", "DeltaRepo")
	return &deltaRepo{db: db, log: repoLog}
}

func (r *deltaRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *deltaRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Delta, error) {
	var result types.Delta
	if err := r.conn(tx).WithContext(ctx).
		Preload("Missing").
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *deltaRepo) ListUnsettledForStaff(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) ([]*types.Delta, error) {
	var results []*types.Delta
	if err := r.conn(tx).WithContext(ctx).
		Preload("Missing").
		Select("delta.*").
		Joins("JOIN gradebook_owner AS ow ON ow.gradebook_id = delta.gradebook_id").
		Where("ow.staff_id = ? AND delta.settled = ?", staffID, false).
		Order("delta.created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *deltaRepo) Settle(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Model(&types.Delta{}).
		Where("id = ?", id).
		Update("settled", true).Error
}
