package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

type GradebookRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Gradebook, error)
	GetOwnedByStaff(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) ([]*types.Gradebook, error)
	IsOwnedByStaff(ctx context.Context, tx *gorm.DB, gradebookID, staffID uuid.UUID) (bool, error)
}

type gradebookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGradebookRepo(db *gorm.DB, baseLog *logger.Logger) GradebookRepo {
	repoLog := baseLog.With("repo", "GradebookRepo")
	return &gradebookRepo{db: db, log: repoLog}
}

func (r *gradebookRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *gradebookRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Gradebook, error) {
	var result types.Gradebook
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *gradebookRepo) GetOwnedByStaff(ctx context.Context, tx *gorm.DB, staffID uuid.UUID) ([]*types.Gradebook, error) {
	var results []*types.Gradebook
	if err := r.conn(tx).WithContext(ctx).
		Select("gradebook.*").
		Joins("JOIN gradebook_owner AS ow ON ow.gradebook_id = gradebook.id").
		Where("ow.staff_id = ?", staffID).
		Order("gradebook.name").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *gradebookRepo) IsOwnedByStaff(ctx context.Context, tx *gorm.DB, gradebookID, staffID uuid.UUID) (bool, error) {
	var count int64
	if err := r.conn(tx).WithContext(ctx).
		Table("gradebook_owner").
		Where("gradebook_id = ? AND staff_id = ?", gradebookID, staffID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
