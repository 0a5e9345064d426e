package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

type StaffRepo interface {
	Create(ctx context.Context, tx *gorm.DB, staff *types.Staff) (*types.Staff, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Staff, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Staff, error)
	GetBySourceID(ctx context.Context, tx *gorm.DB, sourceID int64) (*types.Staff, error)
}

type staffRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStaffRepo(db *gorm.DB, baseLog *logger.Logger) StaffRepo {
	repoLog := baseLog.With("repo", "StaffRepo")
	return &staffRepo{db: db, log: repoLog}
}

func (r *staffRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *staffRepo) Create(ctx context.Context, tx *gorm.DB, staff *types.Staff) (*types.Staff, error) {
	if err := r.conn(tx).WithContext(ctx).Create(staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *staffRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Staff, error) {
	var result types.Staff
	if err := r.conn(tx).WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *staffRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Staff, error) {
	var result types.Staff
	if err := r.conn(tx).WithContext(ctx).
		Where("email = ?", email).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *staffRepo) GetBySourceID(ctx context.Context, tx *gorm.DB, sourceID int64) (*types.Staff, error) {
	var result types.Staff
	if err := r.conn(tx).WithContext(ctx).
		Where("source_object_id = ?", sourceID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
