package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

type SyncRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.SyncRun) (*types.SyncRun, error)
	Update(ctx context.Context, tx *gorm.DB, run *types.SyncRun) error
	ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SyncRun, error)
}

type syncRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncRunRepo(db *gorm.DB, baseLog *logger.Logger) SyncRunRepo {
	repoLog := baseLog.With("repo", "SyncRunRepo")
	return &syncRunRepo{db: db, log: repoLog}
}

func (r *syncRunRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *syncRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.SyncRun) (*types.SyncRun, error) {
	if err := r.conn(tx).WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *syncRunRepo) Update(ctx context.Context, tx *gorm.DB, run *types.SyncRun) error {
	return r.conn(tx).WithContext(ctx).Save(run).Error
}

func (r *syncRunRepo) ListRecent(ctx context.Context, tx *gorm.DB, limit int) ([]*types.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var results []*types.SyncRun
	if err := r.conn(tx).WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
