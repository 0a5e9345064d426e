package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/repos"
	"github.com/classtrack/schoolsync-backend/internal/syncer"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

// SyncService wraps the orchestrator with audit logging: every top-level
// invocation leaves a SyncRun row behind.
type SyncService interface {
	RunStaff(ctx context.Context, staffSourceID int64) (map[string]syncer.Outcome, error)
	RunAll(ctx context.Context, opts syncer.AllOptions) (*syncer.BatchResult, error)
	ListRuns(ctx context.Context, limit int) ([]*types.SyncRun, error)
}

type syncService struct {
	db          *gorm.DB
	log         *logger.Logger
	orch        *syncer.Orchestrator
	syncRunRepo repos.SyncRunRepo
}

func NewSyncService(db *gorm.DB, baseLog *logger.Logger, orch *syncer.Orchestrator, syncRunRepo repos.SyncRunRepo) SyncService {
	serviceLog := baseLog.With("service", "SyncService")
	return &syncService{
		db:          db,
		log:         serviceLog,
		orch:        orch,
		syncRunRepo: syncRunRepo,
	}
}

func (s *syncService) RunStaff(ctx context.Context, staffSourceID int64) (map[string]syncer.Outcome, error) {
	run, err := s.syncRunRepo.Create(ctx, nil, &types.SyncRun{
		Scope:      types.SyncScopeStaff,
		StaffCount: 1,
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record sync run: %w", err)
	}

	outcomes, runErr := s.orch.ReconcileStaff(ctx, staffSourceID)

	s.finishRun(ctx, run, outcomes, runErr)
	if runErr != nil {
		return nil, runErr
	}
	return outcomes, nil
}

func (s *syncService) RunAll(ctx context.Context, opts syncer.AllOptions) (*syncer.BatchResult, error) {
	run, err := s.syncRunRepo.Create(ctx, nil, &types.SyncRun{
		Scope:     types.SyncScopeAll,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record sync run: %w", err)
	}

	result, runErr := s.orch.ReconcileAll(ctx, opts)

	if result != nil {
		run.StaffCount = result.StaffProcessed
		if raw, err := json.Marshal(result.Totals); err == nil {
			run.Counts = raw
		}
		if len(result.Failures) > 0 {
			if raw, err := json.Marshal(result.Failures); err == nil {
				run.Failures = raw
			}
		}
		run.ErrorCount = result.TotalErrors() + len(result.Failures)
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := s.syncRunRepo.Update(ctx, nil, run); err != nil {
		s.log.Warn("Failed to finalize sync run audit row", "error", err, "sync_run_id", run.ID)
	}

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

func (s *syncService) finishRun(ctx context.Context, run *types.SyncRun, outcomes map[string]syncer.Outcome, runErr error) {
	if outcomes != nil {
		if raw, err := json.Marshal(outcomes); err == nil {
			run.Counts = raw
		}
		for _, o := range outcomes {
			run.ErrorCount += o.Errors
		}
	}
	if runErr != nil {
		if raw, err := json.Marshal([]string{runErr.Error()}); err == nil {
			run.Failures = raw
		}
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := s.syncRunRepo.Update(ctx, nil, run); err != nil {
		s.log.Warn("Failed to finalize sync run audit row", "error", err, "sync_run_id", run.ID)
	}
}

func (s *syncService) ListRuns(ctx context.Context, limit int) ([]*types.SyncRun, error) {
	return s.syncRunRepo.ListRecent(ctx, nil, limit)
}
