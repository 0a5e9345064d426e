package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/cache"
	"github.com/classtrack/schoolsync-backend/internal/deltas"
	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/repos"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

const missingCacheTTL = 5 * time.Minute

type DeltaService interface {
	ComputeMissing(ctx context.Context, staffID uuid.UUID, gradingPeriodID *uuid.UUID) (deltas.Result, error)
	MissingForGradebook(ctx context.Context, staffID, gradebookID uuid.UUID) ([]deltas.MissingEntry, error)
	AllMissingForUser(ctx context.Context, staffID uuid.UUID, gradingPeriodID *uuid.UUID) (map[string][]deltas.MissingEntry, error)
	ListUnsettled(ctx context.Context, staffID uuid.UUID) ([]*types.Delta, error)
	Settle(ctx context.Context, staffID, deltaID uuid.UUID) error
}

var ErrNotOwner = fmt.Errorf("staff member does not own this gradebook")

type deltaService struct {
	db            *gorm.DB
	log           *logger.Logger
	engine        *deltas.Engine
	deltaRepo     repos.DeltaRepo
	gradebookRepo repos.GradebookRepo
	cache         *cache.Cache
}

func NewDeltaService(db *gorm.DB, baseLog *logger.Logger, engine *deltas.Engine, deltaRepo repos.DeltaRepo, gradebookRepo repos.GradebookRepo, c *cache.Cache) DeltaService {
	serviceLog := baseLog.With("service", "DeltaService")
	return &deltaService{
		db:            db,
		log:           serviceLog,
		engine:        engine,
		deltaRepo:     deltaRepo,
		gradebookRepo: gradebookRepo,
		cache:         c,
	}
}

func missingGradebookKey(gradebookID uuid.UUID) string {
	return "missing:gradebook:" + gradebookID.String()
}

func missingUserKey(staffID uuid.UUID) string {
	return "missing:user:" + staffID.String()
}

func (s *deltaService) ComputeMissing(ctx context.Context, staffID uuid.UUID, gradingPeriodID *uuid.UUID) (deltas.Result, error) {
	res, err := s.engine.ComputeMissing(ctx, staffID, gradingPeriodID)
	if err != nil {
		return res, err
	}
	s.invalidate(ctx, staffID)
	return res, nil
}

// invalidate drops the cached summaries a recompute makes stale. Best
// effort: a cache failure is logged, never surfaced.
func (s *deltaService) invalidate(ctx context.Context, staffID uuid.UUID) {
	keys := []string{missingUserKey(staffID)}
	gradebooks, err := s.gradebookRepo.GetOwnedByStaff(ctx, nil, staffID)
	if err == nil {
		for _, g := range gradebooks {
			keys = append(keys, missingGradebookKey(g.ID))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("Failed to invalidate missing-summary cache", "error", err, "staff_id", staffID)
	}
}

func (s *deltaService) MissingForGradebook(ctx context.Context, staffID, gradebookID uuid.UUID) ([]deltas.MissingEntry, error) {
	owned, err := s.gradebookRepo.IsOwnedByStaff(ctx, nil, gradebookID, staffID)
	if err != nil {
		return nil, fmt.Errorf("check gradebook ownership: %w", err)
	}
	if !owned {
		return nil, ErrNotOwner
	}

	key := missingGradebookKey(gradebookID)
	var cached []deltas.MissingEntry
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	entries, err := s.engine.MissingForGradebook(ctx, gradebookID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, key, entries, missingCacheTTL); err != nil {
		s.log.Warn("Failed to cache missing summary", "error", err, "gradebook_id", gradebookID)
	}
	return entries, nil
}

func (s *deltaService) AllMissingForUser(ctx context.Context, staffID uuid.UUID, gradingPeriodID *uuid.UUID) (map[string][]deltas.MissingEntry, error) {
	// Only the unscoped summary is cached; period-scoped requests are rare
	// and go straight through.
	if gradingPeriodID == nil {
		var cached map[string][]deltas.MissingEntry
		if hit, err := s.cache.GetJSON(ctx, missingUserKey(staffID), &cached); err == nil && hit {
			return cached, nil
		}
	}

	out, err := s.engine.AllMissingForUser(ctx, staffID, gradingPeriodID)
	if err != nil {
		return nil, err
	}
	if gradingPeriodID == nil {
		if err := s.cache.SetJSON(ctx, missingUserKey(staffID), out, missingCacheTTL); err != nil {
			s.log.Warn("Failed to cache missing summary", "error", err, "staff_id", staffID)
		}
	}
	return out, nil
}

func (s *deltaService) ListUnsettled(ctx context.Context, staffID uuid.UUID) ([]*types.Delta, error) {
	return s.deltaRepo.ListUnsettledForStaff(ctx, nil, staffID)
}

func (s *deltaService) Settle(ctx context.Context, staffID, deltaID uuid.UUID) error {
	delta, err := s.deltaRepo.GetByID(ctx, nil, deltaID)
	if err != nil {
		return fmt.Errorf("load delta: %w", err)
	}
	if delta.GradebookID != nil {
		owned, err := s.gradebookRepo.IsOwnedByStaff(ctx, nil, *delta.GradebookID, staffID)
		if err != nil {
			return fmt.Errorf("check gradebook ownership: %w", err)
		}
		if !owned {
			return ErrNotOwner
		}
	}
	return s.deltaRepo.Settle(ctx, nil, deltaID)
}
