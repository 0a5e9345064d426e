package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/repos"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

var validActionKinds = map[string]struct{}{
	types.ActionKindNote:    {},
	types.ActionKindCall:    {},
	types.ActionKindMessage: {},
}

type CreateActionInput struct {
	Kind      string      `json:"kind"`
	Body      string      `json:"body"`
	StudentID *uuid.UUID  `json:"student_id,omitempty"`
	DeltaIDs  []uuid.UUID `json:"delta_ids,omitempty"`
}

type ActionService interface {
	Create(ctx context.Context, staffID uuid.UUID, input CreateActionInput) (*types.ActionRecord, error)
	ListForStaff(ctx context.Context, staffID uuid.UUID) ([]*types.ActionRecord, error)
}

type actionService struct {
	db         *gorm.DB
	log        *logger.Logger
	actionRepo repos.ActionRecordRepo
	deltaRepo  repos.DeltaRepo
}

func NewActionService(db *gorm.DB, baseLog *logger.Logger, actionRepo repos.ActionRecordRepo, deltaRepo repos.DeltaRepo) ActionService {
	serviceLog := baseLog.With("service", "ActionService")
	return &actionService{
		db:         db,
		log:        serviceLog,
		actionRepo: actionRepo,
		deltaRepo:  deltaRepo,
	}
}

func (s *actionService) Create(ctx context.Context, staffID uuid.UUID, input CreateActionInput) (*types.ActionRecord, error) {
	if _, ok := validActionKinds[input.Kind]; !ok {
		return nil, fmt.Errorf("invalid action kind %q", input.Kind)
	}
	if input.Body == "" {
		return nil, fmt.Errorf("action body is required")
	}

	record := &types.ActionRecord{
		StaffID:   staffID,
		StudentID: input.StudentID,
		Kind:      input.Kind,
		Body:      input.Body,
	}
	for _, deltaID := range input.DeltaIDs {
		delta, err := s.deltaRepo.GetByID(ctx, nil, deltaID)
		if err != nil {
			return nil, fmt.Errorf("load delta %s: %w", deltaID, err)
		}
		record.Deltas = append(record.Deltas, delta)
	}
	return s.actionRepo.Create(ctx, nil, record)
}

func (s *actionService) ListForStaff(ctx context.Context, staffID uuid.UUID) ([]*types.ActionRecord, error) {
	return s.actionRepo.ListForStaff(ctx, nil, staffID)
}
