package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SyncScopeStaff = "staff"
	SyncScopeAll   = "all"
)

// SyncRun is the audit record for one top-level reconciliation pass. Counts
// holds the per-entity-type created/error totals as JSON; Failures holds the
// staff members whose pipelines errored without aborting the batch.
type SyncRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Scope      string         `gorm:"column:scope" json:"scope"`
	StaffCount int            `gorm:"column:staff_count" json:"staff_count"`
	Counts     datatypes.JSON `gorm:"column:counts" json:"counts"`
	Failures   datatypes.JSON `gorm:"column:failures" json:"failures,omitempty"`
	ErrorCount int            `gorm:"column:error_count" json:"error_count"`
	StartedAt  time.Time      `gorm:"column:started_at" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (SyncRun) TableName() string { return "sync_run" }

func (s *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
