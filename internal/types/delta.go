package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeltaKindMissing    = "missing"
	DeltaKindCategory   = "category"
	DeltaKindAttendance = "attendance"
)

// Delta is a detected change requiring staff attention. Settled deltas are
// kept for history, never deleted.
type Delta struct {
	ID          uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind        string                     `gorm:"column:kind;index" json:"kind"`
	StudentID   uuid.UUID                  `gorm:"type:uuid;column:student_id;index" json:"student_id"`
	GradebookID *uuid.UUID                 `gorm:"type:uuid;column:gradebook_id;index" json:"gradebook_id,omitempty"`
	Settled     bool                       `gorm:"column:settled;index" json:"settled"`
	Missing     []*MissingAssignmentRecord `gorm:"foreignKey:DeltaID" json:"missing,omitempty"`
	CreatedAt   time.Time                  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Delta) TableName() string { return "delta" }

func (d *Delta) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// MissingAssignmentRecord is one missing assignment inside a missing-kind
// delta, with the date it was observed missing for audit purposes.
type MissingAssignmentRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DeltaID      uuid.UUID `gorm:"type:uuid;column:delta_id;index" json:"delta_id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;column:assignment_id;index" json:"assignment_id"`
	MissingOn    time.Time `gorm:"column:missing_on" json:"missing_on"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (MissingAssignmentRecord) TableName() string { return "missing_assignment_record" }

func (m *MissingAssignmentRecord) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

const (
	ActionKindNote    = "note"
	ActionKindCall    = "call"
	ActionKindMessage = "message"
)

// ActionRecord is a free-text staff log entry, optionally linked to the
// deltas it responds to.
type ActionRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StaffID   uuid.UUID  `gorm:"type:uuid;column:staff_id;index" json:"staff_id"`
	StudentID *uuid.UUID `gorm:"type:uuid;column:student_id;index" json:"student_id,omitempty"`
	Kind      string     `gorm:"column:kind" json:"kind"`
	Body      string     `gorm:"column:body" json:"body"`
	Deltas    []*Delta   `gorm:"many2many:action_record_delta" json:"deltas,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ActionRecord) TableName() string { return "action_record" }

func (a *ActionRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
