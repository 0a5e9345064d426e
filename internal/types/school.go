package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Site struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64    `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	Name           string    `gorm:"column:name" json:"name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Site) TableName() string { return "site" }

func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Term struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	SiteID         *uuid.UUID `gorm:"type:uuid;column:site_id;index" json:"site_id,omitempty"`
	Name           string     `gorm:"column:name" json:"name"`
	StartDate      *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate        *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Term) TableName() string { return "term" }

func (t *Term) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// GradingPeriod is a bounded date window within a term; "active" means the
// current date falls inside the window.
type GradingPeriod struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	TermID         *uuid.UUID `gorm:"type:uuid;column:term_id;index" json:"term_id,omitempty"`
	Name           string     `gorm:"column:name" json:"name"`
	StartDate      *time.Time `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate        *time.Time `gorm:"column:end_date" json:"end_date,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GradingPeriod) TableName() string { return "grading_period" }

func (g *GradingPeriod) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type Section struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID  *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	SiteID          *uuid.UUID `gorm:"type:uuid;column:site_id;index" json:"site_id,omitempty"`
	TermID          *uuid.UUID `gorm:"type:uuid;column:term_id;index" json:"term_id,omitempty"`
	GradingPeriodID *uuid.UUID `gorm:"type:uuid;column:grading_period_id;index" json:"grading_period_id,omitempty"`
	Name            string     `gorm:"column:name" json:"name"`
	Period          string     `gorm:"column:period" json:"period"`
	CourseName      string     `gorm:"column:course_name" json:"course_name"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Section) TableName() string { return "section" }

func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Student struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64    `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	FirstName      string    `gorm:"column:first_name" json:"first_name"`
	LastName       string    `gorm:"column:last_name" json:"last_name"`
	StudentNumber  string    `gorm:"column:student_number;index" json:"student_number"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Student) TableName() string { return "student" }

func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Enrollment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	SectionID      *uuid.UUID `gorm:"type:uuid;column:section_id;uniqueIndex:uniq_enrollment_section_student" json:"section_id,omitempty"`
	StudentID      *uuid.UUID `gorm:"type:uuid;column:student_id;uniqueIndex:uniq_enrollment_section_student" json:"student_id,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
