package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gradebook struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	SectionID      *uuid.UUID `gorm:"type:uuid;column:section_id;index" json:"section_id,omitempty"`
	UserProfileID  *uuid.UUID `gorm:"type:uuid;column:user_profile_id;index" json:"user_profile_id,omitempty"`
	Name           string     `gorm:"column:name" json:"name"`
	Owners         []*Staff   `gorm:"many2many:gradebook_owner" json:"owners,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Gradebook) TableName() string { return "gradebook" }

func (g *Gradebook) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type Category struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	GradebookID    *uuid.UUID `gorm:"type:uuid;column:gradebook_id;index" json:"gradebook_id,omitempty"`
	Name           string     `gorm:"column:name" json:"name"`
	Weight         float64    `gorm:"column:weight" json:"weight"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Category) TableName() string { return "category" }

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Assignment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	GradebookID    *uuid.UUID `gorm:"type:uuid;column:gradebook_id;index" json:"gradebook_id,omitempty"`
	CategoryID     *uuid.UUID `gorm:"type:uuid;column:category_id;index" json:"category_id,omitempty"`
	Name           string     `gorm:"column:name" json:"name"`
	DueDate        *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`
	PointsPossible float64    `gorm:"column:points_possible" json:"points_possible"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Assignment) TableName() string { return "assignment" }

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ScoreCache mirrors the SIS "current state" of one student's standing on
// one assignment. The delta engine reads it; only the reconciler writes it.
type ScoreCache struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64     `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	GradebookID    *uuid.UUID `gorm:"type:uuid;column:gradebook_id;uniqueIndex:uniq_score_cache_cell" json:"gradebook_id,omitempty"`
	AssignmentID   *uuid.UUID `gorm:"type:uuid;column:assignment_id;uniqueIndex:uniq_score_cache_cell" json:"assignment_id,omitempty"`
	StudentID      *uuid.UUID `gorm:"type:uuid;column:student_id;uniqueIndex:uniq_score_cache_cell" json:"student_id,omitempty"`
	IsMissing      bool       `gorm:"column:is_missing;index" json:"is_missing"`
	MissingOn      *time.Time `gorm:"column:missing_on" json:"missing_on,omitempty"`
	Points         float64    `gorm:"column:points" json:"points"`
	Score          float64    `gorm:"column:score" json:"score"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ScoreCache) TableName() string { return "score_cache" }

func (s *ScoreCache) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
