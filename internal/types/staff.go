package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff is the internal user-profile record for a teacher or other staff
// member. Rows pulled from the SIS mirror carry a SourceObjectID; rows
// created locally (e.g. console accounts) do not.
type Staff struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceObjectID *int64    `gorm:"column:source_object_id;uniqueIndex" json:"source_object_id,omitempty"`
	Email          string    `gorm:"column:email;index" json:"email"`
	Password       string    `gorm:"column:password" json:"-"`
	FirstName      string    `gorm:"column:first_name" json:"first_name"`
	LastName       string    `gorm:"column:last_name" json:"last_name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Staff) TableName() string {
	return "user_profile"
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
