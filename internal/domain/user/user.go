package user

import (
	"time"

	"gorm.io/gorm"
)

// User is the learner identity the progress engine enumerates. IDs come from
// the upstream auth provider and are opaque strings.
type User struct {
	ID          string `gorm:"type:varchar(128);primaryKey" json:"id"`
	DisplayName string `gorm:"column:display_name" json:"display_name"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
