package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserImage points at the externally hosted profile image for one user.
type UserImage struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	UserIDRef string `gorm:"uniqueIndex"`
	ImageURL  string
	PublicID  string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *UserImage) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
