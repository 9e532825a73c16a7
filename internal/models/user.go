package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "Student"
	RoleTeacher = "Teacher"
	RoleAdmin   = "Admin"
)

// User is a single table for all roles, discriminated by Role.
// Which profile fields are required depends on the role and is enforced
// at registration time; Role never changes after creation.
type User struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Username    string `gorm:"uniqueIndex"`
	Email       string `gorm:"uniqueIndex"`
	Password    string
	PhoneNumber string
	Role        string `gorm:"index"`

	// Student/Teacher profile
	FirstName  string
	LastName   string
	University string
	Department string
	// Teacher only
	Designation string
	// Admin only
	FullName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName returns the name shown in rosters and chat logs.
func (u *User) DisplayName() string {
	if u.Role == RoleAdmin && u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
