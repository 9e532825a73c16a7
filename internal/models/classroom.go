package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/utils"
)

const joinCodeLength = 8

type Classroom struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Name         string
	Description  string
	TeacherIDRef string `gorm:"index"`
	JoinCode     string `gorm:"uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (cl *Classroom) BeforeCreate(tx *gorm.DB) (err error) {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	if cl.JoinCode == "" {
		cl.JoinCode, err = utils.GenerateCode(joinCodeLength)
	}
	return err
}

// ClassroomStudent maps an enrolled student to a classroom.
type ClassroomStudent struct {
	ID             uint   `gorm:"primaryKey"`
	UserIDRef      string `gorm:"uniqueIndex:uniq_student_classroom"`
	ClassroomIDRef string `gorm:"uniqueIndex:uniq_student_classroom;index"`
	CreatedAt      time.Time
}

// Assignment is a file the classroom teacher published to the class.
type Assignment struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	ClassroomIDRef   string `gorm:"index"`
	UploaderIDRef    string
	Title            string
	Description      string
	OriginalFileName string
	StoragePath      string
	PublicID         string
	FileType         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
