package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizParticipation records the marks a student scored in an in-class quiz.
type QuizParticipation struct {
	ID           uint   `gorm:"primaryKey"`
	StudentIDRef string `gorm:"index"`
	Marks        float64
	Timestamp    time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// EmotionCapture is a per-student emotion sample taken outside any
// conference room (the dashboard webcam feed).
type EmotionCapture struct {
	ID           uint   `gorm:"primaryKey"`
	StudentIDRef string `gorm:"index"`
	Emotion      string
	Timestamp    time.Time `gorm:"index"`
	CreatedAt    time.Time
}

const (
	SubmissionStatusPending   = "Pending"
	SubmissionStatusSubmitted = "Submitted"
)

// ActivitySubmission is a student's answer file for a classroom assignment.
type ActivitySubmission struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	StudentIDRef   string `gorm:"index"`
	ClassroomIDRef string `gorm:"index"`
	Status         string
	SubmittedAt    *time.Time
	FileURL        string
	PublicID       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *ActivitySubmission) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = SubmissionStatusPending
	}
	return nil
}
