package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizResult is an immutable snapshot of one quiz attempt. Assignments
// holds the storage paths of the assignment files the quiz was generated
// from; DetailedResults holds the per-question breakdown.
type QuizResult struct {
	ID              string `gorm:"type:uuid;primaryKey"`
	StudentIDRef    string `gorm:"index"`
	ClassroomIDRef  string `gorm:"index"`
	Assignments     datatypes.JSON
	Score           int
	TotalQuestions  int
	Percentage      float64
	DetailedResults datatypes.JSON
	TakenAt         time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *QuizResult) BeforeCreate(tx *gorm.DB) (err error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.TakenAt.IsZero() {
		q.TakenAt = time.Now().UTC()
	}
	return nil
}

// QuestionResult is the shape of one DetailedResults entry.
type QuestionResult struct {
	Question       string `json:"question"`
	SelectedAnswer string `json:"selectedAnswer,omitempty"`
	CorrectAnswer  string `json:"correctAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
}
