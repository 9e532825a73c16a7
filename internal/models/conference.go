package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Room lifecycle is one-way: Waiting -> Active -> Ended.
const (
	RoomStatusWaiting = "Waiting"
	RoomStatusActive  = "Active"
	RoomStatusEnded   = "Ended"
)

// RoomStatusRank orders statuses so transitions can be checked for
// direction; -1 means the status is unknown.
func RoomStatusRank(status string) int {
	switch status {
	case RoomStatusWaiting:
		return 0
	case RoomStatusActive:
		return 1
	case RoomStatusEnded:
		return 2
	}
	return -1
}

type ConferenceRoom struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Title     string
	HostIDRef string `gorm:"index"`
	Status    string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *ConferenceRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RoomStatusWaiting
	}
	return nil
}

// RoomParticipant maps a user to a conference room they may read/write.
type RoomParticipant struct {
	ID        uint   `gorm:"primaryKey"`
	RoomIDRef string `gorm:"uniqueIndex:uniq_user_room;index"`
	UserIDRef string `gorm:"uniqueIndex:uniq_user_room"`
	CreatedAt time.Time
}

// ChatMessage is one entry in a room's append-only chat log. The username
// is denormalized so the log renders without a user lookup. Entries are
// never edited or removed.
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey"`
	RoomIDRef string `gorm:"index"`
	UserIDRef string
	Username  string
	Message   string
	Timestamp time.Time `gorm:"index"`
}

// Submission records a file a participant submitted to a room.
type Submission struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	RoomIDRef        string `gorm:"index"`
	UserIDRef        string
	Username         string
	OriginalFileName string
	StoragePath      string
	PublicID         string
	FileType         string
	Description      string
	SubmittedAt      time.Time `gorm:"index"`
}

func (s *Submission) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// EmotionEvent is one detected-emotion sample logged against a room.
type EmotionEvent struct {
	ID         uint   `gorm:"primaryKey"`
	RoomIDRef  string `gorm:"index"`
	UserIDRef  string `gorm:"index"`
	Username   string
	Emotion    string
	Confidence float64
	Timestamp  time.Time `gorm:"index"`
}
