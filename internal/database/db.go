package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/config"
	"github.com/classverse/classroom_backend/internal/models"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
	)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserImage{},
		&models.Classroom{},
		&models.ClassroomStudent{},
		&models.Assignment{},
		&models.ConferenceRoom{},
		&models.RoomParticipant{},
		&models.ChatMessage{},
		&models.Submission{},
		&models.EmotionEvent{},
		&models.QuizResult{},
		&models.QuizParticipation{},
		&models.EmotionCapture{},
		&models.ActivitySubmission{},
	)
}
