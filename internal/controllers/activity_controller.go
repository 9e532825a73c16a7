package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/media"
	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
)

const activityFolder = "student_activity_uploads"

// ActivityController serves the per-student activity feed used by teacher
// dashboards: quiz marks, emotion captures and assignment hand-ins.
type ActivityController struct {
	DB    *gorm.DB
	Media media.Uploader
}

type submitQuizRequest struct {
	Marks FlexibleNumber `json:"marks" binding:"required"`
}

func (ac *ActivityController) SubmitQuiz(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := models.QuizParticipation{
		StudentIDRef: user.ID,
		Marks:        req.Marks.Float64(),
		Timestamp:    time.Now().UTC(),
	}
	if err := ac.DB.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "quiz participation recorded",
		"quiz":    gin.H{"marks": entry.Marks, "timestamp": entry.Timestamp},
	})
}

func (ac *ActivityController) GetQuizResults(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var entries []models.QuizParticipation
	if err := ac.DB.Where("student_id_ref = ?", user.ID).
		Order("timestamp DESC").
		Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{"marks": e.Marks, "timestamp": e.Timestamp})
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": out})
}

type saveEmotionRequest struct {
	Emotion   string     `json:"emotion" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

func (ac *ActivityController) SaveEmotion(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req saveEmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	entry := models.EmotionCapture{
		StudentIDRef: user.ID,
		Emotion:      req.Emotion,
		Timestamp:    ts,
	}
	if err := ac.DB.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "emotion saved",
		"emotion": gin.H{"emotion": entry.Emotion, "timestamp": entry.Timestamp},
	})
}

// GetLatestEmotions returns the newest capture per requested student. Used
// by teachers to see the current mood of a class at a glance.
func (ac *ActivityController) GetLatestEmotions(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("studentIds"))
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentIds is required"})
		return
	}
	ids, err := parseIDList(strings.Split(raw, ","))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "studentIds is required"})
		return
	}

	var captures []models.EmotionCapture
	if err := ac.DB.Where("student_id_ref IN ?", ids).
		Order("timestamp DESC").
		Find(&captures).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Rows arrive newest first, so the first row seen per student wins.
	latest := make(map[string]models.EmotionCapture, len(ids))
	for _, e := range captures {
		if _, seen := latest[e.StudentIDRef]; !seen {
			latest[e.StudentIDRef] = e
		}
	}

	out := make([]gin.H, 0, len(latest))
	for _, id := range ids {
		if e, ok := latest[id]; ok {
			out = append(out, gin.H{
				"studentId": e.StudentIDRef,
				"emotion":   e.Emotion,
				"timestamp": e.Timestamp,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"emotions": out})
}

func activitySubmissionResponse(s models.ActivitySubmission) gin.H {
	return gin.H{
		"id":          s.ID,
		"studentId":   s.StudentIDRef,
		"classroomId": s.ClassroomIDRef,
		"status":      s.Status,
		"submittedAt": s.SubmittedAt,
		"fileUrl":     s.FileURL,
	}
}

// SubmitAssignment uploads a student's hand-in and marks it Submitted.
func (ac *ActivityController) SubmitAssignment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	classroomID := strings.TrimSpace(c.PostForm("classroomId"))
	if classroomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "classroomId is required"})
		return
	}
	fileHeader, err := c.FormFile("assignmentFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assignmentFile is required"})
		return
	}
	if ac.Media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()

	publicID := fmt.Sprintf("activity_%s_%d", user.ID, time.Now().UnixMilli())
	uploaded, err := ac.Media.Upload(c.Request.Context(), src, activityFolder, publicID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "file upload failed"})
		return
	}

	now := time.Now().UTC()
	submission := models.ActivitySubmission{
		StudentIDRef:   user.ID,
		ClassroomIDRef: classroomID,
		Status:         models.SubmissionStatusSubmitted,
		SubmittedAt:    &now,
		FileURL:        uploaded.SecureURL,
		PublicID:       uploaded.PublicID,
	}
	if err := ac.DB.Create(&submission).Error; err != nil {
		if derr := ac.Media.Destroy(context.Background(), uploaded.PublicID); derr != nil {
			log.Printf("orphaned activity file %s: %v", uploaded.PublicID, derr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "assignment submitted",
		"submission": activitySubmissionResponse(submission),
	})
}

func (ac *ActivityController) GetAssignments(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var submissions []models.ActivitySubmission
	if err := ac.DB.Where("student_id_ref = ?", user.ID).
		Order("created_at DESC").
		Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(submissions))
	for _, s := range submissions {
		out = append(out, activitySubmissionResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"assignments": out})
}
