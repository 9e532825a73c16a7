package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
)

type QuizController struct {
	DB *gorm.DB
}

type saveQuizRequest struct {
	ClassroomID     string                  `json:"classroomId" binding:"required"`
	Assignments     []string                `json:"assignments" binding:"required"`
	Score           int                     `json:"score"`
	TotalQuestions  int                     `json:"totalQuestions" binding:"required"`
	DetailedResults []models.QuestionResult `json:"detailedResults"`
}

func quizResultResponse(r models.QuizResult) gin.H {
	var assignments []string
	_ = json.Unmarshal(r.Assignments, &assignments)
	var details []models.QuestionResult
	_ = json.Unmarshal(r.DetailedResults, &details)
	return gin.H{
		"id":              r.ID,
		"studentId":       r.StudentIDRef,
		"classroomId":     r.ClassroomIDRef,
		"assignments":     assignments,
		"score":           r.Score,
		"totalQuestions":  r.TotalQuestions,
		"percentage":      r.Percentage,
		"detailedResults": details,
		"takenAt":         r.TakenAt,
	}
}

// Save records a finished quiz attempt. The student identity always comes
// from the authenticated session, never the request body.
func (qc *QuizController) Save(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req saveQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TotalQuestions <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totalQuestions must be positive"})
		return
	}

	assignmentsJSON, err := json.Marshal(req.Assignments)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignments"})
		return
	}
	detailsJSON, err := json.Marshal(req.DetailedResults)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid detailedResults"})
		return
	}

	result := models.QuizResult{
		StudentIDRef:    user.ID,
		ClassroomIDRef:  req.ClassroomID,
		Assignments:     datatypes.JSON(assignmentsJSON),
		Score:           req.Score,
		TotalQuestions:  req.TotalQuestions,
		Percentage:      float64(req.Score) / float64(req.TotalQuestions) * 100,
		DetailedResults: datatypes.JSON(detailsJSON),
	}
	if err := qc.DB.Create(&result).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "quiz result saved", "result": quizResultResponse(result)})
}

// containsAll reports whether every wanted id appears in the stored
// assignment list.
func containsAll(stored datatypes.JSON, wanted []string) bool {
	var have []string
	if err := json.Unmarshal(stored, &have); err != nil {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, id := range have {
		set[id] = struct{}{}
	}
	for _, id := range wanted {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// History lists the caller's past attempts in a classroom, newest first.
// An optional ?assignments= comma list narrows it to attempts that cover
// every listed assignment.
func (qc *QuizController) History(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	classroomID := c.Param("classroom_id")

	// Assignment entries are opaque storage paths, so the filter takes
	// them as-is; only blanks are dropped.
	var wanted []string
	if raw := strings.TrimSpace(c.Query("assignments")); raw != "" {
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				wanted = append(wanted, item)
			}
		}
	}

	var results []models.QuizResult
	if err := qc.DB.Where("student_id_ref = ? AND classroom_id_ref = ?", user.ID, classroomID).
		Order("taken_at DESC").
		Find(&results).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		if len(wanted) > 0 && !containsAll(r.Assignments, wanted) {
			continue
		}
		out = append(out, quizResultResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}
