package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/media"
	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
)

const assignmentFolder = "classroom_assignments"

type ClassroomController struct {
	DB    *gorm.DB
	Media media.Uploader
}

type createClassroomRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func classroomResponse(cr models.Classroom) gin.H {
	return gin.H{
		"id":          cr.ID,
		"name":        cr.Name,
		"description": cr.Description,
		"teacherId":   cr.TeacherIDRef,
		"joinCode":    cr.JoinCode,
		"createdAt":   cr.CreatedAt,
	}
}

func (cc *ClassroomController) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req createClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := models.Classroom{
		Name:         req.Name,
		Description:  req.Description,
		TeacherIDRef: user.ID,
	}
	// Join codes collide rarely; retry with a fresh code when they do.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = cc.DB.Create(&room).Error
		if err == nil || !isUniqueViolation(err) {
			break
		}
		room.ID = ""
		room.JoinCode = ""
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "classroom created", "classroom": classroomResponse(room)})
}

type joinClassroomRequest struct {
	JoinCode string `json:"joinCode" binding:"required"`
}

func (cc *ClassroomController) JoinByCode(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req joinClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var room models.Classroom
	if err := cc.DB.Where("join_code = ?", strings.TrimSpace(req.JoinCode)).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "classroom not found for this join code"})
		return
	}
	if room.TeacherIDRef == user.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you are the teacher of this classroom"})
		return
	}

	enrollment := models.ClassroomStudent{
		UserIDRef:      user.ID,
		ClassroomIDRef: room.ID,
	}
	err := cc.DB.Where("user_id_ref = ? AND classroom_id_ref = ?", user.ID, room.ID).
		FirstOrCreate(&enrollment).Error
	if err != nil && !isUniqueViolation(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined classroom", "classroom": classroomResponse(room)})
}

// MyClassrooms lists classrooms the caller teaches plus the ones they are
// enrolled in.
func (cc *ClassroomController) MyClassrooms(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var rooms []models.Classroom
	sub := cc.DB.Model(&models.ClassroomStudent{}).
		Select("classroom_id_ref").
		Where("user_id_ref = ?", user.ID)
	if err := cc.DB.
		Where("teacher_id_ref = ? OR id IN (?)", user.ID, sub).
		Order("created_at DESC").
		Find(&rooms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, classroomResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"classrooms": out})
}

// isClassroomMember reports whether userID teaches or is enrolled in the
// classroom.
func (cc *ClassroomController) isClassroomMember(room models.Classroom, userID string) bool {
	if room.TeacherIDRef == userID {
		return true
	}
	var n int64
	cc.DB.Model(&models.ClassroomStudent{}).
		Where("classroom_id_ref = ? AND user_id_ref = ?", room.ID, userID).
		Count(&n)
	return n > 0
}

func (cc *ClassroomController) loadMemberClassroom(c *gin.Context) (models.Classroom, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return models.Classroom{}, false
	}
	id := c.Param("classroom_id")
	var room models.Classroom
	if err := cc.DB.Where("id = ?", id).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "classroom not found"})
		return models.Classroom{}, false
	}
	if !cc.isClassroomMember(room, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this classroom"})
		return models.Classroom{}, false
	}
	return room, true
}

func (cc *ClassroomController) Details(c *gin.Context) {
	room, ok := cc.loadMemberClassroom(c)
	if !ok {
		return
	}
	var teacher models.User
	resp := classroomResponse(room)
	if err := cc.DB.Where("id = ?", room.TeacherIDRef).First(&teacher).Error; err == nil {
		resp["teacher"] = userSummary(teacher)
	}
	var studentCount int64
	cc.DB.Model(&models.ClassroomStudent{}).
		Where("classroom_id_ref = ?", room.ID).
		Count(&studentCount)
	resp["studentCount"] = studentCount
	c.JSON(http.StatusOK, gin.H{"classroom": resp})
}

func (cc *ClassroomController) Participants(c *gin.Context) {
	room, ok := cc.loadMemberClassroom(c)
	if !ok {
		return
	}
	var students []models.User
	sub := cc.DB.Model(&models.ClassroomStudent{}).
		Select("user_id_ref").
		Where("classroom_id_ref = ?", room.ID)
	if err := cc.DB.Where("id IN (?)", sub).Order("username ASC").Find(&students).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		out = append(out, userSummary(s))
	}
	c.JSON(http.StatusOK, gin.H{"students": out})
}

func assignmentResponse(a models.Assignment) gin.H {
	return gin.H{
		"id":               a.ID,
		"classroomId":      a.ClassroomIDRef,
		"uploaderId":       a.UploaderIDRef,
		"title":            a.Title,
		"description":      a.Description,
		"originalFileName": a.OriginalFileName,
		"fileUrl":          a.StoragePath,
		"fileType":         a.FileType,
		"createdAt":        a.CreatedAt,
	}
}

func (cc *ClassroomController) ListAssignments(c *gin.Context) {
	room, ok := cc.loadMemberClassroom(c)
	if !ok {
		return
	}
	var assignments []models.Assignment
	if err := cc.DB.Where("classroom_id_ref = ?", room.ID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, assignmentResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"assignments": out})
}

// UploadAssignment stores the file on the media host first and only then
// records it. If the insert fails the remote asset is destroyed so the two
// stores stay consistent.
func (cc *ClassroomController) UploadAssignment(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id := c.Param("classroom_id")
	var room models.Classroom
	if err := cc.DB.Where("id = ?", id).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "classroom not found"})
		return
	}
	if room.TeacherIDRef != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the classroom teacher can upload assignments"})
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	fileHeader, err := c.FormFile("assignmentFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assignmentFile is required"})
		return
	}
	if cc.Media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()

	folder := fmt.Sprintf("%s/%s", assignmentFolder, room.ID)
	publicID := fmt.Sprintf("assignment_%s_%d", room.ID, time.Now().UnixMilli())
	uploaded, err := cc.Media.Upload(c.Request.Context(), src, folder, publicID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "file upload failed"})
		return
	}

	assignment := models.Assignment{
		ClassroomIDRef:   room.ID,
		UploaderIDRef:    user.ID,
		Title:            title,
		Description:      strings.TrimSpace(c.PostForm("description")),
		OriginalFileName: filepath.Base(fileHeader.Filename),
		StoragePath:      uploaded.SecureURL,
		PublicID:         uploaded.PublicID,
		FileType:         uploaded.ResourceType,
	}
	if err := cc.DB.Create(&assignment).Error; err != nil {
		if derr := cc.Media.Destroy(context.Background(), uploaded.PublicID); derr != nil {
			log.Printf("orphaned assignment file %s: %v", uploaded.PublicID, derr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "assignment uploaded", "assignment": assignmentResponse(assignment)})
}
