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

const submissionFolder = "conference_submissions"

type ConferenceController struct {
	DB    *gorm.DB
	Media media.Uploader
}

type createRoomRequest struct {
	Title string `json:"title" binding:"required"`
}

func roomResponse(r models.ConferenceRoom) gin.H {
	return gin.H{
		"id":        r.ID,
		"title":     r.Title,
		"hostId":    r.HostIDRef,
		"status":    r.Status,
		"createdAt": r.CreatedAt,
	}
}

// CreateRoom opens a new conference room. The host becomes its first
// participant in the same transaction so the room is never host-less.
func (cf *ConferenceController) CreateRoom(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room := models.ConferenceRoom{
		Title:     strings.TrimSpace(req.Title),
		HostIDRef: user.ID,
	}
	err := cf.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		return tx.Create(&models.RoomParticipant{
			RoomIDRef: room.ID,
			UserIDRef: user.ID,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "room created", "room": roomResponse(room)})
}

// ListRooms returns rooms that have not ended, newest first, with a short
// host summary attached.
func (cf *ConferenceController) ListRooms(c *gin.Context) {
	var rooms []models.ConferenceRoom
	if err := cf.DB.Where("status <> ?", models.RoomStatusEnded).
		Order("created_at DESC").
		Find(&rooms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hostIDs := make([]string, 0, len(rooms))
	for _, r := range rooms {
		hostIDs = append(hostIDs, r.HostIDRef)
	}
	hosts := map[string]models.User{}
	if len(hostIDs) > 0 {
		var users []models.User
		cf.DB.Where("id IN ?", hostIDs).Find(&users)
		for _, u := range users {
			hosts[u.ID] = u
		}
	}

	out := make([]gin.H, 0, len(rooms))
	for _, r := range rooms {
		resp := roomResponse(r)
		if h, ok := hosts[r.HostIDRef]; ok {
			resp["host"] = userSummary(h)
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

func (cf *ConferenceController) isParticipant(roomID, userID string) bool {
	var n int64
	cf.DB.Model(&models.RoomParticipant{}).
		Where("room_id_ref = ? AND user_id_ref = ?", roomID, userID).
		Count(&n)
	return n > 0
}

func (cf *ConferenceController) loadRoom(c *gin.Context) (models.ConferenceRoom, bool) {
	id := c.Param("room_id")
	var room models.ConferenceRoom
	if err := cf.DB.Where("id = ?", id).First(&room).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return models.ConferenceRoom{}, false
	}
	return room, true
}

// loadRoomForParticipant resolves the room and rejects callers that never
// joined it.
func (cf *ConferenceController) loadRoomForParticipant(c *gin.Context) (models.ConferenceRoom, models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return models.ConferenceRoom{}, models.User{}, false
	}
	room, ok := cf.loadRoom(c)
	if !ok {
		return models.ConferenceRoom{}, models.User{}, false
	}
	if !cf.isParticipant(room.ID, user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this room"})
		return models.ConferenceRoom{}, models.User{}, false
	}
	return room, user, true
}

func (cf *ConferenceController) GetRoom(c *gin.Context) {
	room, _, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	var participants []models.User
	sub := cf.DB.Model(&models.RoomParticipant{}).
		Select("user_id_ref").
		Where("room_id_ref = ?", room.ID)
	cf.DB.Where("id IN (?)", sub).Find(&participants)

	out := make([]gin.H, 0, len(participants))
	for _, p := range participants {
		out = append(out, userSummary(p))
	}
	resp := roomResponse(room)
	resp["participants"] = out
	c.JSON(http.StatusOK, gin.H{"room": resp})
}

// JoinRoom enrolls the caller as a participant. Joining twice is a no-op;
// an ended room cannot be joined.
func (cf *ConferenceController) JoinRoom(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	room, ok := cf.loadRoom(c)
	if !ok {
		return
	}
	if room.Status == models.RoomStatusEnded {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room has ended"})
		return
	}

	participant := models.RoomParticipant{
		RoomIDRef: room.ID,
		UserIDRef: user.ID,
	}
	err := cf.DB.Where("room_id_ref = ? AND user_id_ref = ?", room.ID, user.ID).
		FirstOrCreate(&participant).Error
	if err != nil && !isUniqueViolation(err) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "joined room", "room": roomResponse(room)})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves the room forward through its lifecycle. Only the host
// may change status and it never moves backwards.
func (cf *ConferenceController) UpdateStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	room, ok := cf.loadRoom(c)
	if !ok {
		return
	}
	if room.HostIDRef != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can change room status"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	next := req.Status
	if next != models.RoomStatusActive && next != models.RoomStatusEnded {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Active or Ended"})
		return
	}
	if models.RoomStatusRank(next) <= models.RoomStatusRank(room.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot change status from %s to %s", room.Status, next)})
		return
	}

	if err := cf.DB.Model(&room).Update("status", next).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	room.Status = next
	c.JSON(http.StatusOK, gin.H{"message": "status updated", "room": roomResponse(room)})
}

func chatMessageResponse(m models.ChatMessage) gin.H {
	return gin.H{
		"userId":    m.UserIDRef,
		"username":  m.Username,
		"message":   m.Message,
		"timestamp": m.Timestamp,
	}
}

func (cf *ConferenceController) GetChat(c *gin.Context) {
	room, _, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	var messages []models.ChatMessage
	if err := cf.DB.Where("room_id_ref = ?", room.ID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessageResponse(m))
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.ID, "chatLog": out})
}

type postChatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (cf *ConferenceController) PostChat(c *gin.Context) {
	room, user, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	var req postChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := models.ChatMessage{
		RoomIDRef: room.ID,
		UserIDRef: user.ID,
		Username:  user.Username,
		Message:   req.Message,
		Timestamp: time.Now().UTC(),
	}
	if err := cf.DB.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "chat message saved", "chat": chatMessageResponse(entry)})
}

func submissionResponse(s models.Submission) gin.H {
	return gin.H{
		"id":               s.ID,
		"userId":           s.UserIDRef,
		"username":         s.Username,
		"originalFileName": s.OriginalFileName,
		"fileUrl":          s.StoragePath,
		"fileType":         s.FileType,
		"description":      s.Description,
		"submittedAt":      s.SubmittedAt,
	}
}

func (cf *ConferenceController) GetSubmissions(c *gin.Context) {
	room, _, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	var submissions []models.Submission
	if err := cf.DB.Where("room_id_ref = ?", room.ID).
		Order("submitted_at DESC").
		Find(&submissions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(submissions))
	for _, s := range submissions {
		out = append(out, submissionResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.ID, "submissions": out})
}

// PostSubmission uploads the caller's file to the media host and records it
// against the room.
func (cf *ConferenceController) PostSubmission(c *gin.Context) {
	room, user, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("submissionFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submissionFile is required"})
		return
	}
	if cf.Media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage is not configured"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer src.Close()

	folder := fmt.Sprintf("%s/%s", submissionFolder, room.ID)
	publicID := fmt.Sprintf("submission_%s_%d", user.ID, time.Now().UnixMilli())
	uploaded, err := cf.Media.Upload(c.Request.Context(), src, folder, publicID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "file upload failed"})
		return
	}

	submission := models.Submission{
		RoomIDRef:        room.ID,
		UserIDRef:        user.ID,
		Username:         user.Username,
		OriginalFileName: filepath.Base(fileHeader.Filename),
		StoragePath:      uploaded.SecureURL,
		PublicID:         uploaded.PublicID,
		FileType:         uploaded.ResourceType,
		Description:      strings.TrimSpace(c.PostForm("description")),
		SubmittedAt:      time.Now().UTC(),
	}
	if err := cf.DB.Create(&submission).Error; err != nil {
		if derr := cf.Media.Destroy(context.Background(), uploaded.PublicID); derr != nil {
			log.Printf("orphaned submission file %s: %v", uploaded.PublicID, derr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "submission saved", "submission": submissionResponse(submission)})
}

func emotionResponse(e models.EmotionEvent) gin.H {
	return gin.H{
		"userId":     e.UserIDRef,
		"username":   e.Username,
		"emotion":    e.Emotion,
		"confidence": e.Confidence,
		"timestamp":  e.Timestamp,
	}
}

type postEmotionRequest struct {
	Emotion    string         `json:"emotion" binding:"required"`
	Confidence FlexibleNumber `json:"confidence"`
}

func (cf *ConferenceController) PostEmotion(c *gin.Context) {
	room, user, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	var req postEmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := models.EmotionEvent{
		RoomIDRef:  room.ID,
		UserIDRef:  user.ID,
		Username:   user.Username,
		Emotion:    req.Emotion,
		Confidence: req.Confidence.Float64(),
		Timestamp:  time.Now().UTC(),
	}
	if err := cf.DB.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "emotion recorded", "emotion": emotionResponse(event)})
}

// GetEmotions returns a room's emotion log, optionally narrowed to one user
// via ?userId=.
func (cf *ConferenceController) GetEmotions(c *gin.Context) {
	room, _, ok := cf.loadRoomForParticipant(c)
	if !ok {
		return
	}
	q := cf.DB.Where("room_id_ref = ?", room.ID)
	if userID := strings.TrimSpace(c.Query("userId")); userID != "" {
		q = q.Where("user_id_ref = ?", userID)
	}
	var events []models.EmotionEvent
	if err := q.Order("timestamp ASC, id ASC").Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(events))
	for _, e := range events {
		out = append(out, emotionResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.ID, "emotionLog": out})
}
