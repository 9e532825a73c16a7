package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/models"
)

type AdminController struct {
	DB *gorm.DB
}

// ListUsers serves the admin user table with pagination, sorting and
// role/text filters.
func (ac *AdminController) ListUsers(c *gin.Context) {
	limit := 20
	page := 1
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	sortBy := strings.ToLower(c.DefaultQuery("sort_by", "created_at"))
	sortDir := strings.ToUpper(c.DefaultQuery("sort_dir", "DESC"))
	if sortDir != "ASC" && sortDir != "DESC" {
		sortDir = "DESC"
	}
	allowedSorts := map[string]string{
		"created_at": "created_at",
		"username":   "username",
		"email":      "email",
		"role":       "role",
	}
	sortCol, ok := allowedSorts[sortBy]
	if !ok {
		sortCol = "created_at"
	}
	order := fmt.Sprintf("%s %s", sortCol, sortDir)

	role := strings.TrimSpace(c.Query("role"))
	if role != "" && !IsValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role filter"})
		return
	}
	qText := strings.TrimSpace(c.Query("q"))

	base := ac.DB.Model(&models.User{})
	if role != "" {
		base = base.Where("role = ?", role)
	}
	if qText != "" {
		like := "%" + qText + "%"
		base = base.Where("username ILIKE ? OR email ILIKE ?", like, like)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var users []models.User
	offset := (page - 1) * limit
	if err := base.Order(order).Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u, ""))
	}
	meta := gin.H{
		"total":    total,
		"limit":    limit,
		"page":     page,
		"sort_by":  sortCol,
		"sort_dir": sortDir,
	}
	if role != "" {
		meta["role"] = role
	}
	if qText != "" {
		meta["q"] = qText
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

func (ac *AdminController) GetUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("user_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user models.User
	if err := ac.DB.Where("id = ?", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, userResponse(user, profileImageURL(ac.DB, user.ID)))
}

type adminUpdateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	University  string `json:"university"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	FullName    string `json:"fullName"`
}

// UpdateUser lets an admin edit any user's profile. Role stays immutable
// even here; a role change request is rejected outright.
func (ac *AdminController) UpdateUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("user_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var user models.User
	if err := ac.DB.Where("id = ?", id).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	var req adminUpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != "" && req.Role != user.Role {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role is immutable"})
		return
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = req.PhoneNumber
	}
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.University != "" {
		user.University = req.University
	}
	if req.Department != "" {
		user.Department = req.Department
	}
	if req.Designation != "" {
		user.Designation = req.Designation
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}

	if err := ac.DB.Save(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email or username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated", "user": userResponse(user, "")})
}

func (ac *AdminController) DeleteUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("user_id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id_ref = ?", id).Delete(&models.UserImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id_ref = ?", id).Delete(&models.ClassroomStudent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id_ref = ?", id).Delete(&models.RoomParticipant{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.User{}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
