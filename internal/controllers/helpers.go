package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/models"
)

// isUniqueViolation reports whether err is a postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// The sqlite driver used in tests reports constraint failures as a
	// plain gorm duplicated-key error.
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// profileImageURL returns the user's hosted image URL, or "" when none.
func profileImageURL(db *gorm.DB, userID string) string {
	var img models.UserImage
	if err := db.Where("user_id_ref = ?", userID).First(&img).Error; err != nil {
		return ""
	}
	return img.ImageURL
}

// userResponse shapes a user for JSON, including only the profile fields
// the role carries. The password hash never leaves the server.
func userResponse(u models.User, imageURL string) gin.H {
	resp := gin.H{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"phoneNumber": u.PhoneNumber,
		"role":        u.Role,
		"createdAt":   u.CreatedAt,
		"updatedAt":   u.UpdatedAt,
	}
	switch u.Role {
	case models.RoleStudent:
		resp["firstName"] = u.FirstName
		resp["lastName"] = u.LastName
		resp["university"] = u.University
		resp["department"] = u.Department
	case models.RoleTeacher:
		resp["firstName"] = u.FirstName
		resp["lastName"] = u.LastName
		resp["university"] = u.University
		resp["department"] = u.Department
		resp["designation"] = u.Designation
	case models.RoleAdmin:
		resp["fullName"] = u.FullName
	}
	if imageURL != "" {
		resp["profileImageUrl"] = imageURL
	} else {
		resp["profileImageUrl"] = nil
	}
	return resp
}

// userSummary is the compact shape embedded in room and classroom views.
func userSummary(u models.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}
}
