package controllers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/media"
	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
	"github.com/classverse/classroom_backend/internal/utils"
)

const profileImageFolder = "user_profile_images"

type AuthController struct {
	DB        *gorm.DB
	Media     media.Uploader
	JWTSecret string
	ExpiresIn time.Duration
}

// Registration arrives as multipart form data so the optional
// profileImage file can ride along.
type registerRequest struct {
	Username    string `form:"username" binding:"required"`
	Email       string `form:"email" binding:"required,email"`
	Password    string `form:"password" binding:"required,min=6"`
	PhoneNumber string `form:"phoneNumber" binding:"required"`
	Role        string `form:"role" binding:"required"`
	FirstName   string `form:"firstName"`
	LastName    string `form:"lastName"`
	University  string `form:"university"`
	Department  string `form:"department"`
	Designation string `form:"designation"`
	FullName    string `form:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// missingRoleFields returns which of the role's required profile fields
// are absent from the request.
func missingRoleFields(req registerRequest) []string {
	required := map[string]string{}
	switch req.Role {
	case models.RoleStudent:
		required = map[string]string{
			"firstName":  req.FirstName,
			"lastName":   req.LastName,
			"university": req.University,
			"department": req.Department,
		}
	case models.RoleTeacher:
		required = map[string]string{
			"firstName":   req.FirstName,
			"lastName":    req.LastName,
			"university":  req.University,
			"department":  req.Department,
			"designation": req.Designation,
		}
	case models.RoleAdmin:
		required = map[string]string{
			"fullName": req.FullName,
		}
	}
	var missing []string
	for name, val := range required {
		if val == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (a *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !IsValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	if missing := missingRoleFields(req); len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("field '%s' is required for role %s", missing[0], req.Role)})
		return
	}

	var existing models.User
	err := a.DB.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error
	if err == nil {
		msg := "username already exists"
		if existing.Email == req.Email {
			msg = "email already exists"
		}
		c.JSON(http.StatusConflict, gin.H{"error": msg})
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user := models.User{
		ID:          uuid.NewString(),
		Username:    req.Username,
		Email:       req.Email,
		Password:    hashed,
		PhoneNumber: req.PhoneNumber,
		Role:        req.Role,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		University:  req.University,
		Department:  req.Department,
		Designation: req.Designation,
		FullName:    req.FullName,
	}

	// Upload the profile image first; if anything after this fails the
	// remote asset is destroyed so the host holds no orphans.
	var uploaded *media.UploadResult
	if fh, ferr := c.FormFile("profileImage"); ferr == nil {
		if a.Media == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not available"})
			return
		}
		f, oerr := fh.Open()
		if oerr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable profile image"})
			return
		}
		defer f.Close()
		publicID := fmt.Sprintf("user_%s_%d", user.ID, time.Now().UnixMilli())
		uploaded, err = a.Media.Upload(c.Request.Context(), f, profileImageFolder, publicID)
		if err != nil {
			log.Printf("profile image upload for %s: %v", req.Username, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to upload profile image"})
			return
		}
	}

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if uploaded != nil {
			img := models.UserImage{
				UserIDRef: user.ID,
				ImageURL:  uploaded.SecureURL,
				PublicID:  uploaded.PublicID,
			}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if uploaded != nil {
			if derr := a.Media.Destroy(c.Request.Context(), uploaded.PublicID); derr != nil {
				log.Printf("orphaned profile image %s: %v", uploaded.PublicID, derr)
			}
		}
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email or username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	imageURL := ""
	if uploaded != nil {
		imageURL = uploaded.SecureURL
	}
	c.JSON(http.StatusCreated, userResponse(user, imageURL))
}

func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := a.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := middleware.SignToken(user, middleware.AuthConfig{JWTSecret: a.JWTSecret, ExpiresIn: a.ExpiresIn})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	maxAge := int(a.ExpiresIn.Seconds())
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(middleware.CookieNameForRole(user.Role), token, maxAge, "/", "", true, true)
	c.SetCookie(middleware.CookieGeneric, token, maxAge, "/", "", true, true)

	c.JSON(http.StatusOK, gin.H{
		"message":         "login success",
		"token":           token,
		"id":              user.ID,
		"email":           user.Email,
		"username":        user.Username,
		"role":            user.Role,
		"profileImageUrl": profileImageURL(a.DB, user.ID),
	})
}

// Logout clears every auth cookie; the token itself stays valid until it
// expires.
func (a *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	for _, name := range []string{middleware.CookieStudent, middleware.CookieTeacher, middleware.CookieAdmin, middleware.CookieGeneric} {
		c.SetCookie(name, "", -1, "/", "", true, true)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (a *AuthController) Profile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user, profileImageURL(a.DB, user.ID))})
}

type updateProfileRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	University  string `json:"university"`
	Department  string `json:"department"`
	Designation string `json:"designation"`
	FullName    string `json:"fullName"`
}

// UpdateProfile mutates the fields the caller's role carries; the role
// itself is immutable.
func (a *AuthController) UpdateProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Password != "" {
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}
		user.Password = hashed
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

	switch user.Role {
	case models.RoleStudent, models.RoleTeacher:
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
		if user.Role == models.RoleTeacher && req.Designation != "" {
			user.Designation = req.Designation
		}
	case models.RoleAdmin:
		if req.FullName != "" {
			user.FullName = req.FullName
		}
	}

	if err := a.DB.Save(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email or username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "profile updated",
		"user":    userResponse(user, profileImageURL(a.DB, user.ID)),
	})
}
