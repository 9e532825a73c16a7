package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/models"
)

// Auth cookies are role-named; login sets the role cookie plus the
// generic userToken so role-agnostic clients keep working.
const (
	CookieStudent = "studentToken"
	CookieTeacher = "teacherToken"
	CookieAdmin   = "adminToken"
	CookieGeneric = "userToken"
)

var authCookieNames = []string{CookieAdmin, CookieTeacher, CookieStudent, CookieGeneric}

type AuthConfig struct {
	JWTSecret string
	ExpiresIn time.Duration
}

type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// CookieNameForRole maps a user's role to the cookie their token lives in.
func CookieNameForRole(role string) string {
	switch role {
	case models.RoleAdmin:
		return CookieAdmin
	case models.RoleTeacher:
		return CookieTeacher
	case models.RoleStudent:
		return CookieStudent
	}
	return CookieGeneric
}

// SignToken issues a signed token carrying the user's id and role.
func SignToken(user models.User, cfg AuthConfig) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ExpiresIn)),
			Subject:   user.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func tokenFromCookies(c *gin.Context) string {
	for _, name := range authCookieNames {
		if v, err := c.Cookie(name); err == nil && v != "" {
			return v
		}
	}
	return ""
}

// Authenticated verifies the auth cookie, loads the user and stores it on
// the context under "user".
func Authenticated(db *gorm.DB, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFromCookies(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if err := db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		// A stale cookie from before a user was recreated must not grant
		// the old role.
		if claims.Role != user.Role {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// RequireRoles gates a route group to the given roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		uVal, ok := c.Get("user")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		user := uVal.(models.User)
		if _, ok := allowed[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role (" + user.Role + ") not authorized for this resource"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user the auth middleware stored on the context.
func CurrentUser(c *gin.Context) (models.User, bool) {
	uVal, ok := c.Get("user")
	if !ok {
		return models.User{}, false
	}
	user, ok := uVal.(models.User)
	return user, ok
}
