package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/classverse/classroom_backend/internal/config"
	"github.com/classverse/classroom_backend/internal/media"
	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
	"github.com/classverse/classroom_backend/internal/routes"
	"github.com/classverse/classroom_backend/internal/utils"
)

const testJWTSecret = "test-secret"

var dbCounter atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

func newTestRouter(t *testing.T, db *gorm.DB, uploader media.Uploader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{
		JWTSecret:        testJWTSecret,
		CookieExpireDays: "1",
	}
	routes.Register(r, db, cfg, uploader, nil)
	return r
}

func createUser(t *testing.T, db *gorm.DB, role, username string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	user := models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    hash,
		PhoneNumber: "0123456789",
		Role:        role,
	}
	switch role {
	case models.RoleStudent, models.RoleTeacher:
		user.FirstName = "Test"
		user.LastName = username
		user.University = "Test University"
		user.Department = "CSE"
		if role == models.RoleTeacher {
			user.Designation = "Lecturer"
		}
	case models.RoleAdmin:
		user.FullName = "Test " + username
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func authCookie(t *testing.T, user models.User) *http.Cookie {
	t.Helper()
	token, err := middleware.SignToken(user, middleware.AuthConfig{
		JWTSecret: testJWTSecret,
		ExpiresIn: time.Hour,
	})
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.CookieNameForRole(user.Role), Value: token}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doMultipart(t *testing.T, r *gin.Engine, method, path string, fields map[string]string, fileField, fileName, fileContent string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = io.Copy(fw, strings.NewReader(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// fakeUploader stands in for the media host. It records uploads and
// destroys, and can be told to fail either.
type fakeUploader struct {
	uploads    []string
	destroys   []string
	failUpload bool
}

func (f *fakeUploader) Upload(_ context.Context, r io.Reader, folder, publicID string) (*media.UploadResult, error) {
	if f.failUpload {
		return nil, fmt.Errorf("upload rejected")
	}
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	full := folder + "/" + publicID
	f.uploads = append(f.uploads, full)
	return &media.UploadResult{
		SecureURL:    "https://media.example.com/" + full,
		PublicID:     full,
		ResourceType: "raw",
	}, nil
}

func (f *fakeUploader) Destroy(_ context.Context, publicID string) error {
	f.destroys = append(f.destroys, publicID)
	return nil
}
