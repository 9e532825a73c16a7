package routes

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/classverse/classroom_backend/internal/config"
	"github.com/classverse/classroom_backend/internal/controllers"
	"github.com/classverse/classroom_backend/internal/media"
	"github.com/classverse/classroom_backend/internal/middleware"
	"github.com/classverse/classroom_backend/internal/models"
	"github.com/classverse/classroom_backend/internal/ws"
)

func Register(r *gin.Engine, db *gorm.DB, cfg *config.Config, uploader media.Uploader, hub *ws.ConferenceHub) {
	days, err := strconv.Atoi(cfg.CookieExpireDays)
	if err != nil || days <= 0 {
		days = 30
	}
	expiresIn := time.Duration(days) * 24 * time.Hour

	authCtrl := &controllers.AuthController{DB: db, Media: uploader, JWTSecret: cfg.JWTSecret, ExpiresIn: expiresIn}
	adminCtrl := &controllers.AdminController{DB: db}
	classroomCtrl := &controllers.ClassroomController{DB: db, Media: uploader}
	conferenceCtrl := &controllers.ConferenceController{DB: db, Media: uploader}
	quizCtrl := &controllers.QuizController{DB: db}
	activityCtrl := &controllers.ActivityController{DB: db, Media: uploader}

	authMW := middleware.Authenticated(db, middleware.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		ExpiresIn: expiresIn,
	})

	// Public
	users := r.Group("/api/users")
	{
		users.POST("/register", authCtrl.Register)
		users.POST("/login", authCtrl.Login)
	}

	// Protected
	usersAuth := users.Group("", authMW)
	{
		usersAuth.POST("/logout", authCtrl.Logout)
		usersAuth.GET("/profile", authCtrl.Profile)
		usersAuth.PUT("/profile", authCtrl.UpdateProfile)

		admin := usersAuth.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
		{
			admin.GET("", adminCtrl.ListUsers)
			admin.GET("/:user_id", adminCtrl.GetUser)
			admin.PUT("/:user_id", adminCtrl.UpdateUser)
			admin.DELETE("/:user_id", adminCtrl.DeleteUser)
		}
	}

	classrooms := r.Group("/api/classrooms", authMW)
	{
		classrooms.POST("", middleware.RequireRoles(models.RoleTeacher), classroomCtrl.Create)
		classrooms.POST("/join", middleware.RequireRoles(models.RoleStudent), classroomCtrl.JoinByCode)
		classrooms.GET("/mine", classroomCtrl.MyClassrooms)
		classrooms.GET("/:classroom_id", classroomCtrl.Details)
		classrooms.GET("/:classroom_id/participants", classroomCtrl.Participants)
		classrooms.GET("/:classroom_id/assignments", classroomCtrl.ListAssignments)
		classrooms.POST("/:classroom_id/assignments", middleware.RequireRoles(models.RoleTeacher), classroomCtrl.UploadAssignment)
	}

	conference := r.Group("/api/conference", authMW)
	{
		conference.POST("/rooms", conferenceCtrl.CreateRoom)
		conference.GET("/rooms", conferenceCtrl.ListRooms)
		conference.GET("/rooms/:room_id", conferenceCtrl.GetRoom)
		conference.POST("/rooms/:room_id/join", conferenceCtrl.JoinRoom)
		conference.PUT("/rooms/:room_id/status", conferenceCtrl.UpdateStatus)
		conference.GET("/rooms/:room_id/chat", conferenceCtrl.GetChat)
		conference.POST("/rooms/:room_id/chat", conferenceCtrl.PostChat)
		conference.GET("/rooms/:room_id/submissions", conferenceCtrl.GetSubmissions)
		conference.POST("/rooms/:room_id/submissions", conferenceCtrl.PostSubmission)
		conference.GET("/rooms/:room_id/emotions", conferenceCtrl.GetEmotions)
		conference.POST("/rooms/:room_id/emotions", conferenceCtrl.PostEmotion)
		conference.GET("/ws", ws.ConferenceHandler(hub))
	}

	quiz := r.Group("/api/quiz", authMW)
	{
		quiz.POST("/results", middleware.RequireRoles(models.RoleStudent), quizCtrl.Save)
		quiz.GET("/results/:classroom_id", quizCtrl.History)
	}

	activity := r.Group("/api/studentactivity", authMW)
	{
		activity.POST("/quiz", middleware.RequireRoles(models.RoleStudent), activityCtrl.SubmitQuiz)
		activity.GET("/quiz", activityCtrl.GetQuizResults)
		activity.POST("/emotion", middleware.RequireRoles(models.RoleStudent), activityCtrl.SaveEmotion)
		activity.GET("/emotion/latest", middleware.RequireRoles(models.RoleTeacher), activityCtrl.GetLatestEmotions)
		activity.POST("/assignment", middleware.RequireRoles(models.RoleStudent), activityCtrl.SubmitAssignment)
		activity.GET("/assignment", activityCtrl.GetAssignments)
	}
}
