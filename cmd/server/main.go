package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"

	"github.com/classverse/classroom_backend/internal/config"
	"github.com/classverse/classroom_backend/internal/database"
	"github.com/classverse/classroom_backend/internal/media"
	"github.com/classverse/classroom_backend/internal/routes"
	"github.com/classverse/classroom_backend/internal/ws"
)

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	if err := database.SeedAdmin(db, cfg); err != nil {
		log.Fatalf("admin seed failed: %v", err)
	}

	var uploader media.Uploader
	if cfg.CloudinaryCloudName != "" {
		cld, err := media.NewCloudinaryClient(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Fatalf("media host setup failed: %v", err)
		}
		uploader = cld
	} else {
		log.Println("cloudinary not configured; file uploads disabled")
	}

	hub := ws.NewConferenceHub(db)
	go hub.Run()

	r := gin.Default()
	routes.Register(r, db, cfg, uploader, hub)

	port := cfg.Port
	if port == "" {
		port = "8000"
	}

	if err := r.Run(":" + port); err != nil {
		log.Println("server exited with error:", err)
		os.Exit(1)
	}
}
