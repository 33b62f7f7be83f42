package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/auth"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/config"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/content"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/database"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/handlers"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/presence"
	"github.com/swanandideshmukhcomp25-droid/Digital-Dockers-Suite-sub001/internal/websocket"
)

var startTime = time.Now()

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	var store content.Store
	var db *sql.DB
	if cfg.DatabaseURL == "memory" {
		log.Println("Using in-memory store")
		store = content.NewMemoryStore()
	} else {
		var err error
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		if err := database.RunMigrations(db); err != nil {
			log.Printf("Migration error: %v", err)
		}
		store = content.NewPostgresStore(db)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)
	registry := presence.NewRegistry(store)
	hub := websocket.NewHub(registry, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.RunReaper(ctx, cfg.SessionTimeout/3, cfg.SessionTimeout, hub.DropStale)

	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.FrontendURL)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.GET("/status", func(c *gin.Context) {
		uptime := time.Since(startTime).Seconds()
		dbStatus := "ok"
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				dbStatus = "error"
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime_seconds": uptime,
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"database":       dbStatus,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	handlers.SetupRoutes(api, store, hub, tokens)

	log.Printf("Server starting on port %s", cfg.Port)
	log.Fatal(r.Run(":" + cfg.Port))
}
