// main.go
package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/tono-megu/ai-video-gen/feedback"
	"github.com/tono-megu/ai-video-gen/generation"
	"github.com/tono-megu/ai-video-gen/internal/platform"
	"github.com/tono-megu/ai-video-gen/notify"
	"github.com/tono-megu/ai-video-gen/projects"
)

type Server struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
}

func NewServer() (*Server, error) {
	// Use the shared connection initializers
	db := platform.NewDBConnection()
	platform.Migrate(db)
	rdb := platform.NewRedisClient()

	router := gin.Default()

	// Add CORS middleware for the frontend
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("FRONTEND_URL"))
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	server := &Server{
		DB:     db,
		Redis:  rdb,
		Router: router,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		if err := sqlDB.Ping(); err != nil {
			c.JSON(500, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"status":   "healthy",
			"database": "connected",
		})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "AI Video Gen API v1"})
	})

	// Without an API key the generators stay nil and everything runs in
	// mock mode. Assigning a nil *OpenAIClient into the interface directly
	// would make the nil checks downstream lie, hence the guard.
	var gen generation.TextGenerator
	var vision generation.VisionComparer
	openaiClient := generation.FromEnv()
	if openaiClient != nil {
		gen = openaiClient
		vision = openaiClient
	}

	notifier := notify.NewNotifier(s.Redis)

	feedbackHandler := feedback.NewHandler(s.DB, gen, vision, notifier)
	feedbackRoutes := s.Router.Group("/feedback")
	feedbackHandler.RegisterRoutes(feedbackRoutes)

	projectHandler := projects.NewHandler(s.DB, s.Redis, gen, openaiClient, feedbackHandler.Evolver)
	projectHandler.RegisterRoutes(s.Router)
}

func (s *Server) Run() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	return s.Router.Run(":" + port)
}

func main() {
	server, err := NewServer()
	if err != nil {
		log.Fatal("Failed to create server:", err)
	}

	if err := server.Run(); err != nil {
		log.Fatal("Failed to run server:", err)
	}
}
