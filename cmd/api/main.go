// main.go
package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shahram8708/PromptX/internal/config"
	"github.com/shahram8708/PromptX/internal/platform"
	"github.com/shahram8708/PromptX/sessions"
	"github.com/shahram8708/PromptX/store"
	"gorm.io/gorm"
)

type Server struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
	Cfg    *config.Config
}

func NewServer() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db := platform.NewDBConnection(cfg.DatabaseURL)
	rdb := platform.NewRedisClient(cfg.RedisURL)

	if err := store.AutoMigrate(db); err != nil {
		return nil, err
	}

	router := gin.Default()

	// Add CORS middleware for your frontend
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("FRONTEND_URL"))
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

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
		Cfg:    cfg,
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
		c.JSON(200, gin.H{"message": "PromptX API v1"})
	})

	sessionHandler := sessions.NewHandler(s.DB, s.Redis, s.Cfg)

	s.Router.POST("/generate", sessionHandler.StartSession)
	s.Router.GET("/status/:id", sessionHandler.GetStatus)
	s.Router.GET("/download/:id", sessionHandler.DownloadArtifact)
}

func (s *Server) Run() error {
	log.Printf("Server starting on port %s", s.Cfg.Port)
	return s.Router.Run(":" + s.Cfg.Port)
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
