// Package api exposes the scan analysis pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vigil-scan-server/internal/domain"
	"github.com/vigil-scan-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	analysis      *service.AnalysisService
	profiles      domain.ProfileStore
	health        HealthCheckers
	router        *gin.Engine
	server        *http.Server
}

// HealthCheckers bundles the optional dependency probes reported by the
// health endpoint. Nil entries are skipped.
type HealthCheckers struct {
	Database func(ctx context.Context) error
	Cache    func(ctx context.Context) error
	Breakers func() map[string]string
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, analysis *service.AnalysisService, profiles domain.ProfileStore, health HealthCheckers) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	server := &Server{
		configManager: configManager,
		logger:        logger,
		analysis:      analysis,
		profiles:      profiles,
		health:        health,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until the context is canceled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/history/:sessionID", s.handleHistory)
		v1.GET("/profile/:sessionID", s.handleGetProfile)
		v1.PUT("/profile/:sessionID", s.handleUpdateProfile)
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
