// Package api exposes the patient CRUD and risk prediction operations over
// HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/heart-disease-predictor-server/internal/domain"
	"github.com/heart-disease-predictor-server/internal/middleware"
	"github.com/heart-disease-predictor-server/internal/service"
)

// HealthChecker reports backend connectivity for the health endpoint.
type HealthChecker func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	cfg       domain.ServerConfig
	router    *gin.Engine
	server    *http.Server
	repo      domain.PatientRepository
	predictor *service.Predictor
	dbHealth  HealthChecker
	log       *logrus.Logger
}

// NewServer creates a new HTTP server instance. dbHealth may be nil when no
// backend connectivity check is available.
func NewServer(cfg domain.Config, repo domain.PatientRepository, predictor *service.Predictor, dbHealth HealthChecker, logger *logrus.Logger) *Server {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	}
	if cfg.Server.RateLimit > 0 {
		router.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))
	}

	server := &Server{
		cfg:       cfg.Server,
		router:    router,
		repo:      repo,
		predictor: predictor,
		dbHealth:  dbHealth,
		log:       logger,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/patients", s.handleCreatePatient)
		v1.GET("/patients", s.handleListPatients)
		v1.GET("/patients/:id", s.handleGetPatient)
		v1.PUT("/patients/:id", s.handleUpdatePatient)
		v1.DELETE("/patients/:id", s.handleDeletePatient)
		v1.GET("/patients/latest/data", s.handleLatestPatient)
		v1.POST("/patients/:id/predict", s.handlePredict)
		v1.POST("/patients/latest/predict", s.handlePredictLatest)
	}
}

// handleHealth reports service and backend health.
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	if s.dbHealth != nil {
		if err := s.dbHealth(c.Request.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			s.log.WithError(err).Warn("Health check failed")
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
