// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loan-desk/internal/common/config"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/common/observability"
	"loan-desk/internal/documents"
	"loan-desk/internal/workflow"
)

// ==========================================
// CONVERSATION API SERVER
// ==========================================

// Server exposes the conversation pipeline over HTTP. All state
// changes go through the orchestrator; handlers never touch records
// directly.
type Server struct {
	echo         *echo.Echo
	config       *config.Config
	orchestrator *workflow.Orchestrator
	documents    *documents.Service
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	logger       logger.Logger
	startTime    time.Time
}

func NewServer(cfg *config.Config, orchestrator *workflow.Orchestrator, docs *documents.Service, obs *observability.Observability, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	if obs == nil {
		obs = &observability.Observability{}
	}
	srv := &Server{
		echo:         e,
		config:       cfg,
		orchestrator: orchestrator,
		documents:    docs,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		logger:       log,
		startTime:    time.Now(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.echo.POST("/api/sessions", s.handleStartSession)
	s.echo.POST("/api/sessions/:id/messages", s.handlePostMessage)
	s.echo.POST("/api/sessions/:id/documents", s.handleUploadDocument)
	s.echo.GET("/api/sessions/:id", s.handleGetSession)

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) Start() error {
	s.logger.Info("Starting conversation API", map[string]interface{}{
		"address": s.config.Server.Address,
	})
	if err := s.echo.Start(s.config.Server.Address); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server start failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
	})
}
