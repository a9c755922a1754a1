package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/doorstep-banking/internal/api_gateway/handler"
	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger          *slog.Logger // For structured logging
	httpServer      *http.Server // Underlying HTTP server
	httpRouter      *gin.Engine  // Gin router instance
	shutdownTimeout time.Duration
}

// NewServer creates and configures a new HTTP server with the given services.
// checks are probed by the /health endpoint.
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	requests lifecycle.RequestService,
	agents lifecycle.AgentService,
	repairService lifecycle.RepairService,
	checks map[string]HealthChecker,
) *Server {
	if cfg.Application.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	errs := handler.NewErrorMapper(log, !cfg.Application.IsProduction())
	setupRouter(log, httpRouter, cfg, handlers{
		services: handler.NewServiceHandler(log, requests, errs),
		agents:   handler.NewAgentHandler(log, agents, errs),
		admin:    handler.NewAdminHandler(log, repairService, errs),
	}, checks)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		httpRouter:      httpRouter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Stop gracefully shuts down the HTTP server within the configured grace period
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
