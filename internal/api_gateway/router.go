package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/doorstep-banking/internal/api_gateway/handler"
	"github.com/doorstep-banking/internal/api_gateway/middleware"
	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	services *handler.ServiceHandler
	agents   *handler.AgentHandler
	admin    *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	cfg *config.Config,
	h handlers,
	checks map[string]HealthChecker,
) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger, !cfg.Application.IsProduction()))
	r.Use(middleware.Logger(logger))

	staff := middleware.RequireRole(shared.RoleAdmin, shared.RoleAgent)
	adminOnly := middleware.RequireRole(shared.RoleAdmin)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Auth(&cfg.Auth))
	{
		services := v1.Group("/services")
		{
			services.POST("", h.services.Create)
			services.GET("", h.services.ListByPhone)
			services.GET("/all", staff, h.services.ListAll)
			services.GET("/:id", h.services.GetByID)
			services.DELETE("/:id", h.services.Delete)
			services.PATCH("/:id/status", h.services.UpdateStatus)
			services.POST("/:id/assign", adminOnly, h.services.Assign)
		}

		agents := v1.Group("/agents", staff)
		{
			agents.GET("", h.agents.Roster)
			agents.POST("", adminOnly, h.agents.Register)
			agents.GET("/:id", h.agents.GetByID)
			agents.GET("/:id/workload", h.agents.Workload)
			agents.PATCH("/:id/active", adminOnly, h.agents.SetActive)
		}

		admin := v1.Group("/admin", adminOnly)
		{
			admin.POST("/resync-services", h.admin.Resync)
			admin.GET("/resync-runs", h.admin.ListRuns)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logger.Warn("Health check failed", "component", name, "error", err)
				components[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "up"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "components": components, "timestamp": time.Now().UTC()})
	})
}
