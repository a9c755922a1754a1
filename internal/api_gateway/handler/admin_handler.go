package handler

import (
	"log/slog"

	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the reconciliation job
type AdminHandler struct {
	repair lifecycle.RepairService
	errs   *ErrorMapper
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, repairService lifecycle.RepairService, errs *ErrorMapper) *AdminHandler {
	return &AdminHandler{
		repair: repairService,
		errs:   errs,
		logger: logger,
	}
}

// Resync runs a full reconciliation pass. Repeating it is harmless.
func (h *AdminHandler) Resync(c *gin.Context) {
	repaired, err := h.repair.ResyncAll(c.Request.Context(), repair.TriggerAPI)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, ResyncResponse{Repaired: repaired})
}

// ListRuns returns the most recent resync runs, newest first
func (h *AdminHandler) ListRuns(c *gin.Context) {
	var query ResyncRunsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	runs, err := h.repair.ListRuns(c.Request.Context(), query.Limit)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	if runs == nil {
		runs = []*repair.Run{}
	}

	RespondOK(c, runs)
}
