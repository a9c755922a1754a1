package handler

import (
	"log/slog"

	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// AgentHandler handles HTTP requests for the agent directory
type AgentHandler struct {
	agents lifecycle.AgentService
	errs   *ErrorMapper
	logger *slog.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(logger *slog.Logger, agents lifecycle.AgentService, errs *ErrorMapper) *AgentHandler {
	return &AgentHandler{
		agents: agents,
		errs:   errs,
		logger: logger,
	}
}

// Roster lists active agents with their live workload
func (h *AgentHandler) Roster(c *gin.Context) {
	workloads, err := h.agents.ListActive(c.Request.Context())
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, mapRoster(workloads))
}

// Register creates an agent for an existing user
func (h *AgentHandler) Register(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	a, err := h.agents.Register(c.Request.Context(), req.UserID, req.Name, req.Phone)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondCreated(c, a)
}

func (h *AgentHandler) GetByID(c *gin.Context) {
	a, err := h.agents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, a)
}

// Workload counts the agent's non-terminal requests
func (h *AgentHandler) Workload(c *gin.Context) {
	id := c.Param("id")
	count, err := h.agents.GetWorkload(c.Request.Context(), id)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, WorkloadResponse{AgentID: id, LiveWorkload: count})
}

func (h *AgentHandler) SetActive(c *gin.Context) {
	var req SetAgentActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	a, err := h.agents.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	h.logger.Info("Agent availability changed", "agent_id", a.ID, "active", a.IsActive)
	RespondOK(c, a)
}
