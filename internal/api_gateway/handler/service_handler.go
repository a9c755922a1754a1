package handler

import (
	"errors"
	"log/slog"

	"github.com/doorstep-banking/internal/api_gateway/middleware"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/gin-gonic/gin"
)

// ServiceHandler handles HTTP requests for service request operations
type ServiceHandler struct {
	requests lifecycle.RequestService
	errs     *ErrorMapper
	logger   *slog.Logger
}

// NewServiceHandler creates a new service request handler
func NewServiceHandler(logger *slog.Logger, requests lifecycle.RequestService, errs *ErrorMapper) *ServiceHandler {
	return &ServiceHandler{
		requests: requests,
		errs:     errs,
		logger:   logger,
	}
}

// Create stores a new request in APPROVAL_PENDING
func (h *ServiceHandler) Create(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	created, err := h.requests.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondCreated(c, created)
}

// ListByPhone returns the tracking view of one phone's requests.
// Customers are limited to their own phone and may omit it.
func (h *ServiceHandler) ListByPhone(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var query TrackingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	phone := shared.NormalizePhone(query.Phone)
	if actor.Role == shared.RoleCustomer {
		if phone == "" {
			phone = actor.Phone
		}
		if phone != actor.Phone {
			RespondForbidden(c, "Customers can only track their own services")
			return
		}
	}

	page, err := h.requests.ListByPhone(c.Request.Context(), phone, shared.PageRequest{Page: query.Page, Limit: query.Limit})
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, page)
}

// ListAll returns full documents for staff, including the bound agent summary
func (h *ServiceHandler) ListAll(c *gin.Context) {
	var query ServiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := servicerequest.ListFilter{
		Phone:       query.Phone,
		Status:      servicerequest.Status(query.Status),
		ServiceType: servicerequest.ServiceType(query.ServiceType),
		AgentID:     query.AgentID,
	}
	page, err := h.requests.ListAll(c.Request.Context(), filter, shared.PageRequest{Page: query.Page, Limit: query.Limit})
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, page)
}

// GetByID returns one request, 404 if absent
func (h *ServiceHandler) GetByID(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	req, err := h.requests.Get(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, req)
}

// Delete removes a pending request. Deleting a request past APPROVAL_PENDING is forbidden.
func (h *ServiceHandler) Delete(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	id := c.Param("id")
	if err := h.requests.Delete(c.Request.Context(), id, actor); err != nil {
		var conflict shared.ConflictError
		if errors.As(err, &conflict) {
			h.logger.Warn("Refused to delete service", "service_id", id, "reason", conflict.Reason)
			RespondForbidden(c, conflict.Error())
			return
		}
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, DeleteServiceResponse{ID: id, Deleted: true})
}

// UpdateStatus applies a status transition
func (h *ServiceHandler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var body TransitionStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	opts := servicerequest.TransitionOptions{
		Notes:            body.Notes,
		CompletedAt:      body.CompletedAt,
		CompletionMethod: body.CompletionMethod,
	}
	updated, err := h.requests.ApplyTransition(c.Request.Context(), c.Param("id"), body.Status, actor, opts)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, updated)
}

// Assign binds an approved request to an agent. An explicit adminName
// overrides the token's display name in the audit trail.
func (h *ServiceHandler) Assign(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var body AssignAgentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if body.AdminName != "" {
		actor.Name = body.AdminName
	}

	assigned, err := h.requests.AssignAgent(c.Request.Context(), c.Param("id"), body.AgentID, actor)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	RespondOK(c, assigned)
}
