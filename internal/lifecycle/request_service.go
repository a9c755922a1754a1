package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/event"
	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

// RequestServiceImpl implements the RequestService interface
type RequestServiceImpl struct {
	requests  servicerequest.Repository
	agents    agent.Repository
	updater   *agentUpdater
	tx        Transactor
	outbox    outbox.Repository
	publisher EventPublisher
	now       func() time.Time
	logger    *slog.Logger
}

// RequestServiceConfig holds the collaborators of a RequestServiceImpl.
// Outbox and Publisher are optional.
type RequestServiceConfig struct {
	Requests          servicerequest.Repository
	Agents            agent.Repository
	Transactor        Transactor
	Outbox            outbox.Repository
	Publisher         EventPublisher
	MaxVersionRetries int
	Clock             func() time.Time
}

// NewRequestService creates a new request service
func NewRequestService(logger *slog.Logger, cfg RequestServiceConfig) *RequestServiceImpl {
	clock := cfg.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &RequestServiceImpl{
		requests:  cfg.Requests,
		agents:    cfg.Agents,
		updater:   newAgentUpdater(cfg.Agents, cfg.MaxVersionRetries, logger),
		tx:        cfg.Transactor,
		outbox:    cfg.Outbox,
		publisher: cfg.Publisher,
		now:       clock,
		logger:    logger,
	}
}

// Create validates the submission and stores it in APPROVAL_PENDING
func (s *RequestServiceImpl) Create(ctx context.Context, in servicerequest.CreateInput) (*servicerequest.ServiceRequest, error) {
	req, err := servicerequest.New(in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, req); err != nil {
		s.logger.Error("Failed to store service request",
			"service_type", string(req.ServiceType),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Service request created",
		"service_id", req.ID,
		"service_type", string(req.ServiceType),
	)
	s.publish(ctx, event.TypeCreated, req, "", "")
	return req, nil
}

// Get returns the request. Customers can only read requests placed from their phone.
func (s *RequestServiceImpl) Get(ctx context.Context, id string, actor shared.Actor) (*servicerequest.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == shared.RoleCustomer && !req.IsOwnedBy(actor.Phone) {
		return nil, shared.AuthorizationError{Reason: "service belongs to another customer"}
	}
	return req, nil
}

// ListByPhone returns the tracking projection of the requests placed from phone
func (s *RequestServiceImpl) ListByPhone(ctx context.Context, phone string, page shared.PageRequest) (shared.Page[servicerequest.TrackingView], error) {
	normalized := shared.NormalizePhone(phone)
	if normalized == "" {
		return shared.Page[servicerequest.TrackingView]{}, shared.ValidationError{Fields: []string{"phone"}}
	}

	page = page.Normalize()
	items, total, err := s.requests.List(ctx, servicerequest.ListFilter{Phone: normalized}, page)
	if err != nil {
		return shared.Page[servicerequest.TrackingView]{}, err
	}

	views := make([]servicerequest.TrackingView, 0, len(items))
	for _, item := range items {
		views = append(views, item.Tracking())
	}
	return shared.NewPage(views, total, page), nil
}

// ListAll returns full documents matching filter
func (s *RequestServiceImpl) ListAll(ctx context.Context, filter servicerequest.ListFilter, page shared.PageRequest) (shared.Page[*servicerequest.ServiceRequest], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return shared.Page[*servicerequest.ServiceRequest]{}, shared.InvalidStatusError{Status: string(filter.Status)}
	}
	if filter.ServiceType != "" && !filter.ServiceType.IsValid() {
		return shared.Page[*servicerequest.ServiceRequest]{}, shared.ValidationError{Fields: []string{"serviceType"}}
	}
	filter.Phone = shared.NormalizePhone(filter.Phone)

	page = page.Normalize()
	items, total, err := s.requests.List(ctx, filter, page)
	if err != nil {
		return shared.Page[*servicerequest.ServiceRequest]{}, err
	}
	return shared.NewPage(items, total, page), nil
}

// Delete removes a request that is still APPROVAL_PENDING. Non-pending requests
// are refused for every role.
func (s *RequestServiceImpl) Delete(ctx context.Context, id string, actor shared.Actor) error {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if req.Status != servicerequest.StatusApprovalPending {
		return shared.ConflictError{Reason: "only pending services can be deleted"}
	}
	if !actor.IsAdmin() && !req.IsOwnedBy(actor.Phone) {
		return shared.AuthorizationError{Reason: "only the requesting customer or an admin can delete a service"}
	}

	if err := s.requests.DeleteIfStatus(ctx, id, servicerequest.StatusApprovalPending); err != nil {
		return err
	}

	s.logger.Info("Service request deleted", "service_id", id, "actor_id", actor.ID)
	s.publish(ctx, event.TypeDeleted, req, req.Status, actor.ID)
	return nil
}

// publish sends a lifecycle event. Delivery is best effort.
func (s *RequestServiceImpl) publish(ctx context.Context, eventType event.Type, req *servicerequest.ServiceRequest, previous servicerequest.Status, actorID string) {
	if s.publisher == nil {
		return
	}
	evt := event.New(eventType, req, previous, actorID)
	evt.CorrelationID = shared.CorrelationID(ctx)

	if err := s.publisher.Publish(ctx, req.ID, evt); err != nil {
		s.logger.Warn("Failed to publish service event",
			"event_type", string(eventType),
			"service_id", req.ID,
			"error", err,
		)
	}
}
