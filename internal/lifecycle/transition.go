package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/event"
	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

var errAssignmentMissing = errors.New("agent holds no assignment entry for the service")

// ApplyTransition validates status against the transition table and the actor's
// rights, persists the change and mirrors assignment sub-statuses into the agent.
// A failing agent mirror is logged and queued for retry; it never fails the call.
func (s *RequestServiceImpl) ApplyTransition(ctx context.Context, id string, status string, actor shared.Actor, opts servicerequest.TransitionOptions) (*servicerequest.ServiceRequest, error) {
	next, ok := servicerequest.ParseStatus(status)
	if !ok {
		return nil, shared.InvalidStatusError{Status: status}
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(req, next, actor); err != nil {
		return nil, err
	}

	previous := req.Status
	now := s.now()
	if err := req.Transition(next, actor, opts, now); err != nil {
		return nil, err
	}

	if err := s.requests.SaveIfStatus(ctx, req, previous); err != nil {
		s.logger.Error("Failed to save status transition",
			"service_id", id,
			"from", string(previous),
			"to", string(next),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Service status updated",
		"service_id", id,
		"from", string(previous),
		"to", string(next),
		"actor_id", actor.ID,
	)

	if req.HasBoundAgent() && next.IsAgentMirrored() {
		s.mirrorToAgent(ctx, req, next, now)
	}

	s.publish(ctx, event.TypeStatusChanged, req, previous, actor.ID)
	return req, nil
}

// authorizeTransition applies the role policy: approval decisions belong to
// admins, fulfillment updates to admins and the assigned agent.
func authorizeTransition(req *servicerequest.ServiceRequest, next servicerequest.Status, actor shared.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	switch next {
	case servicerequest.StatusInProgress, servicerequest.StatusCompleted, servicerequest.StatusCancelled:
		if actor.Role == shared.RoleAgent && req.IsAssignedTo(actor) {
			return nil
		}
		return shared.AuthorizationError{Reason: "only an admin or the assigned agent can set " + string(next)}
	default:
		return shared.AuthorizationError{Reason: "only an admin can set " + string(next)}
	}
}

// mirrorToAgent copies status into the bound agent's assignment entry
func (s *RequestServiceImpl) mirrorToAgent(ctx context.Context, req *servicerequest.ServiceRequest, status servicerequest.Status, at time.Time) {
	mirrorAt := at
	if status == servicerequest.StatusCompleted && req.CompletionDetails != nil {
		mirrorAt = req.CompletionDetails.CompletedAt
	}

	_, _, err := s.updater.mutate(ctx, req.AssignedAgent, func(a *agent.Agent) (bool, error) {
		if !a.MirrorStatus(req.ID, status, mirrorAt) {
			return false, errAssignmentMissing
		}
		return true, nil
	})
	if err == nil {
		return
	}

	logger := s.logger.With(
		"service_id", req.ID,
		"agent_id", req.AssignedAgent,
		"status", string(status),
		"error", err,
	)
	if errors.Is(err, shared.NotFoundError{}) || errors.Is(err, errAssignmentMissing) {
		logger.Warn("Skipping agent mirror, agent side is out of sync")
	} else {
		logger.Error("Agent mirror failed, service status kept")
	}

	s.enqueueAgentSync(ctx, req.ID, req.AssignedAgent, status, err)
}

// enqueueAgentSync records a failed mirror in the outbox for the sync processor
func (s *RequestServiceImpl) enqueueAgentSync(ctx context.Context, serviceID, agentID string, status servicerequest.Status, cause error) {
	if s.outbox == nil {
		return
	}

	msg, err := outbox.NewMessage(&outbox.AgentSync{
		ServiceID:  serviceID,
		AgentID:    agentID,
		Status:     status,
		Reason:     cause.Error(),
		OccurredAt: s.now(),
	})
	if err != nil {
		s.logger.Error("Failed to build agent sync message", "service_id", serviceID, "error", err)
		return
	}

	if err := s.outbox.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to enqueue agent sync, resync required",
			"service_id", serviceID,
			"agent_id", agentID,
			"error", fmt.Errorf("outbox create: %w", err),
		)
	}
}
