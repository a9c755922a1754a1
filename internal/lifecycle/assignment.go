package lifecycle

import (
	"context"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/event"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"golang.org/x/sync/errgroup"
)

// AssignAgent binds an APPROVED request to an agent. The request write is a
// compare-and-set on APPROVED, so of two concurrent calls only one proceeds to
// the agent write. Without transaction support a failed agent write is
// compensated by moving the request back to APPROVED.
func (s *RequestServiceImpl) AssignAgent(ctx context.Context, id string, agentID string, actor shared.Actor) (*servicerequest.ServiceRequest, error) {
	if !actor.IsAdmin() {
		return nil, shared.AuthorizationError{Reason: "only an admin can assign agents"}
	}

	var (
		req *servicerequest.ServiceRequest
		ag  *agent.Agent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		req, err = s.requests.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		ag, err = s.agents.GetByID(gctx, agentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !ag.IsActive {
		return nil, shared.ConflictError{Reason: "agent " + agentID + " is not active"}
	}

	now := s.now()
	if err := req.Assign(ag.ID, ag.Snapshot(), actor, now); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.SaveIfStatus(txCtx, req, servicerequest.StatusApproved); err != nil {
			return err
		}

		_, _, err := s.updater.mutate(txCtx, ag.ID, func(a *agent.Agent) (bool, error) {
			a.AddAssignment(req, now)
			return true, nil
		})
		if err != nil && !s.tx.Atomic() {
			s.compensateAssignment(ctx, req, err)
		}
		return err
	})
	if err != nil {
		s.logger.Error("Failed to assign agent",
			"service_id", id,
			"agent_id", agentID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Agent assigned",
		"service_id", id,
		"agent_id", agentID,
		"actor_id", actor.ID,
	)
	s.publish(ctx, event.TypeAssigned, req, servicerequest.StatusApproved, actor.ID)
	return req, nil
}

// compensateAssignment reverts an already stored assignment after the agent write failed
func (s *RequestServiceImpl) compensateAssignment(ctx context.Context, req *servicerequest.ServiceRequest, cause error) {
	agentID := req.AssignedAgent
	req.RevertAssignment(cause.Error(), s.now())
	if err := s.requests.SaveIfStatus(ctx, req, servicerequest.StatusAssigned); err != nil {
		s.logger.Error("Failed to revert assignment, request left ASSIGNED without agent entry",
			"service_id", req.ID,
			"cause", cause,
			"error", err,
		)
		s.enqueueAgentSync(ctx, req.ID, agentID, servicerequest.StatusAssigned, cause)
		return
	}
	s.logger.Warn("Assignment reverted after agent write failure",
		"service_id", req.ID,
		"cause", cause,
	)
}
