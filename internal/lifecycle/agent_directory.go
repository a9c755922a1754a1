package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

// AgentServiceImpl implements the AgentService interface
type AgentServiceImpl struct {
	agents   agent.Repository
	requests servicerequest.Repository
	now      func() time.Time
	logger   *slog.Logger
}

// NewAgentService creates a new agent directory service
func NewAgentService(logger *slog.Logger, agents agent.Repository, requests servicerequest.Repository) *AgentServiceImpl {
	return &AgentServiceImpl{
		agents:   agents,
		requests: requests,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Register creates an active agent for an existing user account
func (s *AgentServiceImpl) Register(ctx context.Context, userID, name, phone string) (*agent.Agent, error) {
	a, err := agent.NewAgent(userID, name, phone, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.agents.Create(ctx, a); err != nil {
		var dup agent.ErrDuplicateUserID
		if errors.As(err, &dup) {
			return nil, shared.ConflictError{Reason: dup.Error()}
		}
		s.logger.Error("Failed to register agent", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("Agent registered", "agent_id", a.ID, "user_id", userID)
	return a, nil
}

// Get returns an agent by id
func (s *AgentServiceImpl) Get(ctx context.Context, id string) (*agent.Agent, error) {
	return s.agents.GetByID(ctx, id)
}

// ListActive returns active agents with their workload counted from the
// request side. The cached ActiveAssignments on each agent may differ.
func (s *AgentServiceImpl) ListActive(ctx context.Context) ([]AgentWorkload, error) {
	agents, err := s.agents.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return []AgentWorkload{}, nil
	}

	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	counts, err := s.requests.CountActiveByAgents(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]AgentWorkload, 0, len(agents))
	for _, a := range agents {
		live := counts[a.ID]
		if live != int64(a.ActiveAssignments) {
			s.logger.Debug("Cached workload differs from live count",
				"agent_id", a.ID,
				"cached", a.ActiveAssignments,
				"live", live,
			)
		}
		result = append(result, AgentWorkload{Agent: a, LiveWorkload: live})
	}
	return result, nil
}

// GetWorkload counts the agent's non-terminal requests
func (s *AgentServiceImpl) GetWorkload(ctx context.Context, id string) (int64, error) {
	if _, err := s.agents.GetByID(ctx, id); err != nil {
		return 0, err
	}
	counts, err := s.requests.CountActiveByAgents(ctx, []string{id})
	if err != nil {
		return 0, err
	}
	return counts[id], nil
}

// SetActive enables or disables an agent for new assignments
func (s *AgentServiceImpl) SetActive(ctx context.Context, id string, active bool) (*agent.Agent, error) {
	a, err := s.agents.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Agent availability changed", "agent_id", id, "is_active", active)
	return a, nil
}
