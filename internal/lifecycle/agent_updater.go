package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"github.com/doorstep-banking/internal/domain/agent"
)

// agentUpdater applies read-modify-write changes to one agent under optimistic locking
type agentUpdater struct {
	agents     agent.Repository
	maxRetries int
	logger     *slog.Logger
}

func newAgentUpdater(agents agent.Repository, maxRetries int, logger *slog.Logger) *agentUpdater {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &agentUpdater{agents: agents, maxRetries: maxRetries, logger: logger}
}

// mutate loads the agent, applies fn and saves it if fn reports a change.
// The whole cycle is repeated when another writer bumped the version in between.
func (u *agentUpdater) mutate(ctx context.Context, agentID string, fn func(a *agent.Agent) (bool, error)) (*agent.Agent, bool, error) {
	var lastErr error
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		a, err := u.agents.GetByID(ctx, agentID)
		if err != nil {
			return nil, false, err
		}

		changed, err := fn(a)
		if err != nil {
			return a, false, err
		}
		if !changed {
			return a, false, nil
		}

		err = u.agents.Update(ctx, a)
		if err == nil {
			return a, true, nil
		}
		if !errors.Is(err, agent.ErrConcurrentModification{}) {
			return a, false, err
		}

		lastErr = err
		u.logger.Debug("Agent modified concurrently, retrying",
			"agent_id", agentID,
			"attempt", attempt,
		)
	}
	return nil, false, lastErr
}
