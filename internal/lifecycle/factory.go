package lifecycle

import (
	"log/slog"

	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/domain/servicerequest"
)

// Dependencies are the stores and adapters shared by the lifecycle services
type Dependencies struct {
	Requests   servicerequest.Repository
	Agents     agent.Repository
	Transactor Transactor
	Outbox     outbox.Repository
	Runs       repair.Repository
	Locker     Locker
	Publisher  EventPublisher
}

// Services bundles the lifecycle services of one process
type Services struct {
	Requests *RequestServiceImpl
	Agents   *AgentServiceImpl
	Repair   *ReconcilerImpl
}

// CreateServices wires the lifecycle services from deps and cfg.
func CreateServices(deps Dependencies, logger *slog.Logger, cfg *config.Config) *Services {
	requests := NewRequestService(logger.With("component", "request_service"), RequestServiceConfig{
		Requests:          deps.Requests,
		Agents:            deps.Agents,
		Transactor:        deps.Transactor,
		Outbox:            deps.Outbox,
		Publisher:         deps.Publisher,
		MaxVersionRetries: cfg.Assignment.MaxVersionRetries,
	})

	agents := NewAgentService(logger.With("component", "agent_directory"), deps.Agents, deps.Requests)

	reconciler := NewReconciler(logger.With("component", "reconciler"), ReconcilerConfig{
		Requests:          deps.Requests,
		Agents:            deps.Agents,
		Runs:              deps.Runs,
		Locker:            deps.Locker,
		LockTTL:           cfg.Redis.ResyncLockTTL,
		MaxVersionRetries: cfg.Assignment.MaxVersionRetries,
	})

	return &Services{
		Requests: requests,
		Agents:   agents,
		Repair:   reconciler,
	}
}
