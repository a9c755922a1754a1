package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/doorstep-banking/internal/sync_processor/service"
)

// errUnreadablePayload marks a message that can never be applied
var errUnreadablePayload = errors.New("unreadable agent sync payload")

// AgentSyncApplier retries one failed agent mirror step
type AgentSyncApplier interface {
	Apply(ctx context.Context, message *outbox.Message) error
}

// AgentSyncApplierImpl implements AgentSyncApplier by reconciling the request's agent
type AgentSyncApplierImpl struct {
	outboxRepo outbox.Repository
	reconciler service.Reconciler
	logger     *slog.Logger
}

// NewAgentSyncApplier creates a new applier
func NewAgentSyncApplier(
	outboxRepo outbox.Repository,
	reconciler service.Reconciler,
	logger *slog.Logger,
) AgentSyncApplier {
	return &AgentSyncApplierImpl{
		outboxRepo: outboxRepo,
		reconciler: reconciler,
		logger:     logger,
	}
}

// Apply reconciles the agent bound to the message's request and marks the message PROCESSED.
// The agent is brought to the request's current status, which may be newer than the one recorded.
func (p *AgentSyncApplierImpl) Apply(ctx context.Context, message *outbox.Message) error {
	job, err := message.GetAgentSync()
	if err != nil {
		p.logger.Error("Failed to unmarshal agent sync from outbox payload",
			"outbox_id", message.ID, "service_id", message.ServiceID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", errUnreadablePayload, message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "service_id", job.ServiceID, "agent_id", job.AgentID)
	logger.Info("Retrying agent mirror", "recorded_status", string(job.Status), "original_failure", job.Reason)

	changed, err := p.reconciler.ResyncRequest(ctx, job.ServiceID)
	switch {
	case errors.Is(err, shared.NotFoundError{}):
		logger.Warn("Service or agent no longer exists, nothing to mirror", "error", err)
	case err != nil:
		return fmt.Errorf("failed to reconcile service %s: %w", job.ServiceID, err)
	case changed:
		logger.Info("Agent mirror applied")
	default:
		logger.Info("Agent already in sync")
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("agent sync for %s applied, but failed to mark outbox %d as PROCESSED: %w", job.ServiceID, message.ID, err)
	}
	return nil
}
