package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/shared"
)

// Poller retries pending agent sync messages
type Poller struct {
	outboxRepo       outbox.Repository
	applier          AgentSyncApplier
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	applier AgentSyncApplier,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		applier:          applier,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := p.applier.Apply(ctx, msg)
		if err == nil {
			continue
		}
		if errors.Is(err, errUnreadablePayload) {
			// already marked FAILED_TO_PUBLISH by the applier
			continue
		}

		status, errRecord := p.outboxRepo.RecordFailure(ctx, msg.ID, p.maxRetryAttempts, err.Error())
		if errRecord != nil {
			p.logger.Error("Failed to record agent sync failure", "outbox_id", msg.ID, "error", errRecord)
			continue
		}

		if status == shared.OutboxStatusFailedToPublish {
			p.logger.Warn("Agent sync exhausted its retries, parked as FAILED_TO_PUBLISH",
				"outbox_id", msg.ID,
				"service_id", msg.ServiceID,
				"agent_id", msg.AgentID,
				"age", msg.Age(time.Now()).String(),
				"error", err,
			)
			continue
		}

		p.logger.Error("Failed to apply agent sync, will retry",
			"outbox_id", msg.ID,
			"service_id", msg.ServiceID,
			"attempts_made", msg.Attempts+1,
			"error", err,
		)
	}
	return nil
}
