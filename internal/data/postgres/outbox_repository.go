package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doorstep-banking/internal/domain/outbox"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/doorstep-banking/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// maxErrorLength bounds last_error so a verbose driver error cannot bloat the row
const maxErrorLength = 512

// OutboxRepository stores agent syncs whose mirror step failed in the gateway
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create enqueues a PENDING agent sync and sets message.ID
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO agent_sync_outbox (service_id, agent_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		message.ServiceID,
		message.AgentID,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("Failed to enqueue agent sync",
			"service_id", message.ServiceID,
			"agent_id", message.AgentID,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// GetPending returns up to limit PENDING messages, oldest first
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, service_id, agent_id, payload, status, attempts, last_error, created_at, last_attempt_at
		FROM agent_sync_outbox
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to query pending agent syncs", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var m outbox.Message
		if err := rows.Scan(
			&m.ID,
			&m.ServiceID,
			&m.AgentID,
			&m.Payload,
			&m.Status,
			&m.Attempts,
			&m.LastError,
			&m.CreatedAt,
			&m.LastAttemptAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over outbox messages: %w", err)
	}

	return messages, nil
}

// UpdateStatus sets the terminal status of a message.
// Returns ErrMessageNotFound if the message doesn't exist.
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	query := `
		UPDATE agent_sync_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update agent sync status",
			"outbox_id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}

	return nil
}

// RecordFailure bumps attempts and stores cause in one statement, so the
// retry budget check cannot race a concurrent poller.
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, maxAttempts int, cause string) (shared.OutboxStatus, error) {
	query := `
		UPDATE agent_sync_outbox
		SET attempts = attempts + 1,
		    last_error = $1,
		    last_attempt_at = $2,
		    status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $5 AND status = $6
		RETURNING status
	`

	if len(cause) > maxErrorLength {
		cause = cause[:maxErrorLength]
	}

	var status shared.OutboxStatus
	err := r.querier.QueryRow(ctx, query,
		cause,
		time.Now(),
		maxAttempts,
		shared.OutboxStatusFailedToPublish,
		id,
		shared.OutboxStatusPending,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", outbox.ErrMessageNotFound{ID: id}
	}
	if err != nil {
		r.logger.Error("Failed to record agent sync failure",
			"outbox_id", id,
			"error", err,
		)
		return "", fmt.Errorf("failed to record outbox failure: %w", err)
	}

	return status, nil
}
