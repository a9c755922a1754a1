package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/platform/persistence"
)

// ResyncRunRepository journals reconciliation runs in PostgreSQL
type ResyncRunRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewResyncRunRepository creates a new PostgreSQL resync run repository
func NewResyncRunRepository(logger *slog.Logger, db *persistence.PostgresDB) repair.Repository {
	return &ResyncRunRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Start records an open run and assigns its ID
func (r *ResyncRunRepository) Start(ctx context.Context, run *repair.Run) error {
	query := `
		INSERT INTO resync_runs (trigger, started_at)
		VALUES ($1, $2)
		RETURNING id
	`

	if err := r.querier.QueryRow(ctx, query, run.Trigger, run.StartedAt).Scan(&run.ID); err != nil {
		r.logger.Error("Failed to start resync run",
			"trigger", string(run.Trigger),
			"error", err,
		)
		return fmt.Errorf("failed to start resync run: %w", err)
	}
	return nil
}

// Finish stores the outcome of a run
func (r *ResyncRunRepository) Finish(ctx context.Context, run *repair.Run) error {
	query := `
		UPDATE resync_runs
		SET finished_at = $1, scanned = $2, repaired = $3, error = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query, run.FinishedAt, run.Scanned, run.Repaired, run.Error, run.ID)
	if err != nil {
		r.logger.Error("Failed to finish resync run",
			"run_id", run.ID,
			"error", err,
		)
		return fmt.Errorf("failed to finish resync run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("resync run not found: %d", run.ID)
	}
	return nil
}

// ListRecent returns the newest runs first
func (r *ResyncRunRepository) ListRecent(ctx context.Context, limit int) ([]*repair.Run, error) {
	query := `
		SELECT id, trigger, started_at, finished_at, scanned, repaired, error
		FROM resync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.querier.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list resync runs", "error", err)
		return nil, fmt.Errorf("failed to list resync runs: %w", err)
	}
	defer rows.Close()

	runs := []*repair.Run{}
	for rows.Next() {
		var run repair.Run
		if err := rows.Scan(
			&run.ID,
			&run.Trigger,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Scanned,
			&run.Repaired,
			&run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan resync run: %w", err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over resync runs: %w", err)
	}
	return runs, nil
}
