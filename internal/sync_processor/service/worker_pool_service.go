package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolReconciler bounds the number of reconciliations running at once.
// Callers block until their own request has been reconciled.
type WorkerPoolReconciler struct {
	base   Reconciler
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolReconciler(
	base Reconciler,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolReconciler, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolReconciler{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

type reconcileResult struct {
	changed bool
	err     error
}

// ResyncRequest submits the reconciliation to the pool and waits for it
func (s *WorkerPoolReconciler) ResyncRequest(ctx context.Context, serviceID string) (bool, error) {
	logger := s.logger
	if id := shared.CorrelationID(ctx); id != "" {
		logger = s.logger.With("correlation_id", id)
	}

	logger.Debug("Submitting reconciliation to worker pool", "service_id", serviceID)

	resultChan := make(chan reconcileResult, 1)
	err := s.pool.Submit(func() {
		changed, err := s.base.ResyncRequest(ctx, serviceID)
		resultChan <- reconcileResult{changed: changed, err: err}
	})
	if err != nil {
		logger.Error("Failed to submit reconciliation to worker pool",
			"service_id", serviceID,
			"error", err,
		)
		return false, err
	}

	select {
	case res := <-resultChan:
		return res.changed, res.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Shutdown releases the pool's workers
func (s *WorkerPoolReconciler) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolReconciler) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolReconciler) Capacity() int {
	return s.pool.Cap()
}
