package service

import (
	"log/slog"

	"github.com/doorstep-banking/internal/config"
)

// CreateReconciler wraps base in a worker pool sized from cfg.
// The base reconciler is returned unchanged if the pool cannot be created.
func CreateReconciler(base Reconciler, logger *slog.Logger, cfg *config.Config) Reconciler {
	pooled, err := NewWorkerPoolReconciler(
		base,
		WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool reconciler, falling back to direct calls", "error", err)
		return base
	}

	logger.Info("Created worker pool reconciler", "pool_size", cfg.WorkerPool.Size)
	return pooled
}
