package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

const resyncLockKey = "doorstep:resync:all"

// ReconcilerImpl implements the RepairService interface. Requests are the
// source of truth; only agents are written.
type ReconcilerImpl struct {
	requests servicerequest.Repository
	updater  *agentUpdater
	runs     repair.Repository
	locker   Locker
	lockTTL  time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// ReconcilerConfig holds the collaborators of a ReconcilerImpl.
// Runs and Locker are optional.
type ReconcilerConfig struct {
	Requests          servicerequest.Repository
	Agents            agent.Repository
	Runs              repair.Repository
	Locker            Locker
	LockTTL           time.Duration
	MaxVersionRetries int
}

// NewReconciler creates a new reconciler
func NewReconciler(logger *slog.Logger, cfg ReconcilerConfig) *ReconcilerImpl {
	return &ReconcilerImpl{
		requests: cfg.Requests,
		updater:  newAgentUpdater(cfg.Agents, cfg.MaxVersionRetries, logger),
		runs:     cfg.Runs,
		locker:   cfg.Locker,
		lockTTL:  cfg.LockTTL,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// ResyncRequest repairs the bound agent of one request
func (r *ReconcilerImpl) ResyncRequest(ctx context.Context, id string) (bool, error) {
	req, err := r.requests.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return r.reconcile(ctx, req)
}

// reconcile makes the agent's entry for req carry req's status and refreshes the
// cached active count. A missing entry is appended. Running it again changes nothing.
func (r *ReconcilerImpl) reconcile(ctx context.Context, req *servicerequest.ServiceRequest) (bool, error) {
	if !req.HasBoundAgent() {
		return false, nil
	}
	desired := req.Status
	if !desired.IsAgentMirrored() && desired != servicerequest.StatusAssigned {
		return false, nil
	}

	_, changed, err := r.updater.mutate(ctx, req.AssignedAgent, func(a *agent.Agent) (bool, error) {
		changed := false

		entry := a.FindAssignment(req.ID)
		if entry == nil {
			assignedAt := r.now()
			if req.AssignmentDetails != nil {
				assignedAt = req.AssignmentDetails.AssignedAt
			}
			a.AddAssignment(req, assignedAt)
			entry = a.FindAssignment(req.ID)
			changed = true
		}

		if entry.Status != desired || (desired == servicerequest.StatusCompleted && entry.CompletedAt == nil) {
			a.MirrorStatus(req.ID, desired, completionTime(req, r.now()))
			changed = true
		}

		if a.RecomputeActive() {
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		r.logger.Info("Agent reconciled with service",
			"service_id", req.ID,
			"agent_id", req.AssignedAgent,
			"status", string(desired),
		)
	}
	return changed, nil
}

func completionTime(req *servicerequest.ServiceRequest, fallback time.Time) time.Time {
	if req.CompletionDetails != nil {
		return req.CompletionDetails.CompletedAt
	}
	return fallback
}

// ResyncAll reconciles every COMPLETED or CANCELLED request that has an agent.
// Only one run executes at a time across the cluster.
func (r *ReconcilerImpl) ResyncAll(ctx context.Context, trigger repair.Trigger) (int, error) {
	if r.locker != nil {
		unlock, acquired, err := r.locker.TryLock(ctx, resyncLockKey, r.lockTTL)
		if err != nil {
			return 0, shared.DependencyError{Op: "acquire resync lock", Err: err}
		}
		if !acquired {
			return 0, shared.ConflictError{Reason: "a resync run is already in progress"}
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("Failed to release resync lock", "error", err)
			}
		}()
	}

	run := repair.NewRun(trigger)
	r.startRun(ctx, run)

	scanned, repaired, failed := 0, 0, 0
	err := r.requests.ForEachBoundTerminal(ctx, func(req *servicerequest.ServiceRequest) error {
		scanned++
		changed, err := r.reconcile(ctx, req)
		if err != nil {
			failed++
			r.logger.Warn("Failed to reconcile service",
				"service_id", req.ID,
				"agent_id", req.AssignedAgent,
				"error", err,
			)
			return nil
		}
		if changed {
			repaired++
		}
		return ctx.Err()
	})

	run.Finish(scanned, repaired, err)
	r.finishRun(ctx, run)

	if err != nil {
		r.logger.Error("Resync aborted", "scanned", scanned, "repaired", repaired, "error", err)
		return repaired, err
	}

	r.logger.Info("Resync finished",
		"trigger", string(trigger),
		"scanned", scanned,
		"repaired", repaired,
		"failed", failed,
	)
	return repaired, nil
}

// ListRuns returns the most recent journaled runs
func (r *ReconcilerImpl) ListRuns(ctx context.Context, limit int) ([]*repair.Run, error) {
	if r.runs == nil {
		return []*repair.Run{}, nil
	}
	if limit < 1 || limit > shared.MaxPageLimit {
		limit = shared.DefaultPageLimit
	}
	return r.runs.ListRecent(ctx, limit)
}

func (r *ReconcilerImpl) startRun(ctx context.Context, run *repair.Run) {
	if r.runs == nil {
		return
	}
	if err := r.runs.Start(ctx, run); err != nil {
		r.logger.Warn("Failed to journal resync start", "error", err)
	}
}

func (r *ReconcilerImpl) finishRun(ctx context.Context, run *repair.Run) {
	if r.runs == nil || run.ID == 0 {
		return
	}
	if err := r.runs.Finish(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Warn("Failed to journal resync result", "run_id", run.ID, "error", err)
	}
}
