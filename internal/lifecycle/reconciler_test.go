package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciler_ResyncRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("UnboundRequestIsNoop", func(t *testing.T) {
		h := newHarness(t)
		req := h.createApproved(t)

		changed, err := h.repair.ResyncRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("AppendsMissingAssignment", func(t *testing.T) {
		h := newHarness(t)
		ag := h.registerAgent(t, "user-ravi", "Ravi")
		req := h.createApproved(t)
		_, err := h.svc.AssignAgent(ctx, req.ID, ag.ID, admin)
		require.NoError(t, err)
		h.agents.docs[ag.ID].Assignments = nil
		h.agents.docs[ag.ID].ActiveAssignments = 0

		changed, err := h.repair.ResyncRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.True(t, changed)
		h.assertConsistent(t, req.ID)
		assert.Equal(t, 1, h.agents.get(ag.ID).ActiveAssignments)

		changed, err = h.repair.ResyncRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.False(t, changed, "idempotent")
	})

	t.Run("FixesCachedCounterOnly", func(t *testing.T) {
		h := newHarness(t)
		ag := h.registerAgent(t, "user-ravi", "Ravi")
		req := h.createApproved(t)
		_, err := h.svc.AssignAgent(ctx, req.ID, ag.ID, admin)
		require.NoError(t, err)
		h.agents.docs[ag.ID].ActiveAssignments = 4

		changed, err := h.repair.ResyncRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, 1, h.agents.get(ag.ID).ActiveAssignments)
	})

	t.Run("NotFound", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.repair.ResyncRequest(ctx, "missing")
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "Service"})
	})
}

func TestReconciler_ResyncAll(t *testing.T) {
	ctx := context.Background()

	t.Run("RepairsCancelledAndCompleted", func(t *testing.T) {
		h := newHarness(t)
		ag := h.registerAgent(t, "user-ravi", "Ravi")

		var ids []string
		for _, final := range []string{"COMPLETED", "CANCELLED"} {
			req := h.createApproved(t)
			_, err := h.svc.AssignAgent(ctx, req.ID, ag.ID, admin)
			require.NoError(t, err)
			h.agents.setFailure(errors.New("unavailable"))
			_, err = h.svc.ApplyTransition(ctx, req.ID, final, admin, servicerequest.TransitionOptions{})
			require.NoError(t, err)
			h.agents.setFailure(nil)
			ids = append(ids, req.ID)
		}
		assert.Equal(t, 2, h.agents.get(ag.ID).ActiveAssignments)

		repaired, err := h.repair.ResyncAll(ctx, repair.TriggerCLI)
		require.NoError(t, err)
		assert.Equal(t, 2, repaired)
		for _, id := range ids {
			h.assertConsistent(t, id)
		}
		assert.Equal(t, 0, h.agents.get(ag.ID).ActiveAssignments)

		runs, err := h.repair.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, repair.TriggerCLI, runs[0].Trigger)
		assert.Equal(t, 2, runs[0].Scanned)
		assert.Equal(t, 2, runs[0].Repaired)
	})

	t.Run("MissingAgentIsSkipped", func(t *testing.T) {
		h := newHarness(t)
		ag := h.registerAgent(t, "user-ravi", "Ravi")
		req := h.createApproved(t)
		_, err := h.svc.AssignAgent(ctx, req.ID, ag.ID, admin)
		require.NoError(t, err)
		_, err = h.svc.ApplyTransition(ctx, req.ID, "COMPLETED", admin, servicerequest.TransitionOptions{})
		require.NoError(t, err)
		delete(h.agents.docs, ag.ID)

		repaired, err := h.repair.ResyncAll(ctx, repair.TriggerAPI)
		require.NoError(t, err)
		assert.Equal(t, 0, repaired)
	})

	t.Run("RefusesConcurrentRun", func(t *testing.T) {
		h := newHarness(t)
		unlock, acquired, err := h.locker.TryLock(ctx, resyncLockKey, 0)
		require.NoError(t, err)
		require.True(t, acquired)

		_, err = h.repair.ResyncAll(ctx, repair.TriggerAPI)
		assert.ErrorIs(t, err, shared.ConflictError{})
		assert.Empty(t, h.runs.runs)

		require.NoError(t, unlock(ctx))
		_, err = h.repair.ResyncAll(ctx, repair.TriggerAPI)
		assert.NoError(t, err)
	})

	t.Run("ReleasesLockAfterRun", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.repair.ResyncAll(ctx, repair.TriggerAPI)
		require.NoError(t, err)
		_, err = h.repair.ResyncAll(ctx, repair.TriggerAPI)
		require.NoError(t, err)
		assert.Len(t, h.runs.runs, 2)
	})
}
