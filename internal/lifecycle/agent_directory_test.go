package lifecycle

import (
	"context"
	"testing"

	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentService_Register(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a := h.registerAgent(t, "user-ravi", "Ravi")
	assert.True(t, a.IsActive)

	_, err := h.directory.Register(ctx, "user-ravi", "Ravi again", "9000000002")
	assert.ErrorIs(t, err, shared.ConflictError{})

	_, err = h.directory.Register(ctx, "", "No User", "9000000003")
	assert.ErrorIs(t, err, shared.ValidationError{})
}

func TestAgentService_ListActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ravi := h.registerAgent(t, "user-ravi", "Ravi")
	kiran := h.registerAgent(t, "user-kiran", "Kiran")
	idle := h.registerAgent(t, "user-idle", "Zed")
	_, err := h.directory.SetActive(ctx, idle.ID, false)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req := h.createApproved(t)
		_, err := h.svc.AssignAgent(ctx, req.ID, ravi.ID, admin)
		require.NoError(t, err)
	}
	done := h.createApproved(t)
	_, err = h.svc.AssignAgent(ctx, done.ID, kiran.ID, admin)
	require.NoError(t, err)
	_, err = h.svc.ApplyTransition(ctx, done.ID, "COMPLETED", admin, servicerequest.TransitionOptions{})
	require.NoError(t, err)

	// Drift the cached counter; the roster reports the live count regardless
	h.agents.docs[ravi.ID].ActiveAssignments = 7

	roster, err := h.directory.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	byName := map[string]AgentWorkload{}
	for _, entry := range roster {
		byName[entry.Agent.Name] = entry
	}
	assert.Equal(t, int64(2), byName["Ravi"].LiveWorkload)
	assert.Equal(t, 7, byName["Ravi"].Agent.ActiveAssignments)
	assert.Equal(t, int64(0), byName["Kiran"].LiveWorkload)
	assert.NotContains(t, byName, "Zed")
}

func TestAgentService_GetWorkload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ravi := h.registerAgent(t, "user-ravi", "Ravi")
	req := h.createApproved(t)
	_, err := h.svc.AssignAgent(ctx, req.ID, ravi.ID, admin)
	require.NoError(t, err)

	workload, err := h.directory.GetWorkload(ctx, ravi.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), workload)

	_, err = h.directory.GetWorkload(ctx, "missing")
	assert.ErrorIs(t, err, shared.NotFoundError{Resource: "Agent"})
}

func TestAgentService_ListActiveEmpty(t *testing.T) {
	h := newHarness(t)
	roster, err := h.directory.ListActive(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, roster)
	assert.Empty(t, roster)
}
