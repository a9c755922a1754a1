package lifecycle

import (
	"context"
	"testing"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	admin    = shared.Actor{ID: "admin-1", Name: "Asha", Role: shared.RoleAdmin}
	customer = shared.Actor{ID: "cust-1", Name: "Meena", Role: shared.RoleCustomer, Phone: "9876543210"}
)

type harness struct {
	requests  *memRequests
	agents    *memAgents
	outbox    *memOutbox
	runs      *memRuns
	locker    *fakeLocker
	publisher *MockEventPublisher

	svc       *RequestServiceImpl
	directory *AgentServiceImpl
	repair    *ReconcilerImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		requests:  newMemRequests(),
		agents:    newMemAgents(),
		outbox:    &memOutbox{},
		runs:      &memRuns{},
		locker:    &fakeLocker{},
		publisher: new(MockEventPublisher),
	}
	h.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	logger := testLogger()
	h.svc = NewRequestService(logger, RequestServiceConfig{
		Requests:          h.requests,
		Agents:            h.agents,
		Transactor:        directTransactor{},
		Outbox:            h.outbox,
		Publisher:         h.publisher,
		MaxVersionRetries: 3,
	})
	h.directory = NewAgentService(logger, h.agents, h.requests)
	h.repair = NewReconciler(logger, ReconcilerConfig{
		Requests:          h.requests,
		Agents:            h.agents,
		Runs:              h.runs,
		Locker:            h.locker,
		MaxVersionRetries: 3,
	})
	return h
}

func (h *harness) create(t *testing.T) *servicerequest.ServiceRequest {
	t.Helper()
	amount := int64(5000)
	req, err := h.svc.Create(context.Background(), servicerequest.CreateInput{
		ServiceType: string(servicerequest.ServiceTypeCashDeposit),
		Phone:       "98-765 43210",
		Date:        "2026-03-05",
		TimeSlot:    "09:00-11:00",
		Address:     "X",
		Amount:      &amount,
	})
	require.NoError(t, err)
	return req
}

func (h *harness) createApproved(t *testing.T) *servicerequest.ServiceRequest {
	t.Helper()
	req := h.create(t)
	req, err := h.svc.ApplyTransition(context.Background(), req.ID, "APPROVED", admin, servicerequest.TransitionOptions{})
	require.NoError(t, err)
	return req
}

func (h *harness) registerAgent(t *testing.T, userID, name string) *agent.Agent {
	t.Helper()
	a, err := h.directory.Register(context.Background(), userID, name, "9000000001")
	require.NoError(t, err)
	return a
}

// agentActor is the authenticated identity of a registered agent
func agentActor(a *agent.Agent) shared.Actor {
	return shared.Actor{ID: a.UserID, Name: a.Name, Role: shared.RoleAgent, Phone: a.Phone}
}

// assertConsistent checks the relationship invariant between a request and its agent
func (h *harness) assertConsistent(t *testing.T, serviceID string) {
	t.Helper()
	req := h.requests.get(serviceID)
	require.NotEmpty(t, req.AssignedAgent)

	last, ok := req.LastHistoryStatus()
	require.True(t, ok)
	require.Equal(t, req.Status, last, "status must equal the newest history entry")

	a := h.agents.get(req.AssignedAgent)
	matches := 0
	for _, entry := range a.Assignments {
		if entry.ServiceID == serviceID {
			matches++
			require.Equal(t, req.Status, entry.Status)
		}
	}
	require.Equal(t, 1, matches, "exactly one agent entry per service")

	active := 0
	for _, entry := range a.Assignments {
		if entry.Status.IsActiveAssignment() {
			active++
		}
	}
	require.Equal(t, active, a.ActiveAssignments)
}
