package handler

import (
	"context"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/stretchr/testify/mock"
)

type MockRequestService struct {
	mock.Mock
}

func (m *MockRequestService) Create(ctx context.Context, in servicerequest.CreateInput) (*servicerequest.ServiceRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*servicerequest.ServiceRequest), args.Error(1)
}

func (m *MockRequestService) Get(ctx context.Context, id string, actor shared.Actor) (*servicerequest.ServiceRequest, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*servicerequest.ServiceRequest), args.Error(1)
}

func (m *MockRequestService) ListByPhone(ctx context.Context, phone string, page shared.PageRequest) (shared.Page[servicerequest.TrackingView], error) {
	args := m.Called(ctx, phone, page)
	return args.Get(0).(shared.Page[servicerequest.TrackingView]), args.Error(1)
}

func (m *MockRequestService) ListAll(ctx context.Context, filter servicerequest.ListFilter, page shared.PageRequest) (shared.Page[*servicerequest.ServiceRequest], error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(shared.Page[*servicerequest.ServiceRequest]), args.Error(1)
}

func (m *MockRequestService) Delete(ctx context.Context, id string, actor shared.Actor) error {
	args := m.Called(ctx, id, actor)
	return args.Error(0)
}

func (m *MockRequestService) ApplyTransition(ctx context.Context, id string, status string, actor shared.Actor, opts servicerequest.TransitionOptions) (*servicerequest.ServiceRequest, error) {
	args := m.Called(ctx, id, status, actor, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*servicerequest.ServiceRequest), args.Error(1)
}

func (m *MockRequestService) AssignAgent(ctx context.Context, id string, agentID string, actor shared.Actor) (*servicerequest.ServiceRequest, error) {
	args := m.Called(ctx, id, agentID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*servicerequest.ServiceRequest), args.Error(1)
}

type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) Register(ctx context.Context, userID, name, phone string) (*agent.Agent, error) {
	args := m.Called(ctx, userID, name, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Agent), args.Error(1)
}

func (m *MockAgentService) Get(ctx context.Context, id string) (*agent.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Agent), args.Error(1)
}

func (m *MockAgentService) ListActive(ctx context.Context) ([]lifecycle.AgentWorkload, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lifecycle.AgentWorkload), args.Error(1)
}

func (m *MockAgentService) GetWorkload(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAgentService) SetActive(ctx context.Context, id string, active bool) (*agent.Agent, error) {
	args := m.Called(ctx, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Agent), args.Error(1)
}

type MockRepairService struct {
	mock.Mock
}

func (m *MockRepairService) ResyncRequest(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepairService) ResyncAll(ctx context.Context, trigger repair.Trigger) (int, error) {
	args := m.Called(ctx, trigger)
	return args.Int(0), args.Error(1)
}

func (m *MockRepairService) ListRuns(ctx context.Context, limit int) ([]*repair.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repair.Run), args.Error(1)
}
