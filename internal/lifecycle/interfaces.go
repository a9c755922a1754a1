package lifecycle

import (
	"context"
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/repair"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

// RequestService defines the service request lifecycle operations
type RequestService interface {
	// Create validates and stores a new request in APPROVAL_PENDING
	// Returns shared.ValidationError listing the offending fields
	Create(ctx context.Context, in servicerequest.CreateInput) (*servicerequest.ServiceRequest, error)

	// Get returns the full request; customers may only read their own
	Get(ctx context.Context, id string, actor shared.Actor) (*servicerequest.ServiceRequest, error)

	// ListByPhone returns the customer-facing projection, newest first
	ListByPhone(ctx context.Context, phone string, page shared.PageRequest) (shared.Page[servicerequest.TrackingView], error)

	// ListAll returns full documents for staff, newest first
	ListAll(ctx context.Context, filter servicerequest.ListFilter, page shared.PageRequest) (shared.Page[*servicerequest.ServiceRequest], error)

	// Delete removes a pending request on behalf of its owner or an admin
	Delete(ctx context.Context, id string, actor shared.Actor) error

	// ApplyTransition validates and applies a status change and mirrors it into the bound agent
	ApplyTransition(ctx context.Context, id string, status string, actor shared.Actor, opts servicerequest.TransitionOptions) (*servicerequest.ServiceRequest, error)

	// AssignAgent binds an approved request to an agent on both sides
	AssignAgent(ctx context.Context, id string, agentID string, actor shared.Actor) (*servicerequest.ServiceRequest, error)
}

// AgentWorkload is an agent annotated with its live workload
type AgentWorkload struct {
	Agent        *agent.Agent
	LiveWorkload int64
}

// AgentService defines the agent directory operations
type AgentService interface {
	Register(ctx context.Context, userID, name, phone string) (*agent.Agent, error)
	Get(ctx context.Context, id string) (*agent.Agent, error)
	ListActive(ctx context.Context) ([]AgentWorkload, error)

	// GetWorkload counts the agent's non-terminal requests from the request side
	GetWorkload(ctx context.Context, id string) (int64, error)
	SetActive(ctx context.Context, id string, active bool) (*agent.Agent, error)
}

// RepairService defines the reconciliation operations
type RepairService interface {
	// ResyncRequest brings the bound agent's entry in line with one request.
	// Reports whether anything on the agent had to be corrected.
	ResyncRequest(ctx context.Context, id string) (bool, error)

	// ResyncAll reconciles every terminal request with a bound agent and
	// returns the number of requests that triggered a correction
	ResyncAll(ctx context.Context, trigger repair.Trigger) (int, error)

	ListRuns(ctx context.Context, limit int) ([]*repair.Run, error)
}

// Transactor runs fn inside a multi-document transaction when the store supports it
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Atomic reports whether writes inside fn are rolled back on error
	Atomic() bool
}

// Locker provides a cluster-wide mutual exclusion
type Locker interface {
	// TryLock returns acquired=false without error when the key is already held
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

// EventPublisher publishes lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

var (
	_ RequestService = (*RequestServiceImpl)(nil)
	_ AgentService   = (*AgentServiceImpl)(nil)
	_ RepairService  = (*ReconcilerImpl)(nil)
)
