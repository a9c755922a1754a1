package servicerequest

import (
	"context"

	"github.com/doorstep-banking/internal/domain/shared"
)

// ListFilter narrows admin listings; zero values match everything
type ListFilter struct {
	Phone       string // digits only
	Status      Status
	ServiceType ServiceType
	AgentID     string
}

// Repository defines service request persistence operations.
// Writes are compare-and-set on the status the caller read the document in;
// a mismatch returns shared.ConflictError.
type Repository interface {
	Create(ctx context.Context, req *ServiceRequest) error
	GetByID(ctx context.Context, id string) (*ServiceRequest, error)
	List(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]*ServiceRequest, int64, error)
	SaveIfStatus(ctx context.Context, req *ServiceRequest, expected Status) error
	DeleteIfStatus(ctx context.Context, id string, expected Status) error

	// CountActiveByAgents counts non-terminal requests bound to each agent
	CountActiveByAgents(ctx context.Context, agentIDs []string) (map[string]int64, error)

	// ForEachBoundTerminal streams COMPLETED and CANCELLED requests that have an agent
	ForEachBoundTerminal(ctx context.Context, fn func(*ServiceRequest) error) error
}
