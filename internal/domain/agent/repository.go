package agent

import (
	"context"
)

// Repository defines agent persistence operations
type Repository interface {
	Create(ctx context.Context, agent *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
	ListActive(ctx context.Context) ([]*Agent, error)

	// Update uses optimistic locking on Version and bumps it on success
	Update(ctx context.Context, agent *Agent) error
	SetActive(ctx context.Context, id string, active bool) (*Agent, error)
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AgentID string
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for agent: " + e.AgentID
}

// Is implements the errors.Is interface for ErrConcurrentModification
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AgentID == "" || t.AgentID == e.AgentID
}

// ErrDuplicateUserID indicates the user is already registered as an agent
type ErrDuplicateUserID struct {
	UserID string
}

func (e ErrDuplicateUserID) Error() string {
	return "agent with user ID already exists: " + e.UserID
}
