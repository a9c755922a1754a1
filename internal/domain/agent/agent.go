package agent

import (
	"time"

	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/google/uuid"
)

// Agent is a fulfillment worker with an append-only list of assignments
type Agent struct {
	ID                string       `json:"_id" bson:"_id"`
	UserID            string       `json:"userId" bson:"userId"`
	Name              string       `json:"name" bson:"name"`
	Phone             string       `json:"phone" bson:"phone"`
	IsActive          bool         `json:"isActive" bson:"isActive"`
	Assignments       []Assignment `json:"assignments" bson:"assignments"`
	ActiveAssignments int          `json:"activeAssignments" bson:"activeAssignments"`
	Version           int64        `json:"version" bson:"version"` // For optimistic locking
	CreatedAt         time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// Assignment is the agent-side record of one bound service request
type Assignment struct {
	ServiceID     string                     `json:"serviceId" bson:"serviceId"`
	AssignedAt    time.Time                  `json:"assignedAt" bson:"assignedAt"`
	Status        servicerequest.Status      `json:"status" bson:"status"`
	ServiceType   servicerequest.ServiceType `json:"serviceType" bson:"serviceType"`
	CustomerPhone string                     `json:"customerPhone" bson:"customerPhone"`
	CompletedAt   *time.Time                 `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// NewAgent registers an active agent with no assignments
func NewAgent(userID, name, phone string, now time.Time) (*Agent, error) {
	var missing []string
	if userID == "" {
		missing = append(missing, "userId")
	}
	if name == "" {
		missing = append(missing, "name")
	}
	normalized := shared.NormalizePhone(phone)
	if normalized == "" {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return nil, shared.ValidationError{Fields: missing}
	}

	return &Agent{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Phone:       normalized,
		IsActive:    true,
		Assignments: []Assignment{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Snapshot returns the agent fields copied onto an assigned request
func (a *Agent) Snapshot() servicerequest.AgentInfo {
	return servicerequest.AgentInfo{Name: a.Name, Phone: a.Phone, UserID: a.UserID}
}

// FindAssignment returns the entry for serviceID, or nil
func (a *Agent) FindAssignment(serviceID string) *Assignment {
	for i := range a.Assignments {
		if a.Assignments[i].ServiceID == serviceID {
			return &a.Assignments[i]
		}
	}
	return nil
}

// AddAssignment records req as assigned to the agent. An existing entry for
// the same request is reset instead of duplicated.
func (a *Agent) AddAssignment(req *servicerequest.ServiceRequest, at time.Time) {
	if existing := a.FindAssignment(req.ID); existing != nil {
		existing.AssignedAt = at
		existing.Status = servicerequest.StatusAssigned
		existing.CompletedAt = nil
	} else {
		a.Assignments = append(a.Assignments, Assignment{
			ServiceID:     req.ID,
			AssignedAt:    at,
			Status:        servicerequest.StatusAssigned,
			ServiceType:   req.ServiceType,
			CustomerPhone: req.UserPhone,
		})
	}
	a.RecomputeActive()
	a.UpdatedAt = at
}

// MirrorStatus copies a request status into the matching entry. It returns
// false when the agent holds no entry for serviceID.
func (a *Agent) MirrorStatus(serviceID string, status servicerequest.Status, at time.Time) bool {
	entry := a.FindAssignment(serviceID)
	if entry == nil {
		return false
	}
	entry.Status = status
	if status == servicerequest.StatusCompleted {
		completedAt := at
		entry.CompletedAt = &completedAt
	}
	a.RecomputeActive()
	a.UpdatedAt = at
	return true
}

// RecomputeActive sets ActiveAssignments to the number of non-terminal
// entries and reports whether the cached value changed.
func (a *Agent) RecomputeActive() bool {
	active := 0
	for _, entry := range a.Assignments {
		if entry.Status.IsActiveAssignment() {
			active++
		}
	}
	changed := a.ActiveAssignments != active
	a.ActiveAssignments = active
	return changed
}
