package event

import (
	"time"

	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/oklog/ulid/v2"
)

// Type names a service request lifecycle event
type Type string

const (
	TypeCreated       Type = "service.created"
	TypeStatusChanged Type = "service.status_changed"
	TypeAssigned      Type = "service.assigned"
	TypeDeleted       Type = "service.deleted"
)

// ServiceEvent defines a Kafka message describing a lifecycle change of one request
type ServiceEvent struct {
	EventID        string                `json:"event_id"`
	Type           Type                  `json:"type"`
	ServiceID      string                `json:"service_id"`
	Status         servicerequest.Status `json:"status"`
	PreviousStatus servicerequest.Status `json:"previous_status,omitempty"`
	AgentID        string                `json:"agent_id,omitempty"`
	ActorID        string                `json:"actor_id,omitempty"`
	CorrelationID  string                `json:"correlation_id,omitempty"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

// New builds an event for req with a sortable id
func New(eventType Type, req *servicerequest.ServiceRequest, previous servicerequest.Status, actorID string) *ServiceEvent {
	return &ServiceEvent{
		EventID:        ulid.Make().String(),
		Type:           eventType,
		ServiceID:      req.ID,
		Status:         req.Status,
		PreviousStatus: previous,
		AgentID:        req.AssignedAgent,
		ActorID:        actorID,
		OccurredAt:     time.Now().UTC(),
	}
}

// AffectsAgent reports whether the event can leave the bound agent out of sync
func (e *ServiceEvent) AffectsAgent() bool {
	return e.AgentID != "" && (e.Type == TypeAssigned || e.Type == TypeStatusChanged)
}
