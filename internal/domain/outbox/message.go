package outbox

import (
	"encoding/json"
	"time"

	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

// AgentSync is the agent-side mirror step that failed and must be retried
type AgentSync struct {
	ServiceID  string                `json:"service_id"`
	AgentID    string                `json:"agent_id"`
	Status     servicerequest.Status `json:"status"`
	Reason     string                `json:"reason"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// Message is one row of the agent-sync outbox
type Message struct {
	ID            int64               `json:"id"`
	ServiceID     string              `json:"service_id"`
	AgentID       string              `json:"agent_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	LastError     string              `json:"last_error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a failed mirror step as a PENDING outbox message
func NewMessage(job *AgentSync) (*Message, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	return &Message{
		ServiceID: job.ServiceID,
		AgentID:   job.AgentID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: time.Now(),
	}, nil
}

// GetAgentSync extracts the sync request from the payload
func (m *Message) GetAgentSync() (*AgentSync, error) {
	var job AgentSync
	if err := json.Unmarshal(m.Payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Age reports how long the message has waited since it was enqueued
func (m *Message) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}
