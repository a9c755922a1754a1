package handler

import (
	"time"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/lifecycle"
)

// CreateServiceRequest is the customer's doorstep service submission.
// Required fields are checked by the domain so the client gets the full field list.
type CreateServiceRequest struct {
	ServiceType      string `json:"serviceType"`
	Phone            string `json:"phone"`
	Date             string `json:"date"`
	TimeSlot         string `json:"timeSlot"`
	Address          string `json:"address"`
	Amount           *int64 `json:"amount,omitempty"`
	PensionAccountNo string `json:"pensionAccountNo,omitempty"`
	BankAccount      string `json:"bankAccount,omitempty"`
	AccountType      string `json:"accountType,omitempty"`
	BankID           string `json:"bankId,omitempty"`
	DocumentType     string `json:"documentType,omitempty"`
	AssistanceMode   string `json:"assistanceMode,omitempty"`
}

func (r CreateServiceRequest) toInput() servicerequest.CreateInput {
	return servicerequest.CreateInput{
		ServiceType:      r.ServiceType,
		Phone:            r.Phone,
		Date:             r.Date,
		TimeSlot:         r.TimeSlot,
		Address:          r.Address,
		Amount:           r.Amount,
		PensionAccountNo: r.PensionAccountNo,
		BankAccount:      r.BankAccount,
		AccountType:      r.AccountType,
		BankID:           r.BankID,
		DocumentType:     r.DocumentType,
		AssistanceMode:   r.AssistanceMode,
	}
}

// TransitionStatusRequest moves a request to a new status
type TransitionStatusRequest struct {
	Status           string     `json:"status" binding:"required"`
	Notes            string     `json:"notes,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CompletionMethod string     `json:"completionMethod,omitempty"`
}

// AssignAgentRequest binds an approved request to an agent
type AssignAgentRequest struct {
	AgentID   string `json:"agentId" binding:"required"`
	AdminName string `json:"adminName,omitempty"`
}

// RegisterAgentRequest registers an existing user as a field agent
type RegisterAgentRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// SetAgentActiveRequest toggles whether an agent can receive assignments
type SetAgentActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// DeleteServiceResponse acknowledges a deleted request
type DeleteServiceResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// AgentRosterEntry is an agent annotated with the workload counted from its requests
type AgentRosterEntry struct {
	*agent.Agent
	LiveWorkload int64 `json:"liveWorkload"`
}

// WorkloadResponse reports an agent's live workload
type WorkloadResponse struct {
	AgentID      string `json:"agentId"`
	LiveWorkload int64  `json:"liveWorkload"`
}

// ResyncResponse reports the outcome of a resync pass
type ResyncResponse struct {
	Repaired int `json:"repaired"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=10" binding:"min=1,max=100"`
}

// TrackingQuery selects the requests placed from one phone number
type TrackingQuery struct {
	PaginationParams
	Phone string `form:"phone"`
}

// ServiceListQuery filters the staff listing; empty fields match everything
type ServiceListQuery struct {
	PaginationParams
	Status      string `form:"status"`
	ServiceType string `form:"serviceType"`
	AgentID     string `form:"agentId"`
	Phone       string `form:"phone"`
}

// ResyncRunsQuery bounds the resync journal listing
type ResyncRunsQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// mapRoster flattens the live workload onto each agent
func mapRoster(workloads []lifecycle.AgentWorkload) []AgentRosterEntry {
	roster := make([]AgentRosterEntry, 0, len(workloads))
	for _, w := range workloads {
		roster = append(roster, AgentRosterEntry{Agent: w.Agent, LiveWorkload: w.LiveWorkload})
	}
	return roster
}
