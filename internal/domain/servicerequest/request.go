package servicerequest

import (
	"time"

	"github.com/doorstep-banking/internal/domain/shared"
	"github.com/google/uuid"
)

// ServiceRequest is one customer-initiated doorstep banking job
type ServiceRequest struct {
	ID          string      `json:"_id" bson:"_id"`
	ServiceType ServiceType `json:"serviceType" bson:"serviceType"`
	UserPhone   string      `json:"userPhone" bson:"userPhone"` // digits only
	Status      Status      `json:"status" bson:"status"`
	Date        string      `json:"date" bson:"date"`
	TimeSlot    string      `json:"timeSlot" bson:"timeSlot"`
	Address     string      `json:"address" bson:"address"`
	Amount      int64       `json:"amount" bson:"amount"`

	PensionAccountNo string `json:"pensionAccountNo" bson:"pensionAccountNo"`
	BankAccount      string `json:"bankAccount" bson:"bankAccount"`
	AccountType      string `json:"accountType" bson:"accountType"`
	BankID           string `json:"bankId" bson:"bankId"`
	DocumentType     string `json:"documentType" bson:"documentType"`
	AssistanceMode   string `json:"assistanceMode" bson:"assistanceMode"`

	AssignedAgent     string             `json:"assignedAgent,omitempty" bson:"assignedAgent,omitempty"`
	AssignmentDetails *AssignmentDetails `json:"assignmentDetails,omitempty" bson:"assignmentDetails,omitempty"`
	CompletionDetails *CompletionDetails `json:"completionDetails,omitempty" bson:"completionDetails,omitempty"`

	Timestamps    Timestamps           `json:"timestamps" bson:"timestamps"`
	ApprovedBy    *shared.ActorRef     `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory" bson:"statusHistory"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// AgentInfo is the agent snapshot copied onto a request at assignment time
type AgentInfo struct {
	Name   string `json:"name" bson:"name"`
	Phone  string `json:"phone" bson:"phone"`
	UserID string `json:"userId" bson:"userId"`
}

// AssignmentDetails is the denormalized view of the bound agent
type AssignmentDetails struct {
	AssignedAt  time.Time       `json:"assignedAt" bson:"assignedAt"`
	AssignedBy  shared.ActorRef `json:"assignedBy" bson:"assignedBy"`
	AgentInfo   AgentInfo       `json:"agentInfo" bson:"agentInfo"`
	Status      Status          `json:"status" bson:"status"`
	CompletedAt *time.Time      `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

// CompletionDetails is stamped once when the request reaches COMPLETED
type CompletionDetails struct {
	CompletedAt      time.Time  `json:"completedAt" bson:"completedAt"`
	CompletionMethod string     `json:"completionMethod" bson:"completionMethod"`
	CompletedBy      string     `json:"completedBy" bson:"completedBy"`
	AgentDetails     *AgentInfo `json:"agentDetails,omitempty" bson:"agentDetails,omitempty"`
}

// Timestamps records when milestone transitions happened
type Timestamps struct {
	Approved *time.Time `json:"approved,omitempty" bson:"approved,omitempty"`
}

// StatusHistoryEntry is immutable once appended
type StatusHistoryEntry struct {
	Status    Status          `json:"status" bson:"status"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
	UpdatedBy shared.ActorRef `json:"updatedBy" bson:"updatedBy"`
	Notes     string          `json:"notes,omitempty" bson:"notes,omitempty"`
}

// CreateInput carries the customer's submission
type CreateInput struct {
	ServiceType      string
	Phone            string
	Date             string
	TimeSlot         string
	Address          string
	Amount           *int64
	PensionAccountNo string
	BankAccount      string
	AccountType      string
	BankID           string
	DocumentType     string
	AssistanceMode   string
}

// New validates the input and builds a request in APPROVAL_PENDING.
// The phone is reduced to its digits; fields that do not apply to the
// service type are set to shared.NotApplicable.
func New(in CreateInput, now time.Time) (*ServiceRequest, error) {
	var missing []string
	if in.ServiceType == "" {
		missing = append(missing, "serviceType")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	if in.Date == "" {
		missing = append(missing, "date")
	}
	if in.TimeSlot == "" {
		missing = append(missing, "timeSlot")
	}
	if in.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return nil, shared.ValidationError{Fields: missing, Reason: "required fields are missing"}
	}

	serviceType := ServiceType(in.ServiceType)
	if !serviceType.IsValid() {
		return nil, shared.ValidationError{Fields: []string{"serviceType"}, Reason: "unknown service type " + in.ServiceType}
	}

	phone := shared.NormalizePhone(in.Phone)
	if phone == "" {
		return nil, shared.ValidationError{Fields: []string{"phone"}, Reason: "phone must contain digits"}
	}

	var amount int64
	if in.Amount != nil {
		amount = *in.Amount
	}
	if amount < 0 {
		return nil, shared.ValidationError{Fields: []string{"amount"}, Reason: "amount must not be negative"}
	}

	req := &ServiceRequest{
		ID:               uuid.NewString(),
		ServiceType:      serviceType,
		UserPhone:        phone,
		Status:           StatusApprovalPending,
		Date:             in.Date,
		TimeSlot:         in.TimeSlot,
		Address:          in.Address,
		Amount:           amount,
		PensionAccountNo: shared.NotApplicable,
		BankAccount:      orNotApplicable(in.BankAccount),
		AccountType:      shared.NotApplicable,
		BankID:           shared.NotApplicable,
		DocumentType:     shared.NotApplicable,
		AssistanceMode:   shared.NotApplicable,
		StatusHistory:    []StatusHistoryEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var conditional []string
	switch {
	case serviceType == ServiceTypeLifeCertificate:
		if in.PensionAccountNo == "" {
			conditional = append(conditional, "pensionAccountNo")
		}
		req.PensionAccountNo = in.PensionAccountNo
		if in.BankAccount == "" {
			req.BankAccount = in.PensionAccountNo
		}
	case serviceType == ServiceTypeNewAccount:
		if in.AccountType == "" {
			conditional = append(conditional, "accountType")
		}
		if in.BankID == "" {
			conditional = append(conditional, "bankId")
		}
		req.AccountType = in.AccountType
		req.BankID = in.BankID
	case serviceType.IsDocumentService():
		if in.DocumentType == "" {
			conditional = append(conditional, "documentType")
		}
		req.DocumentType = in.DocumentType
	case serviceType == ServiceTypeOnlineAssistance:
		if in.AssistanceMode == "" {
			conditional = append(conditional, "assistanceMode")
		}
		req.AssistanceMode = in.AssistanceMode
	}
	if len(conditional) > 0 {
		return nil, shared.ValidationError{Fields: conditional, Reason: "required for service type " + string(serviceType)}
	}

	return req, nil
}

func orNotApplicable(v string) string {
	if v == "" {
		return shared.NotApplicable
	}
	return v
}

// TransitionOptions carries the optional parts of a status change
type TransitionOptions struct {
	Notes            string
	CompletedAt      *time.Time
	CompletionMethod string
}

// Transition moves the request to next, appending the audit entry.
// ASSIGNED is reachable only through Assign.
func (r *ServiceRequest) Transition(next Status, actor shared.Actor, opts TransitionOptions, at time.Time) error {
	if !next.IsValid() {
		return shared.InvalidStatusError{Status: string(next)}
	}
	if next == StatusAssigned {
		return shared.ConflictError{Reason: "agents are bound through the assignment endpoint"}
	}
	if !r.Status.CanTransitionTo(next) {
		return shared.InvalidStatusError{Status: string(next), From: string(r.Status)}
	}

	r.apply(next, actor.Ref(), opts.Notes, at)

	switch next {
	case StatusApproved:
		approvedAt := at
		approvedBy := actor.Ref()
		r.Timestamps.Approved = &approvedAt
		r.ApprovedBy = &approvedBy
	case StatusCompleted:
		completedAt := at
		if opts.CompletedAt != nil {
			completedAt = *opts.CompletedAt
		}
		method := opts.CompletionMethod
		if method == "" {
			method = DefaultCompletionMethod
		}
		r.CompletionDetails = &CompletionDetails{
			CompletedAt:      completedAt,
			CompletionMethod: method,
			CompletedBy:      actor.ID,
		}
		if r.AssignmentDetails != nil {
			info := r.AssignmentDetails.AgentInfo
			r.CompletionDetails.AgentDetails = &info
			r.AssignmentDetails.CompletedAt = &completedAt
		}
	}

	if r.AssignmentDetails != nil && next.IsAgentMirrored() {
		r.AssignmentDetails.Status = next
	}
	return nil
}

// Assign binds the request to an agent and moves it to ASSIGNED
func (r *ServiceRequest) Assign(agentID string, info AgentInfo, by shared.Actor, at time.Time) error {
	if r.Status != StatusApproved {
		return shared.ConflictError{Reason: "only approved services can be assigned, current status " + string(r.Status)}
	}

	r.AssignedAgent = agentID
	r.AssignmentDetails = &AssignmentDetails{
		AssignedAt: at,
		AssignedBy: by.Ref(),
		AgentInfo:  info,
		Status:     StatusAssigned,
	}
	r.apply(StatusAssigned, by.Ref(), "Status updated to ASSIGNED by admin", at)
	return nil
}

// RevertAssignment undoes Assign after the agent side could not be written.
// The history keeps both entries.
func (r *ServiceRequest) RevertAssignment(reason string, at time.Time) {
	r.AssignedAgent = ""
	r.AssignmentDetails = nil
	r.apply(StatusApproved, shared.SystemActor.Ref(), "Assignment reverted: "+reason, at)
}

func (r *ServiceRequest) apply(status Status, by shared.ActorRef, notes string, at time.Time) {
	r.Status = status
	r.StatusHistory = append(r.StatusHistory, StatusHistoryEntry{
		Status:    status,
		Timestamp: at,
		UpdatedBy: by,
		Notes:     notes,
	})
	r.UpdatedAt = at
}

// LastHistoryStatus returns the status of the newest history entry
func (r *ServiceRequest) LastHistoryStatus() (Status, bool) {
	if len(r.StatusHistory) == 0 {
		return "", false
	}
	return r.StatusHistory[len(r.StatusHistory)-1].Status, true
}

// IsOwnedBy reports whether phone identifies the requesting customer
func (r *ServiceRequest) IsOwnedBy(phone string) bool {
	normalized := shared.NormalizePhone(phone)
	return normalized != "" && normalized == r.UserPhone
}

// IsAssignedTo reports whether actor is the agent bound to the request
func (r *ServiceRequest) IsAssignedTo(actor shared.Actor) bool {
	if actor.ID == "" {
		return false
	}
	if r.AssignedAgent == actor.ID {
		return true
	}
	return r.AssignmentDetails != nil && r.AssignmentDetails.AgentInfo.UserID == actor.ID
}

// HasBoundAgent reports whether an agent has been assigned
func (r *ServiceRequest) HasBoundAgent() bool {
	return r.AssignedAgent != ""
}
