package servicerequest

// Status is the lifecycle state of a service request
type Status string

const (
	StatusApprovalPending Status = "APPROVAL_PENDING"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusAssigned        Status = "ASSIGNED"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusApprovalPending: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusAssigned},
	StatusAssigned:        {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress:      {StatusCompleted, StatusCancelled},
}

// ParseStatus returns the Status for s, or false if s is not a known status
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.IsValid()
}

// IsValid reports whether s is one of the enumerated statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusApprovalPending, StatusApproved, StatusRejected, StatusAssigned,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// IsActiveAssignment reports whether an assignment in status s counts towards workload
func (s Status) IsActiveAssignment() bool {
	return s != StatusCompleted && s != StatusCancelled
}

// IsAgentMirrored reports whether a move to s is copied into the agent's assignment entry
func (s Status) IsAgentMirrored() bool {
	return s == StatusInProgress || s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ServiceType enumerates the doorstep services a customer can request
type ServiceType string

const (
	ServiceTypeCashDeposit        ServiceType = "CASH_DEPOSIT"
	ServiceTypeCashWithdrawal     ServiceType = "CASH_WITHDRAWAL"
	ServiceTypeNewAccount         ServiceType = "NEW_ACCOUNT"
	ServiceTypeDocumentCollection ServiceType = "DOCUMENT_COLLECTION"
	ServiceTypeDocumentDelivery   ServiceType = "DOCUMENT_DELIVERY"
	ServiceTypeLifeCertificate    ServiceType = "LIFE_CERTIFICATE"
	ServiceTypeOnlineAssistance   ServiceType = "ONLINE_ASSISTANCE"
)

// IsValid reports whether t is one of the enumerated service types
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypeCashDeposit, ServiceTypeCashWithdrawal, ServiceTypeNewAccount,
		ServiceTypeDocumentCollection, ServiceTypeDocumentDelivery,
		ServiceTypeLifeCertificate, ServiceTypeOnlineAssistance:
		return true
	}
	return false
}

// IsDocumentService reports whether t moves physical documents
func (t ServiceType) IsDocumentService() bool {
	return t == ServiceTypeDocumentCollection || t == ServiceTypeDocumentDelivery
}

// DefaultCompletionMethod is recorded when the caller does not name one
const DefaultCompletionMethod = "AGENT_CONFIRMATION"
