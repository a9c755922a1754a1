package servicerequest

import "time"

// AgentContact is the only agent data exposed to customers
type AgentContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// TrackingView is the customer-facing projection returned by phone lookups
type TrackingView struct {
	ID            string               `json:"_id"`
	ServiceType   ServiceType          `json:"serviceType"`
	Status        Status               `json:"status"`
	Date          string               `json:"date"`
	TimeSlot      string               `json:"timeSlot"`
	Address       string               `json:"address"`
	Amount        int64                `json:"amount"`
	AssignedAgent *AgentContact        `json:"assignedAgent,omitempty"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

// Tracking returns the redacted projection of r
func (r *ServiceRequest) Tracking() TrackingView {
	view := TrackingView{
		ID:            r.ID,
		ServiceType:   r.ServiceType,
		Status:        r.Status,
		Date:          r.Date,
		TimeSlot:      r.TimeSlot,
		Address:       r.Address,
		Amount:        r.Amount,
		StatusHistory: r.StatusHistory,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if view.StatusHistory == nil {
		view.StatusHistory = []StatusHistoryEntry{}
	}
	if r.AssignmentDetails != nil {
		view.AssignedAgent = &AgentContact{
			Name:  r.AssignmentDetails.AgentInfo.Name,
			Phone: r.AssignmentDetails.AgentInfo.Phone,
		}
	}
	if r.CompletionDetails != nil {
		completedAt := r.CompletionDetails.CompletedAt
		view.CompletedAt = &completedAt
	}
	return view
}
