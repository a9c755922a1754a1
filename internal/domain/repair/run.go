package repair

import (
	"context"
	"time"
)

// Trigger names what started a resync run
type Trigger string

const (
	TriggerAPI Trigger = "API"
	TriggerCLI Trigger = "CLI"
)

// Run is one journaled ResyncAll pass
type Run struct {
	ID         int64      `json:"id"`
	Trigger    Trigger    `json:"trigger"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Scanned    int        `json:"scanned"`
	Repaired   int        `json:"repaired"`
	Error      string     `json:"error,omitempty"`
}

// NewRun starts a run record
func NewRun(trigger Trigger) *Run {
	return &Run{Trigger: trigger, StartedAt: time.Now()}
}

// Finish stamps the outcome of the run
func (r *Run) Finish(scanned, repaired int, err error) {
	now := time.Now()
	r.FinishedAt = &now
	r.Scanned = scanned
	r.Repaired = repaired
	if err != nil {
		r.Error = err.Error()
	}
}

// Repository journals resync runs
type Repository interface {
	Start(ctx context.Context, run *Run) error
	Finish(ctx context.Context, run *Run) error
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}
