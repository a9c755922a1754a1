package shared

import (
	"strings"
)

// ValidationError reports missing or malformed input fields
type ValidationError struct {
	Fields []string
	Reason string
}

func (e ValidationError) Error() string {
	msg := "validation failed"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Fields) > 0 {
		msg += ": missing or invalid fields: " + strings.Join(e.Fields, ", ")
	}
	return msg
}

// Is implements the errors.Is interface for ValidationError
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	return ok
}

// NotFoundError indicates an unknown service request or agent
type NotFoundError struct {
	Resource string // "Service" or "Agent"
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return e.Resource + " not found: " + e.ID
}

// Is implements the errors.Is interface for NotFoundError
func (e NotFoundError) Is(target error) bool {
	t, ok := target.(NotFoundError)
	if !ok {
		return false
	}
	// Empty target fields act as wildcards
	if t.Resource != "" && t.Resource != e.Resource {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}

// AuthorizationError indicates a failed role or ownership check
type AuthorizationError struct {
	Reason string
}

func (e AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return "not authorized: " + e.Reason
}

// Is implements the errors.Is interface for AuthorizationError
func (e AuthorizationError) Is(target error) bool {
	_, ok := target.(AuthorizationError)
	return ok
}

// ConflictError indicates the target is not in a state that permits the operation
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	if e.Reason == "" {
		return "conflict"
	}
	return e.Reason
}

// Is implements the errors.Is interface for ConflictError
func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	return ok
}

// InvalidStatusError indicates an unknown status value or an illegal transition
type InvalidStatusError struct {
	Status string
	From   string // set when the value is known but not reachable from From
}

func (e InvalidStatusError) Error() string {
	if e.From == "" {
		return "invalid status: " + e.Status
	}
	return "invalid status transition: " + e.From + " -> " + e.Status
}

// Is implements the errors.Is interface for InvalidStatusError
func (e InvalidStatusError) Is(target error) bool {
	_, ok := target.(InvalidStatusError)
	return ok
}

// DependencyError wraps a failure of an underlying store or broker
type DependencyError struct {
	Op  string
	Err error
}

func (e DependencyError) Error() string {
	if e.Err == nil {
		return e.Op + ": dependency unavailable"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e DependencyError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for DependencyError
func (e DependencyError) Is(target error) bool {
	_, ok := target.(DependencyError)
	return ok
}
