package shared

import (
	"math"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageRequest is a 1-based page number and a page size
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the page to >= 1 and the limit to [1, MaxPageLimit]
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the number of items preceding the page
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is a paginated result set
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewPage assembles a Page, computing the page count from total and limit
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(req.Limit)))
	}
	return Page[T]{
		Items: items,
		Total: total,
		Page:  req.Page,
		Limit: req.Limit,
		Pages: pages,
	}
}
