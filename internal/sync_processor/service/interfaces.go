package service

import (
	"context"
)

// Reconciler brings the bound agent of one service request in line with the request
type Reconciler interface {
	ResyncRequest(ctx context.Context, serviceID string) (bool, error)
}
