package outbox

import (
	"context"
	"strconv"

	"github.com/doorstep-banking/internal/domain/shared"
)

// Repository persists agent syncs awaiting replay
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	// RecordFailure counts one failed replay and parks the message as
	// FAILED_TO_PUBLISH once maxAttempts is reached. It returns the resulting status.
	RecordFailure(ctx context.Context, id int64, maxAttempts int, cause string) (shared.OutboxStatus, error)
}

// ErrMessageNotFound indicates missing outbox message
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}
