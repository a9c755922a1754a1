package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs assignment writes in a multi-document transaction when the
// deployment supports it. A standalone server gets plain sequential writes.
type Transactor struct {
	client  *mongo.Client
	enabled bool
	logger  *slog.Logger
}

// NewTransactor creates a transactor; enabled requires a replica set or sharded cluster
func NewTransactor(logger *slog.Logger, client *mongo.Client, enabled bool) *Transactor {
	return &Transactor{
		client:  client,
		enabled: enabled,
		logger:  logger,
	}
}

// WithinTransaction runs fn inside a session transaction. The session travels in
// the context handed to fn, so repository calls made with it join the transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start MongoDB session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		t.logger.Debug("MongoDB transaction aborted", "error", err)
		return err
	}
	return nil
}

// Atomic reports whether WithinTransaction rolls back on error
func (t *Transactor) Atomic() bool {
	return t.enabled
}
