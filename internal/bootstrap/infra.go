// Package bootstrap opens the stores shared by the doorstep banking binaries
// and assembles the lifecycle dependencies on top of them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/doorstep-banking/internal/config"
	"github.com/doorstep-banking/internal/data/mongo"
	"github.com/doorstep-banking/internal/data/postgres"
	"github.com/doorstep-banking/internal/lifecycle"
	"github.com/doorstep-banking/internal/platform/locking"
	"github.com/doorstep-banking/internal/platform/persistence"
	"github.com/redis/go-redis/v9"
)

// Infra holds the open store connections of one process
type Infra struct {
	Mongo    *persistence.MongoDB
	Postgres *persistence.PostgresDB
	Redis    *redis.Client

	logger *slog.Logger
}

// Open connects to MongoDB, PostgreSQL and Redis and ensures the Mongo indexes.
// Connections opened before a failure are closed again.
func Open(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*Infra, error) {
	infra := &Infra{logger: logger}

	mongoDB, err := persistence.NewMongoDB(ctx, logger, &cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB: %w", err)
	}
	infra.Mongo = mongoDB

	if err := mongo.EnsureIndexes(ctx, logger, mongoDB.Database()); err != nil {
		infra.Close(ctx)
		return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}

	postgresDB, err := persistence.NewPostgresDB(ctx, logger, &cfg.Postgres)
	if err != nil {
		infra.Close(ctx)
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	infra.Postgres = postgresDB

	redisClient, err := persistence.NewRedisClient(ctx, logger, &cfg.Redis)
	if err != nil {
		infra.Close(ctx)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	infra.Redis = redisClient

	return infra, nil
}

// Dependencies builds the lifecycle collaborators. publisher may be nil.
func (i *Infra) Dependencies(cfg *config.Config, publisher lifecycle.EventPublisher) lifecycle.Dependencies {
	db := i.Mongo.Database()
	return lifecycle.Dependencies{
		Requests:   mongo.NewServiceRequestRepository(i.logger, db),
		Agents:     mongo.NewAgentRepository(i.logger, db),
		Transactor: mongo.NewTransactor(i.logger, i.Mongo.Client(), cfg.MongoDB.TransactionsEnabled),
		Outbox:     postgres.NewOutboxRepository(i.logger, i.Postgres),
		Runs:       postgres.NewResyncRunRepository(i.logger, i.Postgres),
		Locker:     locking.NewRedisLocker(i.logger, i.Redis),
		Publisher:  publisher,
	}
}

// Close releases every open connection; nil members are skipped
func (i *Infra) Close(ctx context.Context) error {
	var errs []error

	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.Postgres != nil {
		i.Postgres.Close()
	}
	if i.Mongo != nil {
		if err := i.Mongo.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongo: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		i.logger.Error("Failed to close infrastructure cleanly", "error", err)
		return err
	}
	return nil
}
