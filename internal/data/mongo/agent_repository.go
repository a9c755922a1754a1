package mongo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/doorstep-banking/internal/domain/agent"
	"github.com/doorstep-banking/internal/domain/shared"
)

const (
	// AgentCollectionName is the name of the agent collection in MongoDB
	AgentCollectionName = "agents"
)

// AgentRepository implements the agent.Repository interface for MongoDB
type AgentRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAgentRepository creates a new MongoDB agent repository
func NewAgentRepository(logger *slog.Logger, db *mongo.Database) agent.Repository {
	return &AgentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AgentRepository) collection() *mongo.Collection {
	return r.db.Collection(AgentCollectionName)
}

// Create inserts a new agent. The unique userId index turns a second
// registration of the same user into ErrDuplicateUserID.
func (r *AgentRepository) Create(ctx context.Context, a *agent.Agent) error {
	if _, err := r.collection().InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return agent.ErrDuplicateUserID{UserID: a.UserID}
		}
		r.logger.Error("Failed to create agent",
			"agent_id", a.ID,
			"user_id", a.UserID,
			"error", err)
		return shared.DependencyError{Op: "create agent", Err: err}
	}
	return nil
}

// GetByID retrieves an agent by its ID.
// Returns shared.NotFoundError if no document exists.
func (r *AgentRepository) GetByID(ctx context.Context, id string) (*agent.Agent, error) {
	var a agent.Agent
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NotFoundError{Resource: "Agent", ID: id}
		}
		r.logger.Error("Failed to get agent",
			"agent_id", id,
			"error", err)
		return nil, shared.DependencyError{Op: "get agent", Err: err}
	}
	return &a, nil
}

// ListActive returns every active agent ordered by name
func (r *AgentRepository) ListActive(ctx context.Context) ([]*agent.Agent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection().Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		r.logger.Error("Failed to list active agents", "error", err)
		return nil, shared.DependencyError{Op: "list active agents", Err: err}
	}
	defer cursor.Close(ctx)

	var agents []*agent.Agent
	if err := cursor.All(ctx, &agents); err != nil {
		r.logger.Error("Failed to decode agents", "error", err)
		return nil, shared.DependencyError{Op: "decode agents", Err: err}
	}
	return agents, nil
}

// Update replaces the agent only while the stored version equals a.Version.
// On success a.Version is advanced to the stored value.
func (r *AgentRepository) Update(ctx context.Context, a *agent.Agent) error {
	next := *a
	next.Version = a.Version + 1
	next.UpdatedAt = time.Now()

	result, err := r.collection().ReplaceOne(ctx, bson.M{"_id": a.ID, "version": a.Version}, &next)
	if err != nil {
		r.logger.Error("Failed to update agent",
			"agent_id", a.ID,
			"version", a.Version,
			"error", err)
		return shared.DependencyError{Op: "update agent", Err: err}
	}

	if result.MatchedCount == 0 {
		count, err := r.collection().CountDocuments(ctx, bson.M{"_id": a.ID}, options.Count().SetLimit(1))
		if err != nil {
			return shared.DependencyError{Op: "check agent", Err: err}
		}
		if count == 0 {
			return shared.NotFoundError{Resource: "Agent", ID: a.ID}
		}
		return agent.ErrConcurrentModification{AgentID: a.ID}
	}

	a.Version = next.Version
	a.UpdatedAt = next.UpdatedAt
	return nil
}

// SetActive toggles availability and returns the updated agent
func (r *AgentRepository) SetActive(ctx context.Context, id string, active bool) (*agent.Agent, error) {
	update := bson.M{
		"$set": bson.M{
			"isActive":  active,
			"updatedAt": time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a agent.Agent
	err := r.collection().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NotFoundError{Resource: "Agent", ID: id}
		}
		r.logger.Error("Failed to set agent availability",
			"agent_id", id,
			"active", active,
			"error", err)
		return nil, shared.DependencyError{Op: "set agent availability", Err: err}
	}
	return &a, nil
}
