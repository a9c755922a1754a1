package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. Creating an
// index that already exists with the same definition is a no-op.
func EnsureIndexes(ctx context.Context, logger *slog.Logger, db *mongo.Database) error {
	indexes := []struct {
		collection string
		models     []mongo.IndexModel
	}{
		{ServiceRequestCollectionName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userPhone", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "assignedAgent", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{AgentCollectionName, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "name", Value: 1}}},
		}},
	}

	for _, ix := range indexes {
		names, err := db.Collection(ix.collection).Indexes().CreateMany(ctx, ix.models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", ix.collection, err)
		}
		logger.Info("Ensured MongoDB indexes", "collection", ix.collection, "indexes", names)
	}
	return nil
}
