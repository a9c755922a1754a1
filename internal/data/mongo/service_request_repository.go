package mongo

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/doorstep-banking/internal/domain/servicerequest"
	"github.com/doorstep-banking/internal/domain/shared"
)

const (
	// ServiceRequestCollectionName is the name of the service request collection in MongoDB
	ServiceRequestCollectionName = "service_requests"
)

// ServiceRequestRepository implements the servicerequest.Repository interface for MongoDB
type ServiceRequestRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewServiceRequestRepository creates a new MongoDB service request repository
func NewServiceRequestRepository(logger *slog.Logger, db *mongo.Database) servicerequest.Repository {
	return &ServiceRequestRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ServiceRequestRepository) collection() *mongo.Collection {
	return r.db.Collection(ServiceRequestCollectionName)
}

// Create inserts a new service request document
func (r *ServiceRequestRepository) Create(ctx context.Context, req *servicerequest.ServiceRequest) error {
	if _, err := r.collection().InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ConflictError{Reason: "service request already exists"}
		}
		r.logger.Error("Failed to create service request",
			"service_id", req.ID,
			"error", err)
		return shared.DependencyError{Op: "create service request", Err: err}
	}
	return nil
}

// GetByID retrieves a service request by its ID.
// Returns shared.NotFoundError if no document exists.
func (r *ServiceRequestRepository) GetByID(ctx context.Context, id string) (*servicerequest.ServiceRequest, error) {
	var req servicerequest.ServiceRequest
	err := r.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NotFoundError{Resource: "Service", ID: id}
		}
		r.logger.Error("Failed to get service request",
			"service_id", id,
			"error", err)
		return nil, shared.DependencyError{Op: "get service request", Err: err}
	}
	return &req, nil
}

// List returns one page of matching requests, newest first, and the total match count
func (r *ServiceRequestRepository) List(ctx context.Context, filter servicerequest.ListFilter, page shared.PageRequest) ([]*servicerequest.ServiceRequest, int64, error) {
	query := listQuery(filter)

	total, err := r.collection().CountDocuments(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count service requests", "error", err)
		return nil, 0, shared.DependencyError{Op: "count service requests", Err: err}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit))

	cursor, err := r.collection().Find(ctx, query, opts)
	if err != nil {
		r.logger.Error("Failed to list service requests", "error", err)
		return nil, 0, shared.DependencyError{Op: "list service requests", Err: err}
	}
	defer cursor.Close(ctx)

	var requests []*servicerequest.ServiceRequest
	if err := cursor.All(ctx, &requests); err != nil {
		r.logger.Error("Failed to decode service requests", "error", err)
		return nil, 0, shared.DependencyError{Op: "decode service requests", Err: err}
	}

	return requests, total, nil
}

func listQuery(filter servicerequest.ListFilter) bson.M {
	query := bson.M{}
	if filter.Phone != "" {
		query["userPhone"] = filter.Phone
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ServiceType != "" {
		query["serviceType"] = filter.ServiceType
	}
	if filter.AgentID != "" {
		query["assignedAgent"] = filter.AgentID
	}
	return query
}

// SaveIfStatus replaces the document only while its stored status still equals expected
func (r *ServiceRequestRepository) SaveIfStatus(ctx context.Context, req *servicerequest.ServiceRequest, expected servicerequest.Status) error {
	result, err := r.collection().ReplaceOne(ctx, bson.M{"_id": req.ID, "status": expected}, req)
	if err != nil {
		r.logger.Error("Failed to save service request",
			"service_id", req.ID,
			"expected_status", string(expected),
			"error", err)
		return shared.DependencyError{Op: "save service request", Err: err}
	}

	if result.MatchedCount == 0 {
		return r.missOrConflict(ctx, req.ID, "service status changed concurrently")
	}
	return nil
}

// DeleteIfStatus removes the document only while its stored status still equals expected
func (r *ServiceRequestRepository) DeleteIfStatus(ctx context.Context, id string, expected servicerequest.Status) error {
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": id, "status": expected})
	if err != nil {
		r.logger.Error("Failed to delete service request",
			"service_id", id,
			"error", err)
		return shared.DependencyError{Op: "delete service request", Err: err}
	}

	if result.DeletedCount == 0 {
		return r.missOrConflict(ctx, id, "only pending services can be deleted")
	}
	return nil
}

// missOrConflict tells a vanished document apart from a lost compare-and-set
func (r *ServiceRequestRepository) missOrConflict(ctx context.Context, id, reason string) error {
	count, err := r.collection().CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return shared.DependencyError{Op: "check service request", Err: err}
	}
	if count == 0 {
		return shared.NotFoundError{Resource: "Service", ID: id}
	}
	return shared.ConflictError{Reason: reason}
}

// CountActiveByAgents counts ASSIGNED and IN_PROGRESS requests per agent.
// Every requested ID is present in the result, zero when it has no work.
func (r *ServiceRequestRepository) CountActiveByAgents(ctx context.Context, agentIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	if len(agentIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"assignedAgent": bson.M{"$in": agentIDs},
			"status": bson.M{"$in": []servicerequest.Status{
				servicerequest.StatusAssigned,
				servicerequest.StatusInProgress,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$assignedAgent",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to aggregate agent workload", "error", err)
		return nil, shared.DependencyError{Op: "count agent workload", Err: err}
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			AgentID string `bson:"_id"`
			Count   int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, shared.DependencyError{Op: "decode agent workload", Err: err}
		}
		counts[row.AgentID] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, shared.DependencyError{Op: "iterate agent workload", Err: err}
	}

	return counts, nil
}

// ForEachBoundTerminal streams COMPLETED and CANCELLED requests that carry an agent.
// Iteration stops at the first error returned by fn.
func (r *ServiceRequestRepository) ForEachBoundTerminal(ctx context.Context, fn func(*servicerequest.ServiceRequest) error) error {
	query := bson.M{
		"status": bson.M{"$in": []servicerequest.Status{
			servicerequest.StatusCompleted,
			servicerequest.StatusCancelled,
		}},
		"assignedAgent": bson.M{"$exists": true, "$ne": ""},
	}

	cursor, err := r.collection().Find(ctx, query, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}}))
	if err != nil {
		r.logger.Error("Failed to scan terminal service requests", "error", err)
		return shared.DependencyError{Op: "scan terminal service requests", Err: err}
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var req servicerequest.ServiceRequest
		if err := cursor.Decode(&req); err != nil {
			return shared.DependencyError{Op: "decode service request", Err: err}
		}
		if err := fn(&req); err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return shared.DependencyError{Op: "iterate terminal service requests", Err: err}
	}
	return nil
}
