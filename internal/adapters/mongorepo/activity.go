package mongorepo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

var _ ports.ActivityRepository = (*ActivityRepository)(nil)

// ActivityRepository stores the append-only activity trail
type ActivityRepository struct {
	coll *mongo.Collection
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{coll: db.Collection(activityCollection)}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *entities.ActivityLog) error {
	if _, err := r.coll.InsertOne(ctx, newActivityDocument(entry)); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) List(ctx context.Context, filter ports.ActivityFilter) ([]*entities.ActivityLog, error) {
	query := bson.M{}
	if filter.ProjectIDs != nil {
		query["project_id"] = bson.M{"$in": idStrings(filter.ProjectIDs)}
	}
	if filter.TaskID != nil {
		query["task_id"] = filter.TaskID.String()
	}
	if len(filter.Actions) > 0 {
		query["action"] = bson.M{"$in": filter.Actions}
	}
	if filter.Since != nil {
		query["created_at"] = bson.M{"$gte": *filter.Since}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	var docs []activityDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode activity: %w", err)
	}

	out := make([]*entities.ActivityLog, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entity())
	}
	return out, nil
}
