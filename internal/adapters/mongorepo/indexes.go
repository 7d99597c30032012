package mongorepo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowhq/flow/internal/ports"
)

// NewRepositories wires every repository to one database.
func NewRepositories(db *mongo.Database) *ports.Repositories {
	return &ports.Repositories{
		Users:       NewUserRepository(db),
		Projects:    NewProjectRepository(db),
		Tasks:       NewTaskRepository(db),
		Invitations: NewInvitationRepository(db),
		Activity:    NewActivityRepository(db),
	}
}

// EnsureIndexes creates the indexes the repositories rely on. It is the
// Mongo counterpart of running migrations and is safe to repeat.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
			{Keys: bson.D{{Key: "members.user_id", Value: 1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "status", Value: 1}, {Key: "order", Value: 1}}},
			{Keys: bson.D{{Key: "assignee_id", Value: 1}}},
		},
		invitationsCollection: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "email", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		activityCollection: {
			{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "task_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}
