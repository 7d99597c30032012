package mongorepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

// ProjectRepository stores projects with embedded members, columns and labels
type ProjectRepository struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{db: db, coll: db.Collection(projectsCollection)}
}

func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	if _, err := r.coll.InsertOne(ctx, newProjectDocument(project)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrProjectKeyTaken
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	var doc projectDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return doc.entity(), nil
}

func (r *ProjectRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"key": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check project key: %w", err)
	}
	return n > 0, nil
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Project, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"owner_id": userID.String()},
		bson.M{"members.user_id": userID.String()},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var docs []projectDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}

	projects := make([]*entities.Project, 0, len(docs))
	for _, d := range docs {
		projects = append(projects, d.entity())
	}
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	doc := newProjectDocument(project)
	update := bson.M{"$set": bson.M{
		"name":                 doc.Name,
		"description":          doc.Description,
		"key":                  doc.Key,
		"columns":              doc.Columns,
		"labels":               doc.Labels,
		"onboarding_dismissed": doc.OnboardingDismissed,
		"updated_at":           doc.UpdatedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrProjectKeyTaken
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) IncrementTaskCount(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc projectDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$inc": bson.M{"task_count": 1}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to increment task count: %w", err)
	}
	return doc.entity(), nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID uuid.UUID, member entities.Member) error {
	filter := bson.M{"_id": projectID.String(), "members.user_id": bson.M{"$ne": member.UserID.String()}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"members": newMemberDocument(member)}})
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Either the project is gone or the user is already a member.
	if _, err := r.GetByID(ctx, projectID); err != nil {
		return err
	}
	return nil
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	update := bson.M{"$pull": bson.M{"members": bson.M{"user_id": userID.String()}}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": projectID.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) RemoveMemberEverywhere(ctx context.Context, userID uuid.UUID) error {
	update := bson.M{"$pull": bson.M{"members": bson.M{"user_id": userID.String()}}}
	if _, err := r.coll.UpdateMany(ctx, bson.M{"members.user_id": userID.String()}, update); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}
	return nil
}

// Delete removes the project and its dependent documents. Standalone
// deployments have no multi-document transactions, so dependents go first
// and a failure leaves the project in place to retry.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	byProject := bson.M{"project_id": id.String()}
	for _, name := range []string{activityCollection, invitationsCollection, tasksCollection} {
		if _, err := r.db.Collection(name).DeleteMany(ctx, byProject); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return entities.ErrProjectNotFound
	}
	return nil
}
