package mongorepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

var _ ports.UserRepository = (*UserRepository)(nil)

// UserRepository stores users in the users collection
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if _, err := r.coll.InsertOne(ctx, newUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.User, error) {
	if len(ids) == 0 {
		return []*entities.User{}, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*entities.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.entity())
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID.String()}, newUserDocument(user))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*entities.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return doc.entity(), nil
}
