package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

var _ ports.InvitationRepository = (*InvitationRepository)(nil)

// InvitationRepository stores invitations. A TTL index on expires_at lets
// the server drop expired documents on its own.
type InvitationRepository struct {
	coll *mongo.Collection
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *mongo.Database) *InvitationRepository {
	return &InvitationRepository{coll: db.Collection(invitationsCollection)}
}

func (r *InvitationRepository) Create(ctx context.Context, inv *entities.Invitation) error {
	if _, err := r.coll.InsertOne(ctx, newInvitationDocument(inv)); err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Invitation, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *InvitationRepository) GetPendingByToken(ctx context.Context, token string) (*entities.Invitation, error) {
	return r.findOne(ctx, bson.M{"token": token, "status": entities.InvitationPending})
}

func (r *InvitationRepository) FindPending(ctx context.Context, projectID uuid.UUID, email string) (*entities.Invitation, error) {
	return r.findOne(ctx, bson.M{"project_id": projectID.String(), "email": email, "status": entities.InvitationPending})
}

func (r *InvitationRepository) ListPendingByProject(ctx context.Context, projectID uuid.UUID) ([]*entities.Invitation, error) {
	return r.list(ctx, bson.M{"project_id": projectID.String(), "status": entities.InvitationPending})
}

func (r *InvitationRepository) ListPendingByEmail(ctx context.Context, email string) ([]*entities.Invitation, error) {
	return r.list(ctx, bson.M{"email": email, "status": entities.InvitationPending})
}

func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.InvitationStatus) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if res.MatchedCount == 0 {
		return entities.ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	if res.DeletedCount == 0 {
		return entities.ErrInvitationNotFound
	}
	return nil
}

func (r *InvitationRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.M{"email": email}); err != nil {
		return fmt.Errorf("failed to delete invitations: %w", err)
	}
	return nil
}

func (r *InvitationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *InvitationRepository) findOne(ctx context.Context, filter bson.M) (*entities.Invitation, error) {
	var doc invitationDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entities.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return doc.entity(), nil
}

func (r *InvitationRepository) list(ctx context.Context, filter bson.M) ([]*entities.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	var docs []invitationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode invitations: %w", err)
	}

	out := make([]*entities.Invitation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.entity())
	}
	return out, nil
}
