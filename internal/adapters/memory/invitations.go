package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
)

// InvitationRepository is the in-memory invitation store
type InvitationRepository struct {
	s *Store
}

func (r *InvitationRepository) Create(ctx context.Context, inv *entities.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.invitations[inv.ID] = cloneInvitation(inv)
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, entities.ErrInvitationNotFound
	}
	return cloneInvitation(inv), nil
}

func (r *InvitationRepository) GetPendingByToken(ctx context.Context, token string) (*entities.Invitation, error) {
	return r.findOne(func(inv *entities.Invitation) bool {
		return inv.IsPending() && inv.Token == token
	})
}

func (r *InvitationRepository) FindPending(ctx context.Context, projectID uuid.UUID, email string) (*entities.Invitation, error) {
	return r.findOne(func(inv *entities.Invitation) bool {
		return inv.IsPending() && inv.ProjectID == projectID && inv.Email == email
	})
}

func (r *InvitationRepository) ListPendingByProject(ctx context.Context, projectID uuid.UUID) ([]*entities.Invitation, error) {
	return r.list(func(inv *entities.Invitation) bool {
		return inv.IsPending() && inv.ProjectID == projectID
	}), nil
}

func (r *InvitationRepository) ListPendingByEmail(ctx context.Context, email string) ([]*entities.Invitation, error) {
	return r.list(func(inv *entities.Invitation) bool {
		return inv.IsPending() && inv.Email == email
	}), nil
}

func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.InvitationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.invitations[id]
	if !ok {
		return entities.ErrInvitationNotFound
	}
	inv.Status = status
	return nil
}

func (r *InvitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.invitations[id]; !ok {
		return entities.ErrInvitationNotFound
	}
	delete(r.s.invitations, id)
	return nil
}

func (r *InvitationRepository) DeleteByEmail(ctx context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, inv := range r.s.invitations {
		if inv.Email == email {
			delete(r.s.invitations, id)
		}
	}
	return nil
}

func (r *InvitationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, inv := range r.s.invitations {
		if inv.IsExpired(now) {
			delete(r.s.invitations, id)
			n++
		}
	}
	return n, nil
}

func (r *InvitationRepository) findOne(match func(*entities.Invitation) bool) (*entities.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, inv := range r.s.invitations {
		if match(inv) {
			return cloneInvitation(inv), nil
		}
	}
	return nil, entities.ErrInvitationNotFound
}

func (r *InvitationRepository) list(match func(*entities.Invitation) bool) []*entities.Invitation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.Invitation{}
	for _, inv := range r.s.invitations {
		if match(inv) {
			out = append(out, cloneInvitation(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
