package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
)

// UserRepository is the in-memory user store
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return entities.ErrEmailTaken
		}
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r *UserRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*entities.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

func (r *UserRepository) Update(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return entities.ErrUserNotFound
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return entities.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}
