package memory

import (
	"context"
	"sort"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

// ActivityRepository is the in-memory activity trail
type ActivityRepository struct {
	s *Store
}

func (r *ActivityRepository) Create(ctx context.Context, entry *entities.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.activity = append(r.s.activity, cloneActivity(entry))
	return nil
}

func (r *ActivityRepository) List(ctx context.Context, filter ports.ActivityFilter) ([]*entities.ActivityLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.ActivityLog{}
	for i := len(r.s.activity) - 1; i >= 0; i-- {
		a := r.s.activity[i]
		if filter.ProjectIDs != nil && !containsID(filter.ProjectIDs, a.ProjectID) {
			continue
		}
		if filter.TaskID != nil && (a.TaskID == nil || *a.TaskID != *filter.TaskID) {
			continue
		}
		if filter.Since != nil && a.CreatedAt.Before(*filter.Since) {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, a.Action) {
			continue
		}
		out = append(out, cloneActivity(a))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsAction(actions []entities.ActivityAction, a entities.ActivityAction) bool {
	for _, v := range actions {
		if v == a {
			return true
		}
	}
	return false
}
