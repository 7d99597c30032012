package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

// TaskRepository is the in-memory task store
type TaskRepository struct {
	s *Store
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *TaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tasks := []*entities.Task{}
	for _, t := range r.s.tasks {
		if filter.ProjectIDs != nil && !containsID(filter.ProjectIDs, t.ProjectID) {
			continue
		}
		if filter.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if filter.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*filter.DueBefore)) {
			continue
		}
		tasks = append(tasks, cloneTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (r *TaskRepository) MaxOrder(ctx context.Context, projectID uuid.UUID, status string) (int, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	max, found := 0, false
	for _, t := range r.s.tasks {
		if t.ProjectID != projectID || t.Status != status {
			continue
		}
		if !found || t.Order > max {
			max, found = t.Order, true
		}
	}
	return max, found, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.tasks[task.ID]
	if !ok {
		return entities.ErrTaskNotFound
	}
	next := cloneTask(task)
	next.Comments = existing.Comments
	r.s.tasks[task.ID] = next
	return nil
}

func (r *TaskRepository) UpdatePosition(ctx context.Context, id uuid.UUID, status string, order int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return entities.ErrTaskNotFound
	}
	t.Status = status
	t.Order = order
	t.UpdatedAt = time.Now()
	return nil
}

func (r *TaskRepository) AddComment(ctx context.Context, taskID uuid.UUID, comment entities.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[taskID]
	if !ok {
		return entities.ErrTaskNotFound
	}
	t.Comments = append(t.Comments, comment)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	delete(r.s.tasks, id)
	return nil
}
