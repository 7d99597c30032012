package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
)

// ProjectRepository is the in-memory project store
type ProjectRepository struct {
	s *Store
}

func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.projects {
		if p.Key == project.Key {
			return entities.ErrProjectKeyTaken
		}
	}
	r.s.projects[project.ID] = cloneProject(project)
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, entities.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (r *ProjectRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.projects {
		if p.Key == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *ProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	projects := []*entities.Project{}
	for _, p := range r.s.projects {
		if p.IsMember(userID) {
			projects = append(projects, cloneProject(p))
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[project.ID]
	if !ok {
		return entities.ErrProjectNotFound
	}
	for _, other := range r.s.projects {
		if other.ID != project.ID && other.Key == project.Key {
			return entities.ErrProjectKeyTaken
		}
	}

	next := cloneProject(project)
	p.Name = next.Name
	p.Description = next.Description
	p.Key = next.Key
	p.Columns = next.Columns
	p.Labels = next.Labels
	p.OnboardingDismissed = next.OnboardingDismissed
	p.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *ProjectRepository) IncrementTaskCount(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, entities.ErrProjectNotFound
	}
	p.TaskCount++
	return cloneProject(p), nil
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID uuid.UUID, member entities.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[projectID]
	if !ok {
		return entities.ErrProjectNotFound
	}
	for _, m := range p.Members {
		if m.UserID == member.UserID {
			return nil
		}
	}
	p.Members = append(p.Members, member)
	return nil
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.projects[projectID]
	if !ok {
		return entities.ErrProjectNotFound
	}
	p.Members = withoutMember(p.Members, userID)
	return nil
}

func (r *ProjectRepository) RemoveMemberEverywhere(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.projects {
		p.Members = withoutMember(p.Members, userID)
	}
	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[id]; !ok {
		return entities.ErrProjectNotFound
	}
	delete(r.s.projects, id)

	for tid, t := range r.s.tasks {
		if t.ProjectID == id {
			delete(r.s.tasks, tid)
		}
	}
	for iid, inv := range r.s.invitations {
		if inv.ProjectID == id {
			delete(r.s.invitations, iid)
		}
	}
	kept := r.s.activity[:0]
	for _, a := range r.s.activity {
		if a.ProjectID != id {
			kept = append(kept, a)
		}
	}
	r.s.activity = kept
	return nil
}

func withoutMember(members []entities.Member, userID uuid.UUID) []entities.Member {
	out := members[:0]
	for _, m := range members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}
