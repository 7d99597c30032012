package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

// memberProject loads a project the user belongs to.
func memberProject(ctx context.Context, repo ports.ProjectRepository, projectID, userID uuid.UUID) (*entities.Project, error) {
	project, err := repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if !project.IsMember(userID) {
		return nil, entities.ErrNotProjectMember
	}
	return project, nil
}

// adminProject loads a project the user administers.
func adminProject(ctx context.Context, repo ports.ProjectRepository, projectID, userID uuid.UUID) (*entities.Project, error) {
	project, err := memberProject(ctx, repo, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !project.IsAdmin(userID) {
		return nil, entities.ErrForbidden
	}
	return project, nil
}

// userSummaries resolves ids to public user projections. Unknown ids are
// left out of the map.
func userSummaries(ctx context.Context, repo ports.UserRepository, ids []uuid.UUID) (map[uuid.UUID]entities.UserSummary, error) {
	out := make(map[uuid.UUID]entities.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	users, err := repo.GetByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func summaryPtr(m map[uuid.UUID]entities.UserSummary, id uuid.UUID) *entities.UserSummary {
	if s, ok := m[id]; ok {
		return &s
	}
	return nil
}
