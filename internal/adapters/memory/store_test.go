package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

func newProject(t *testing.T, repos *ports.Repositories, key string, owner uuid.UUID) *entities.Project {
	t.Helper()
	p := &entities.Project{
		ID:        uuid.New(),
		Name:      key,
		Key:       key,
		OwnerID:   owner,
		Members:   []entities.Member{{UserID: owner, Role: entities.MemberRoleAdmin}},
		Columns:   entities.DefaultColumns(),
		CreatedAt: time.Now(),
	}
	require.NoError(t, repos.Projects.Create(context.Background(), p))
	return p
}

func TestProjectsAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	owner := uuid.New()
	p := newProject(t, repos, "FLO", owner)

	p.Name = "mutated"
	got, err := repos.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "FLO", got.Name)

	got.Columns[0].Title = "Backlog"
	again, err := repos.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "To Do", again.Columns[0].Title)
}

func TestProjectKeysAreUnique(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	newProject(t, repos, "FLO", uuid.New())

	err := repos.Projects.Create(ctx, &entities.Project{ID: uuid.New(), Key: "FLO"})
	assert.ErrorIs(t, err, entities.ErrProjectKeyTaken)

	exists, err := repos.Projects.KeyExists(ctx, "FLO")
	require.NoError(t, err)
	assert.True(t, exists)

	other := newProject(t, repos, "OPS", uuid.New())
	other.Key = "FLO"
	assert.ErrorIs(t, repos.Projects.Update(ctx, other), entities.ErrProjectKeyTaken)
}

func TestIncrementTaskCount(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	p := newProject(t, repos, "FLO", uuid.New())

	for want := 1; want <= 3; want++ {
		got, err := repos.Projects.IncrementTaskCount(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got.TaskCount)
	}

	_, err := repos.Projects.IncrementTaskCount(ctx, uuid.New())
	assert.ErrorIs(t, err, entities.ErrProjectNotFound)
}

func TestMembership(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	owner, bob := uuid.New(), uuid.New()
	p := newProject(t, repos, "FLO", owner)
	ops := newProject(t, repos, "OPS", owner)

	member := entities.Member{UserID: bob, Role: entities.MemberRoleMember}
	require.NoError(t, repos.Projects.AddMember(ctx, p.ID, member))
	require.NoError(t, repos.Projects.AddMember(ctx, p.ID, member))
	require.NoError(t, repos.Projects.AddMember(ctx, ops.ID, member))

	got, err := repos.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)

	listed, err := repos.Projects.ListForUser(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, repos.Projects.RemoveMemberEverywhere(ctx, bob))
	listed, err = repos.Projects.ListForUser(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	owner := uuid.New()
	p := newProject(t, repos, "FLO", owner)
	keep := newProject(t, repos, "OPS", owner)

	task := &entities.Task{ID: uuid.New(), ProjectID: p.ID, Title: "a", Status: "TODO"}
	require.NoError(t, repos.Tasks.Create(ctx, task))
	inv := &entities.Invitation{ID: uuid.New(), ProjectID: p.ID, Email: "bob@example.com", Token: "t", Status: entities.InvitationPending, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repos.Invitations.Create(ctx, inv))
	require.NoError(t, repos.Activity.Create(ctx, &entities.ActivityLog{ID: uuid.New(), ProjectID: p.ID, Action: entities.ActionTaskCreated, CreatedAt: time.Now()}))
	require.NoError(t, repos.Activity.Create(ctx, &entities.ActivityLog{ID: uuid.New(), ProjectID: keep.ID, Action: entities.ActionTaskCreated, CreatedAt: time.Now()}))

	require.NoError(t, repos.Projects.Delete(ctx, p.ID))

	_, err := repos.Tasks.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
	_, err = repos.Invitations.GetByID(ctx, inv.ID)
	assert.ErrorIs(t, err, entities.ErrInvitationNotFound)

	entries, err := repos.Activity.List(ctx, ports.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, keep.ID, entries[0].ProjectID)

	assert.ErrorIs(t, repos.Projects.Delete(ctx, p.ID), entities.ErrProjectNotFound)
}

func TestInvitationLookups(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	projectID := uuid.New()
	now := time.Now()

	live := &entities.Invitation{ID: uuid.New(), ProjectID: projectID, Email: "bob@example.com", Token: "live", Status: entities.InvitationPending, ExpiresAt: now.Add(time.Hour)}
	stale := &entities.Invitation{ID: uuid.New(), ProjectID: projectID, Email: "eve@example.com", Token: "stale", Status: entities.InvitationPending, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, repos.Invitations.Create(ctx, live))
	require.NoError(t, repos.Invitations.Create(ctx, stale))

	got, err := repos.Invitations.GetPendingByToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = repos.Invitations.FindPending(ctx, projectID, "nobody@example.com")
	assert.ErrorIs(t, err, entities.ErrInvitationNotFound)

	require.NoError(t, repos.Invitations.UpdateStatus(ctx, live.ID, entities.InvitationAccepted))
	_, err = repos.Invitations.GetPendingByToken(ctx, "live")
	assert.ErrorIs(t, err, entities.ErrInvitationNotFound)

	n, err := repos.Invitations.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestActivityNewestFirst(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories()
	projectID := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	for _, offset := range []int{2, 0, 1} {
		require.NoError(t, repos.Activity.Create(ctx, &entities.ActivityLog{
			ID:        uuid.New(),
			ProjectID: projectID,
			Action:    entities.ActionTaskCreated,
			CreatedAt: base.Add(time.Duration(offset) * time.Hour),
		}))
	}

	entries, err := repos.Activity.List(ctx, ports.ActivityFilter{ProjectIDs: []uuid.UUID{projectID}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, base.Add(2*time.Hour), entries[0].CreatedAt)
	assert.Equal(t, base.Add(time.Hour), entries[1].CreatedAt)

	since := base.Add(90 * time.Minute)
	entries, err = repos.Activity.List(ctx, ports.ActivityFilter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
