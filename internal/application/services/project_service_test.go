package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")

	p, err := env.projects.CreateProject(ctx, owner.ID, ports.CreateProjectRequest{Name: " Flow ", Description: "board"})
	require.NoError(t, err)
	assert.Equal(t, "Flow", p.Name)
	assert.Equal(t, "FLO", p.Key)
	assert.Equal(t, 0, p.TaskCount)
	assert.Equal(t, entities.DefaultColumns(), p.Columns)
	assert.True(t, p.IsAdmin(owner.ID))
	require.Len(t, p.Members, 1)
	assert.Equal(t, entities.MemberRoleAdmin, p.Members[0].Role)
	assert.Equal(t, []entities.ActivityAction{entities.ActionProjectCreated}, env.actions(t, p.ID))

	// Colliding keys get a numeric suffix.
	second, err := env.projects.CreateProject(ctx, owner.ID, ports.CreateProjectRequest{Name: "Flow"})
	require.NoError(t, err)
	assert.Equal(t, "FLO1", second.Key)
	third, err := env.projects.CreateProject(ctx, owner.ID, ports.CreateProjectRequest{Name: "Flowchart"})
	require.NoError(t, err)
	assert.Equal(t, "FLO2", third.Key)

	_, err = env.projects.CreateProject(ctx, owner.ID, ports.CreateProjectRequest{Name: "   "})
	assert.ErrorIs(t, err, entities.ErrProjectNameRequired)
}

func TestCreateProjectFromTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")

	p, err := env.projects.CreateProject(ctx, owner.ID, ports.CreateProjectRequest{Name: "Hiring", Template: "hr"})
	require.NoError(t, err)
	require.Len(t, p.Columns, 7)
	assert.Equal(t, "APPLIED", p.Columns[0].ID)
	assert.Len(t, p.Labels, 4)

	_, err = env.projects.CreateProject(ctx, owner.ID, ports.CreateProjectRequest{Name: "X", Template: "nope"})
	assert.ErrorIs(t, err, entities.ErrUnknownTemplate)

	assert.Len(t, env.projects.Templates(), 5)
}

func TestProjectAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	member := env.signup(t, "Member", "member@example.com")
	stranger := env.signup(t, "Stranger", "stranger@example.com")

	p := env.project(t, owner, "Flow")
	env.join(t, p.ID, member, entities.MemberRoleMember)

	details, err := env.projects.GetProject(ctx, member.ID, p.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Owner)
	assert.Equal(t, owner.ID, details.Owner.ID)
	assert.Len(t, details.Members, 2)

	_, err = env.projects.GetProject(ctx, stranger.ID, p.ID)
	assert.ErrorIs(t, err, entities.ErrNotProjectMember)

	_, err = env.projects.GetProject(ctx, owner.ID, uuid.New())
	assert.ErrorIs(t, err, entities.ErrProjectNotFound)

	update := ports.UpdateProjectRequest{Name: "Renamed", Key: "REN"}
	_, err = env.projects.UpdateProject(ctx, member.ID, p.ID, update)
	assert.ErrorIs(t, err, entities.ErrForbidden)
	_, err = env.projects.UpdateColumns(ctx, member.ID, p.ID, ports.UpdateColumnsRequest{Columns: entities.DefaultColumns()})
	assert.ErrorIs(t, err, entities.ErrForbidden)
	assert.ErrorIs(t, env.projects.DeleteProject(ctx, member.ID, p.ID), entities.ErrForbidden)

	// Members can see the board list and dismiss onboarding.
	list, err := env.projects.ListProjects(ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	require.NoError(t, env.projects.DismissOnboarding(ctx, member.ID, p.ID))
	stored, err := env.repos.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.OnboardingDismissed)

	list, err = env.projects.ListProjects(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	p := env.project(t, owner, "Flow")
	env.project(t, owner, "Taken")

	tests := []struct {
		name    string
		req     ports.UpdateProjectRequest
		wantErr error
	}{
		{"invalid key", ports.UpdateProjectRequest{Name: "Flow", Key: "1X"}, entities.ErrInvalidProjectKey},
		{"key in use", ports.UpdateProjectRequest{Name: "Flow", Key: "tak"}, entities.ErrProjectKeyTaken},
		{"blank name", ports.UpdateProjectRequest{Name: " ", Key: "FLO"}, entities.ErrProjectNameRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.projects.UpdateProject(ctx, owner.ID, p.ID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	updated, err := env.projects.UpdateProject(ctx, owner.ID, p.ID, ports.UpdateProjectRequest{Name: "Flow HQ", Description: "new", Key: "flow"})
	require.NoError(t, err)
	assert.Equal(t, "FLOW", updated.Key)
	assert.Equal(t, "Flow HQ", updated.Name)

	// An identical update records nothing.
	_, err = env.projects.UpdateProject(ctx, owner.ID, p.ID, ports.UpdateProjectRequest{Name: "Flow HQ", Description: "new", Key: "FLOW"})
	require.NoError(t, err)
	assert.Equal(t, []entities.ActivityAction{entities.ActionProjectUpdated, entities.ActionProjectCreated}, env.actions(t, p.ID))
}

func TestUpdateColumnsAndLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	p := env.project(t, owner, "Flow")

	updated, err := env.projects.UpdateColumns(ctx, owner.ID, p.ID, ports.UpdateColumnsRequest{Columns: []entities.Column{
		{ID: "BACKLOG", Title: "Backlog", Order: 5},
		{ID: "DONE", Title: "Done", Order: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Columns[0].Order)
	assert.Equal(t, 1, updated.Columns[1].Order)

	_, err = env.projects.UpdateColumns(ctx, owner.ID, p.ID, ports.UpdateColumnsRequest{Columns: []entities.Column{
		{ID: "A", Title: "A"}, {ID: "A", Title: "B"},
	}})
	assert.ErrorIs(t, err, entities.ErrInvalidColumns)

	updated, err = env.projects.UpdateLabels(ctx, owner.ID, p.ID, ports.UpdateLabelsRequest{Labels: []entities.Label{
		{ID: "bug", Name: "Bug", Color: "#ef4444"},
	}})
	require.NoError(t, err)
	assert.Len(t, updated.Labels, 1)

	_, err = env.projects.UpdateLabels(ctx, owner.ID, p.ID, ports.UpdateLabelsRequest{Labels: []entities.Label{
		{ID: "bug", Name: "Bug", Color: "red"},
	}})
	assert.ErrorIs(t, err, entities.ErrInvalidLabels)

	stored, err := env.repos.Projects.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "BACKLOG", stored.Columns[0].ID)
	assert.Equal(t, "bug", stored.Labels[0].ID)
}

func TestRemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	admin := env.signup(t, "Admin", "admin@example.com")
	member := env.signup(t, "Member", "member@example.com")
	p := env.project(t, owner, "Flow")
	env.join(t, p.ID, admin, entities.MemberRoleAdmin)
	env.join(t, p.ID, member, entities.MemberRoleMember)

	assert.ErrorIs(t, env.projects.RemoveMember(ctx, admin.ID, p.ID, owner.ID), entities.ErrOwnerRemoval)
	assert.ErrorIs(t, env.projects.RemoveMember(ctx, member.ID, p.ID, admin.ID), entities.ErrForbidden)

	require.NoError(t, env.projects.RemoveMember(ctx, admin.ID, p.ID, member.ID))
	require.NoError(t, env.projects.RemoveMember(ctx, admin.ID, p.ID, member.ID))

	members, err := env.projects.ListMembers(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, entities.ActionMemberRemoved, env.actions(t, p.ID)[0])
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	p := env.project(t, owner, "Flow")
	task := env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "one"})

	require.NoError(t, env.projects.DeleteProject(ctx, owner.ID, p.ID))

	_, err := env.projects.GetProject(ctx, owner.ID, p.ID)
	assert.ErrorIs(t, err, entities.ErrProjectNotFound)
	_, err = env.repos.Tasks.GetByID(ctx, task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
	assert.Empty(t, env.actions(t, p.ID))
}
