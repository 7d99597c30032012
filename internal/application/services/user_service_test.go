package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signup(t, "Jane", "jane@example.com")

	updated, err := env.users.UpdateProfile(ctx, user.ID, ports.UpdateProfileRequest{
		Name:   strPtr(" Jane Doe "),
		Avatar: strPtr("https://cdn.example.com/jane.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", updated.Name)
	require.NotNil(t, updated.Avatar)

	// An empty avatar clears it; an absent name is left alone.
	updated, err = env.users.UpdateProfile(ctx, user.ID, ports.UpdateProfileRequest{Avatar: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Avatar)
	assert.Equal(t, "Jane Doe", updated.Name)

	_, err = env.users.UpdateProfile(ctx, user.ID, ports.UpdateProfileRequest{Name: strPtr("   ")})
	assert.ErrorIs(t, err, entities.ErrNameRequired)

	stored, err := env.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", stored.Name)
	assert.Nil(t, stored.Avatar)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signup(t, "Jane", "jane@example.com")

	err := env.users.ChangePassword(ctx, user.ID, ports.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "newsecret", ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, entities.ErrPasswordConfirmation)

	err = env.users.ChangePassword(ctx, user.ID, ports.ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "newsecret", ConfirmPassword: "newsecret",
	})
	assert.ErrorIs(t, err, entities.ErrPasswordMismatch)

	err = env.users.ChangePassword(ctx, user.ID, ports.ChangePasswordRequest{
		CurrentPassword: testPassword, NewPassword: "newsecret", ConfirmPassword: "newsecret",
	})
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, ports.LoginRequest{Email: user.Email, Password: testPassword})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
	_, err = env.auth.Login(ctx, ports.LoginRequest{Email: user.Email, Password: "newsecret"})
	assert.NoError(t, err)
}

func TestCompleteOnboarding(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signup(t, "Jane", "jane@example.com")

	require.NoError(t, env.users.CompleteOnboarding(ctx, user.ID))
	require.NoError(t, env.users.CompleteOnboarding(ctx, user.ID))

	stored, err := env.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.OnboardingCompleted)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jane := env.signup(t, "Jane", "jane@example.com")
	bob := env.signup(t, "Bob", "bob@example.com")

	owned := env.project(t, jane, "Jane's Board")
	env.task(t, jane, owned.ID, ports.CreateTaskRequest{Title: "owned task"})

	shared := env.project(t, bob, "Bob's Board")
	env.join(t, shared.ID, jane, entities.MemberRoleMember)

	other := env.project(t, bob, "Bob's Other Board")
	_, err := env.invitations.Invite(ctx, bob.ID, other.ID, ports.InviteRequest{Email: jane.Email})
	require.NoError(t, err)

	require.NoError(t, env.users.DeleteAccount(ctx, jane.ID))

	_, err = env.repos.Users.GetByID(ctx, jane.ID)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)

	_, err = env.repos.Projects.GetByID(ctx, owned.ID)
	assert.ErrorIs(t, err, entities.ErrProjectNotFound)
	tasks, err := env.repos.Tasks.List(ctx, ports.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	p, err := env.repos.Projects.GetByID(ctx, shared.ID)
	require.NoError(t, err)
	assert.False(t, p.IsMember(jane.ID))

	pending, err := env.repos.Invitations.ListPendingByEmail(ctx, jane.Email)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
