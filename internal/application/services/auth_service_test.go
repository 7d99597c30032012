package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

func TestAuthSignup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, ports.SignupRequest{Name: "  Jane Doe ", Email: " Jane@Example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.NotEqual(t, testPassword, user.PasswordHash)
	assert.False(t, user.OnboardingCompleted)

	_, err = env.auth.Signup(ctx, ports.SignupRequest{Name: "Other", Email: "JANE@example.com", Password: testPassword})
	assert.ErrorIs(t, err, entities.ErrEmailTaken)
}

func TestAuthSignupRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  ports.SignupRequest
	}{
		{"name too long", ports.SignupRequest{Name: strings.Repeat("n", 61), Email: "jane@example.com", Password: testPassword}},
		{"blank name", ports.SignupRequest{Name: "   ", Email: "jane@example.com", Password: testPassword}},
		{"bad email", ports.SignupRequest{Name: "Jane", Email: "not-an-email", Password: testPassword}},
		{"short password", ports.SignupRequest{Name: "Jane", Email: "jane@example.com", Password: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			user, err := env.auth.Signup(ctx, tt.req)
			assert.ErrorIs(t, err, entities.ErrInvalidInput)
			assert.Nil(t, user)

			_, err = env.repos.Users.GetByEmail(ctx, entities.NormalizeEmail(tt.req.Email))
			assert.ErrorIs(t, err, entities.ErrUserNotFound)
		})
	}
}

func TestAuthLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signup(t, "Jane", "jane@example.com")

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid", "jane@example.com", testPassword, nil},
		{"email is case insensitive", " JANE@example.com ", testPassword, nil},
		{"wrong password", "jane@example.com", "nope", entities.ErrInvalidCredentials},
		{"unknown email", "ghost@example.com", testPassword, entities.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.auth.Login(ctx, ports.LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}
}
