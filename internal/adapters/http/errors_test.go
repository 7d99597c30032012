package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{entities.ErrTaskNotFound, http.StatusNotFound, "task not found"},
		{fmt.Errorf("failed to load invitation: %w", entities.ErrInvitationNotFound), http.StatusNotFound, "invitation not found"},
		{entities.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{entities.ErrNotProjectMember, http.StatusForbidden, "not a member of this project"},
		{entities.ErrForbidden, http.StatusForbidden, "insufficient project permissions"},
		{entities.ErrProjectKeyTaken, http.StatusConflict, "project key already in use"},
		{entities.ErrInvitationExpired, http.StatusGone, "invitation has expired"},
		{entities.ErrUnknownColumn, http.StatusBadRequest, "status does not match any column"},
		{entities.ErrNameRequired, http.StatusBadRequest, "name is required"},
		{fmt.Errorf("%w: bad email", entities.ErrInvalidInput), http.StatusBadRequest, "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := toHTTPError(logger.NewNop(), "op", tt.err)

			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, tt.code, he.Code)
			assert.Equal(t, tt.msg, he.Message)
		})
	}
}

func TestToHTTPErrorHidesUnknownErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	cause := errors.New("connection reset")

	err := toHTTPError(logger.FromZap(zap.New(core)), "Create task", cause)

	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
	assert.Equal(t, "Something went wrong", he.Message)
	assert.ErrorIs(t, he.Internal, cause)

	entries := logs.FilterMessage("Create task failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection reset", entries[0].ContextMap()["error"])
}

func TestValidationMessage(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name string
		req  interface{}
		want string
	}{
		{
			name: "required and email",
			req:  ports.SignupRequest{Email: "nope", Password: "secret123"},
			want: "Name is required; Email must be a valid email",
		},
		{
			name: "min length",
			req:  ports.SignupRequest{Name: "Jane", Email: "jane@example.com", Password: "abc"},
			want: "Password must be at least 6 characters",
		},
		{
			name: "oneof",
			req:  ports.InviteRequest{Email: "jane@example.com", Role: "OWNER"},
			want: "Role must be one of ADMIN MEMBER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.want, ValidationMessage(err))
		})
	}

	assert.Equal(t, "plain", ValidationMessage(errors.New("plain")))
}
