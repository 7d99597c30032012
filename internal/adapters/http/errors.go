package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
)

var errorStatuses = []struct {
	err  error
	code int
}{
	{entities.ErrUserNotFound, http.StatusNotFound},
	{entities.ErrProjectNotFound, http.StatusNotFound},
	{entities.ErrTaskNotFound, http.StatusNotFound},
	{entities.ErrSubtaskNotFound, http.StatusNotFound},
	{entities.ErrInvitationNotFound, http.StatusNotFound},

	{entities.ErrInvalidCredentials, http.StatusUnauthorized},
	{entities.ErrUnauthorized, http.StatusUnauthorized},

	{entities.ErrNotProjectMember, http.StatusForbidden},
	{entities.ErrForbidden, http.StatusForbidden},
	{entities.ErrInvitationNotForUser, http.StatusForbidden},

	{entities.ErrEmailTaken, http.StatusConflict},
	{entities.ErrProjectKeyTaken, http.StatusConflict},
	{entities.ErrAlreadyMember, http.StatusConflict},
	{entities.ErrPendingInvitationExists, http.StatusConflict},

	{entities.ErrInvitationExpired, http.StatusGone},

	{entities.ErrPasswordMismatch, http.StatusBadRequest},
	{entities.ErrPasswordConfirmation, http.StatusBadRequest},
	{entities.ErrOwnerRemoval, http.StatusBadRequest},
	{entities.ErrInvalidProjectKey, http.StatusBadRequest},
	{entities.ErrUnknownColumn, http.StatusBadRequest},
	{entities.ErrUnknownLabel, http.StatusBadRequest},
	{entities.ErrInvalidColumns, http.StatusBadRequest},
	{entities.ErrInvalidLabels, http.StatusBadRequest},
	{entities.ErrAssigneeNotMember, http.StatusBadRequest},
	{entities.ErrInvitationNotPending, http.StatusBadRequest},
	{entities.ErrUnknownTemplate, http.StatusBadRequest},
	{entities.ErrProjectNameRequired, http.StatusBadRequest},
	{entities.ErrTaskTitleRequired, http.StatusBadRequest},
	{entities.ErrTextRequired, http.StatusBadRequest},
	{entities.ErrNameRequired, http.StatusBadRequest},
	{entities.ErrInvalidInput, http.StatusBadRequest},
}

// toHTTPError maps domain errors to HTTP errors carrying the sentinel's
// message. Anything unrecognised is logged and reported as a 500.
func toHTTPError(log *logger.Logger, op string, err error) error {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return echo.NewHTTPError(e.code, e.err.Error())
		}
	}

	log.Errorw(op+" failed", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "Something went wrong").SetInternal(err)
}
