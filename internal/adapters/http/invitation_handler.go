package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// InvitationHandler handles team invitations
type InvitationHandler struct {
	invitationService ports.InvitationService
	logger            *logger.Logger
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(invitationService ports.InvitationService, logger *logger.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		logger:            logger,
	}
}

// AcceptInvitationRequest carries the token from the invitation link.
type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

// Invite godoc
// @Summary Invite someone to a project
// @Description Creates a pending invitation and emails the link
// @Tags invitations
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.InviteRequest true "Invitee"
// @Success 201 {object} entities.Invitation
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Failure 429 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/invitations [post]
func (h *InvitationHandler) Invite(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.InviteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID := getUserIDFromContext(c)
	invitation, err := h.invitationService.Invite(c.Request().Context(), userID, projectID, req)
	if err != nil {
		return toHTTPError(h.logger, "Invite", err)
	}

	h.logger.LogUserAction(userID.String(), "invitation_sent", map[string]interface{}{
		"project_id":    projectID,
		"invitation_id": invitation.ID,
	})
	return c.JSON(http.StatusCreated, invitation)
}

// ListProjectInvitations godoc
// @Summary Pending invitations of a project
// @Tags invitations
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} entities.Invitation
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/invitations [get]
func (h *InvitationHandler) ListProjectInvitations(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	invitations, err := h.invitationService.ListProjectInvitations(c.Request().Context(), getUserIDFromContext(c), projectID)
	if err != nil {
		return toHTTPError(h.logger, "List project invitations", err)
	}
	return c.JSON(http.StatusOK, invitations)
}

// ListMine godoc
// @Summary My pending invitations
// @Tags invitations
// @Produce json
// @Success 200 {array} ports.InvitationView
// @Security SessionCookie
// @Router /invitations [get]
func (h *InvitationHandler) ListMine(c echo.Context) error {
	invitations, err := h.invitationService.ListMine(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(h.logger, "List invitations", err)
	}
	return c.JSON(http.StatusOK, invitations)
}

// Accept godoc
// @Summary Accept an invitation
// @Description Joins the project named by the invitation token
// @Tags invitations
// @Accept json
// @Produce json
// @Param request body AcceptInvitationRequest true "Invitation token"
// @Success 200 {object} entities.Project
// @Failure 404 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Failure 410 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /invitations/accept [post]
func (h *InvitationHandler) Accept(c echo.Context) error {
	var req AcceptInvitationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	userID := getUserIDFromContext(c)
	project, err := h.invitationService.Accept(c.Request().Context(), userID, req.Token)
	if err != nil {
		return toHTTPError(h.logger, "Accept invitation", err)
	}

	h.logger.LogUserAction(userID.String(), "invitation_accepted", map[string]interface{}{"project_id": project.ID})
	return c.JSON(http.StatusOK, project)
}

// Decline godoc
// @Summary Decline an invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /invitations/{id}/decline [post]
func (h *InvitationHandler) Decline(c echo.Context) error {
	invitationID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.invitationService.Decline(c.Request().Context(), getUserIDFromContext(c), invitationID); err != nil {
		return toHTTPError(h.logger, "Decline invitation", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Invitation declined"})
}

// Revoke godoc
// @Summary Revoke an invitation
// @Description Project admins withdraw a pending invitation
// @Tags invitations
// @Produce json
// @Param id path string true "Invitation ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /invitations/{id} [delete]
func (h *InvitationHandler) Revoke(c echo.Context) error {
	invitationID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.invitationService.Revoke(c.Request().Context(), getUserIDFromContext(c), invitationID); err != nil {
		return toHTTPError(h.logger, "Revoke invitation", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Invitation revoked"})
}
