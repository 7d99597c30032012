package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// ProjectHandler handles project-related requests
type ProjectHandler struct {
	projectService  ports.ProjectService
	activityService ports.ActivityService
	logger          *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService ports.ProjectService, activityService ports.ActivityService, logger *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService:  projectService,
		activityService: activityService,
		logger:          logger,
	}
}

// ListTemplates godoc
// @Summary Project templates
// @Description Boards a new project can start from
// @Tags projects
// @Produce json
// @Success 200 {array} entities.ProjectTemplate
// @Security SessionCookie
// @Router /templates [get]
func (h *ProjectHandler) ListTemplates(c echo.Context) error {
	return c.JSON(http.StatusOK, h.projectService.Templates())
}

// CreateProject godoc
// @Summary Create a new project
// @Description Creates a project owned by the caller with a generated key
// @Tags projects
// @Accept json
// @Produce json
// @Param request body ports.CreateProjectRequest true "Project data"
// @Success 201 {object} entities.Project
// @Failure 400 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), userID, req)
	if err != nil {
		return toHTTPError(h.logger, "Create project", err)
	}

	h.logger.LogUserAction(userID.String(), "project_created", map[string]interface{}{"project_id": project.ID})
	return c.JSON(http.StatusCreated, project)
}

// ListProjects godoc
// @Summary List projects
// @Description Projects the caller owns or belongs to, newest first
// @Tags projects
// @Produce json
// @Success 200 {array} entities.Project
// @Security SessionCookie
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	projects, err := h.projectService.ListProjects(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(h.logger, "List projects", err)
	}
	return c.JSON(http.StatusOK, projects)
}

// GetProject godoc
// @Summary Get project by ID
// @Description Project with owner and members populated
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ports.ProjectDetails
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projectService.GetProject(c.Request().Context(), getUserIDFromContext(c), projectID)
	if err != nil {
		return toHTTPError(h.logger, "Get project", err)
	}
	return c.JSON(http.StatusOK, project)
}

// UpdateProject godoc
// @Summary Update project settings
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.UpdateProjectRequest true "Settings"
// @Success 200 {object} entities.Project
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.UpdateProject(c.Request().Context(), getUserIDFromContext(c), projectID, req)
	if err != nil {
		return toHTTPError(h.logger, "Update project", err)
	}
	return c.JSON(http.StatusOK, project)
}

// UpdateColumns godoc
// @Summary Replace board columns
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.UpdateColumnsRequest true "Columns in display order"
// @Success 200 {object} entities.Project
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/columns [put]
func (h *ProjectHandler) UpdateColumns(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateColumnsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.UpdateColumns(c.Request().Context(), getUserIDFromContext(c), projectID, req)
	if err != nil {
		return toHTTPError(h.logger, "Update columns", err)
	}
	return c.JSON(http.StatusOK, project)
}

// UpdateLabels godoc
// @Summary Replace project labels
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.UpdateLabelsRequest true "Labels"
// @Success 200 {object} entities.Project
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/labels [put]
func (h *ProjectHandler) UpdateLabels(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateLabelsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.UpdateLabels(c.Request().Context(), getUserIDFromContext(c), projectID, req)
	if err != nil {
		return toHTTPError(h.logger, "Update labels", err)
	}
	return c.JSON(http.StatusOK, project)
}

// ListMembers godoc
// @Summary Project members
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} ports.MemberView
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/members [get]
func (h *ProjectHandler) ListMembers(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	members, err := h.projectService.ListMembers(c.Request().Context(), getUserIDFromContext(c), projectID)
	if err != nil {
		return toHTTPError(h.logger, "List members", err)
	}
	return c.JSON(http.StatusOK, members)
}

// RemoveMember godoc
// @Summary Remove a member
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Param userId path string true "Member user ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	memberID, err := parseUUIDParam(c, "userId")
	if err != nil {
		return err
	}

	if err := h.projectService.RemoveMember(c.Request().Context(), getUserIDFromContext(c), projectID, memberID); err != nil {
		return toHTTPError(h.logger, "Remove member", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Member removed"})
}

// DismissOnboarding godoc
// @Summary Hide the project onboarding checklist
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ports.MessageResponse
// @Security SessionCookie
// @Router /projects/{id}/onboarding/dismiss [post]
func (h *ProjectHandler) DismissOnboarding(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.projectService.DismissOnboarding(c.Request().Context(), getUserIDFromContext(c), projectID); err != nil {
		return toHTTPError(h.logger, "Dismiss onboarding", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Onboarding dismissed"})
}

// GetActivity godoc
// @Summary Project activity
// @Description Latest 100 entries with actor and task populated
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} ports.ActivityView
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/activity [get]
func (h *ProjectHandler) GetActivity(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.activityService.ProjectActivity(c.Request().Context(), getUserIDFromContext(c), projectID)
	if err != nil {
		return toHTTPError(h.logger, "Project activity", err)
	}
	return c.JSON(http.StatusOK, entries)
}

// DeleteProject godoc
// @Summary Delete a project
// @Description Removes the project with its tasks, invitations and activity
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	userID := getUserIDFromContext(c)
	if err := h.projectService.DeleteProject(c.Request().Context(), userID, projectID); err != nil {
		return toHTTPError(h.logger, "Delete project", err)
	}

	h.logger.LogUserAction(userID.String(), "project_deleted", map[string]interface{}{"project_id": projectID})
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Project deleted"})
}
