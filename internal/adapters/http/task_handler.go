package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// TaskHandler handles board and task-related requests
type TaskHandler struct {
	taskService     ports.TaskService
	activityService ports.ActivityService
	logger          *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, activityService ports.ActivityService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:     taskService,
		activityService: activityService,
		logger:          logger,
	}
}

// CreateTask godoc
// @Summary Create a task
// @Description Adds a task at the end of its column and assigns the next ticket id
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} ports.TaskView
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), getUserIDFromContext(c), projectID, req)
	if err != nil {
		return toHTTPError(h.logger, "Create task", err)
	}
	return c.JSON(http.StatusCreated, task)
}

// ListTasks godoc
// @Summary Board tasks
// @Description All tasks of a project ordered by position
// @Tags tasks
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {array} ports.TaskView
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), getUserIDFromContext(c), projectID)
	if err != nil {
		return toHTTPError(h.logger, "List tasks", err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// GetTask godoc
// @Summary Get task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} ports.TaskView
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), getUserIDFromContext(c), taskID)
	if err != nil {
		return toHTTPError(h.logger, "Get task", err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Update a task
// @Description Partial update; null assigneeId or dueDate clears the field
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.UpdateTaskRequest true "Changed fields"
// @Success 200 {object} ports.TaskView
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), getUserIDFromContext(c), taskID, req)
	if err != nil {
		return toHTTPError(h.logger, "Update task", err)
	}
	return c.JSON(http.StatusOK, task)
}

// MoveTask godoc
// @Summary Move a task
// @Description Sets the column and position of a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.MoveTaskRequest true "Target column and order"
// @Success 200 {object} entities.Task
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id}/move [put]
func (h *TaskHandler) MoveTask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.MoveTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.MoveTask(c.Request().Context(), getUserIDFromContext(c), taskID, req)
	if err != nil {
		return toHTTPError(h.logger, "Move task", err)
	}
	return c.JSON(http.StatusOK, task)
}

// AddComment godoc
// @Summary Comment on a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.AddCommentRequest true "Comment"
// @Success 201 {object} ports.CommentView
// @Failure 400 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.AddCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.taskService.AddComment(c.Request().Context(), getUserIDFromContext(c), taskID, req)
	if err != nil {
		return toHTTPError(h.logger, "Add comment", err)
	}
	return c.JSON(http.StatusCreated, comment)
}

// AddSubtask godoc
// @Summary Add a subtask
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body ports.AddSubtaskRequest true "Subtask"
// @Success 201 {array} entities.Subtask
// @Failure 400 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id}/subtasks [post]
func (h *TaskHandler) AddSubtask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.AddSubtaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	subtasks, err := h.taskService.AddSubtask(c.Request().Context(), getUserIDFromContext(c), taskID, req)
	if err != nil {
		return toHTTPError(h.logger, "Add subtask", err)
	}
	return c.JSON(http.StatusCreated, subtasks)
}

// ToggleSubtask godoc
// @Summary Toggle a subtask
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param subtaskId path string true "Subtask ID"
// @Success 200 {array} entities.Subtask
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id}/subtasks/{subtaskId} [patch]
func (h *TaskHandler) ToggleSubtask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	subtaskID, err := parseUUIDParam(c, "subtaskId")
	if err != nil {
		return err
	}

	subtasks, err := h.taskService.ToggleSubtask(c.Request().Context(), getUserIDFromContext(c), taskID, subtaskID)
	if err != nil {
		return toHTTPError(h.logger, "Toggle subtask", err)
	}
	return c.JSON(http.StatusOK, subtasks)
}

// DeleteSubtask godoc
// @Summary Delete a subtask
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param subtaskId path string true "Subtask ID"
// @Success 200 {array} entities.Subtask
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id}/subtasks/{subtaskId} [delete]
func (h *TaskHandler) DeleteSubtask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}
	subtaskID, err := parseUUIDParam(c, "subtaskId")
	if err != nil {
		return err
	}

	subtasks, err := h.taskService.DeleteSubtask(c.Request().Context(), getUserIDFromContext(c), taskID, subtaskID)
	if err != nil {
		return toHTTPError(h.logger, "Delete subtask", err)
	}
	return c.JSON(http.StatusOK, subtasks)
}

// GetActivity godoc
// @Summary Task activity
// @Description Audit entries for one task, newest first
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {array} ports.ActivityView
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id}/activity [get]
func (h *TaskHandler) GetActivity(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	entries, err := h.activityService.TaskActivity(c.Request().Context(), getUserIDFromContext(c), taskID)
	if err != nil {
		return toHTTPError(h.logger, "Task activity", err)
	}
	return c.JSON(http.StatusOK, entries)
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} ports.MessageResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	taskID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), getUserIDFromContext(c), taskID); err != nil {
		return toHTTPError(h.logger, "Delete task", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Task deleted"})
}
