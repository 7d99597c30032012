package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// AnalyticsHandler serves dashboard statistics
type AnalyticsHandler struct {
	analyticsService ports.AnalyticsService
	logger           *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService ports.AnalyticsService, logger *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// TaskStats godoc
// @Summary Task counters across my projects
// @Tags analytics
// @Produce json
// @Success 200 {object} ports.TaskStats
// @Security SessionCookie
// @Router /analytics/stats [get]
func (h *AnalyticsHandler) TaskStats(c echo.Context) error {
	stats, err := h.analyticsService.TaskStats(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(h.logger, "Task stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// OverdueTasks godoc
// @Summary Overdue tasks
// @Description Up to ten open tasks past their due date, oldest first
// @Tags analytics
// @Produce json
// @Success 200 {array} ports.OverdueTask
// @Security SessionCookie
// @Router /analytics/overdue [get]
func (h *AnalyticsHandler) OverdueTasks(c echo.Context) error {
	tasks, err := h.analyticsService.OverdueTasks(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(h.logger, "Overdue tasks", err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// CompletionTrend godoc
// @Summary Completions per day
// @Tags analytics
// @Produce json
// @Param days query int false "Number of days (1-90)" default(7)
// @Success 200 {array} ports.TrendPoint
// @Failure 400 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /analytics/trend [get]
func (h *AnalyticsHandler) CompletionTrend(c echo.Context) error {
	days := 0
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid days")
		}
		days = n
	}

	trend, err := h.analyticsService.CompletionTrend(c.Request().Context(), getUserIDFromContext(c), days)
	if err != nil {
		return toHTTPError(h.logger, "Completion trend", err)
	}
	return c.JSON(http.StatusOK, trend)
}

// ProjectStats godoc
// @Summary Project statistics
// @Description Counts per column and priority plus open work per assignee
// @Tags analytics
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ports.ProjectStats
// @Failure 403 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /projects/{id}/stats [get]
func (h *AnalyticsHandler) ProjectStats(c echo.Context) error {
	projectID, err := parseUUIDParam(c, "id")
	if err != nil {
		return err
	}

	stats, err := h.analyticsService.ProjectStats(c.Request().Context(), getUserIDFromContext(c), projectID)
	if err != nil {
		return toHTTPError(h.logger, "Project stats", err)
	}
	return c.JSON(http.StatusOK, stats)
}
