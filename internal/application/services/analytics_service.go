package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

const (
	overdueLimit     = 10
	defaultTrendDays = 7
	maxTrendDays     = 90
	weekWindow       = 7 * 24 * time.Hour
	dayLayout        = "2006-01-02"
)

// AnalyticsService aggregates board data for the dashboard. Completion is
// inferred from column names, see Project.IsCompletedStatus.
type AnalyticsService struct {
	taskRepo     ports.TaskRepository
	projectRepo  ports.ProjectRepository
	activityRepo ports.ActivityRepository
	userRepo     ports.UserRepository
	logger       *logger.Logger
	now          func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, activityRepo ports.ActivityRepository, userRepo ports.UserRepository, logger *logger.Logger) *AnalyticsService {
	return &AnalyticsService{
		taskRepo:     taskRepo,
		projectRepo:  projectRepo,
		activityRepo: activityRepo,
		userRepo:     userRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// TaskStats counts tasks across every project the user can see
func (s *AnalyticsService) TaskStats(ctx context.Context, userID uuid.UUID) (*ports.TaskStats, error) {
	projects, tasks, err := s.userTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &ports.TaskStats{}
	now := s.now()
	for _, t := range tasks {
		if p, ok := projects[t.ProjectID]; ok {
			s.tally(stats, p, t, now)
		}
	}
	return stats, nil
}

func (s *AnalyticsService) tally(stats *ports.TaskStats, project *entities.Project, t *entities.Task, now time.Time) {
	stats.Total++
	completed := project.IsCompletedStatus(t.Status)
	switch {
	case completed:
		stats.Completed++
		if now.Sub(t.UpdatedAt) <= weekWindow {
			stats.CompletedThisWeek++
		}
	case project.IsInProgressStatus(t.Status):
		stats.InProgress++
	}
	if !completed && t.IsOverdue(now) {
		stats.Overdue++
	}
}

// OverdueTasks lists the earliest-due unfinished tasks
func (s *AnalyticsService) OverdueTasks(ctx context.Context, userID uuid.UUID) ([]*ports.OverdueTask, error) {
	projects, tasks, err := s.userTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var out []*ports.OverdueTask
	for _, t := range tasks {
		p, ok := projects[t.ProjectID]
		if !ok || !t.IsOverdue(now) || p.IsCompletedStatus(t.Status) {
			continue
		}
		out = append(out, &ports.OverdueTask{Task: t, ProjectName: p.Name})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(*out[j].DueDate)
	})
	if len(out) > overdueLimit {
		out = out[:overdueLimit]
	}
	if out == nil {
		out = []*ports.OverdueTask{}
	}
	return out, nil
}

// CompletionTrend counts completions per UTC day for the last n days,
// oldest first, including today. Days without completions report zero.
func (s *AnalyticsService) CompletionTrend(ctx context.Context, userID uuid.UUID, days int) ([]ports.TrendPoint, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	projects, err := s.projectRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	buckets := make(map[string]int, days)
	points := make([]ports.TrendPoint, 0, days)
	for d := 0; d < days; d++ {
		key := start.AddDate(0, 0, d).Format(dayLayout)
		buckets[key] = 0
		points = append(points, ports.TrendPoint{Date: key})
	}

	if len(projects) == 0 {
		return points, nil
	}

	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}

	entries, err := s.activityRepo.List(ctx, ports.ActivityFilter{
		ProjectIDs: ids,
		Actions:    []entities.ActivityAction{entities.ActionTaskMoved, entities.ActionTaskUpdated},
		Since:      &start,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	for _, e := range entries {
		if !e.CountsAsCompletion() {
			continue
		}
		key := e.CreatedAt.UTC().Format(dayLayout)
		if _, ok := buckets[key]; ok {
			buckets[key]++
		}
	}
	for i := range points {
		points[i].Count = buckets[points[i].Date]
	}
	return points, nil
}

// ProjectStats breaks one project's tasks down by column, priority and assignee
func (s *AnalyticsService) ProjectStats(ctx context.Context, userID, projectID uuid.UUID) (*ports.ProjectStats, error) {
	project, err := memberProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{ProjectIDs: []uuid.UUID{projectID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	stats := &ports.ProjectStats{
		ByColumn:   make([]ports.ColumnCount, 0, len(project.Columns)),
		ByPriority: map[entities.Priority]int{},
		Workload:   []ports.AssigneeLoad{},
	}
	columnIndex := make(map[string]int, len(project.Columns))
	for i, c := range project.Columns {
		columnIndex[c.ID] = i
		stats.ByColumn = append(stats.ByColumn, ports.ColumnCount{ColumnID: c.ID, Title: c.Title})
	}

	now := s.now()
	open := map[uuid.UUID]int{}
	for _, t := range tasks {
		s.tally(&stats.TaskStats, project, t, now)
		stats.ByPriority[t.Priority]++

		if c, ok := project.ColumnFor(t.Status); ok {
			stats.ByColumn[columnIndex[c.ID]].Count++
		}

		if project.IsCompletedStatus(t.Status) {
			continue
		}
		if t.AssigneeID == nil {
			stats.Unassigned++
		} else {
			open[*t.AssigneeID]++
		}
	}

	ids := make([]uuid.UUID, 0, len(open))
	for id := range open {
		ids = append(ids, id)
	}
	users, err := userSummaries(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		stats.Workload = append(stats.Workload, ports.AssigneeLoad{
			UserID:    id,
			User:      summaryPtr(users, id),
			OpenTasks: open[id],
		})
	}
	sort.Slice(stats.Workload, func(i, j int) bool {
		if stats.Workload[i].OpenTasks != stats.Workload[j].OpenTasks {
			return stats.Workload[i].OpenTasks > stats.Workload[j].OpenTasks
		}
		return stats.Workload[i].UserID.String() < stats.Workload[j].UserID.String()
	})
	return stats, nil
}

func (s *AnalyticsService) userTasks(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]*entities.Project, []*entities.Task, error) {
	projects, err := s.projectRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		return map[uuid.UUID]*entities.Project{}, nil, nil
	}

	byID := make(map[uuid.UUID]*entities.Project, len(projects))
	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{ProjectIDs: ids})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return byID, tasks, nil
}
