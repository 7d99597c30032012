package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

const (
	taskActivityLimit    = 50
	projectActivityLimit = 100
)

// ActivityService writes and reads the audit trail
type ActivityService struct {
	activityRepo ports.ActivityRepository
	projectRepo  ports.ProjectRepository
	taskRepo     ports.TaskRepository
	userRepo     ports.UserRepository
	logger       *logger.Logger
	now          func() time.Time
}

// NewActivityService creates a new activity service
func NewActivityService(activityRepo ports.ActivityRepository, projectRepo ports.ProjectRepository, taskRepo ports.TaskRepository, userRepo ports.UserRepository, logger *logger.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		projectRepo:  projectRepo,
		taskRepo:     taskRepo,
		userRepo:     userRepo,
		logger:       logger.WithComponent("activity"),
		now:          time.Now,
	}
}

// Record appends an entry. Failures are logged and dropped so the action
// that triggered them still succeeds.
func (s *ActivityService) Record(ctx context.Context, entry entities.ActivityLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	if err := s.activityRepo.Create(context.WithoutCancel(ctx), &entry); err != nil {
		s.logger.Warnw("Failed to record activity",
			"error", err,
			"action", entry.Action,
			"project_id", entry.ProjectID,
		)
	}
}

// TaskActivity returns the latest entries for one task
func (s *ActivityService) TaskActivity(ctx context.Context, userID, taskID uuid.UUID) ([]*ports.ActivityView, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	if _, err := memberProject(ctx, s.projectRepo, task.ProjectID, userID); err != nil {
		return nil, err
	}

	entries, err := s.activityRepo.List(ctx, ports.ActivityFilter{
		TaskID: &taskID,
		Limit:  taskActivityLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return s.populate(ctx, entries, map[uuid.UUID]*entities.Task{task.ID: task})
}

// ProjectActivity returns the latest entries for a project
func (s *ActivityService) ProjectActivity(ctx context.Context, userID, projectID uuid.UUID) ([]*ports.ActivityView, error) {
	if _, err := memberProject(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	entries, err := s.activityRepo.List(ctx, ports.ActivityFilter{
		ProjectIDs: []uuid.UUID{projectID},
		Limit:      projectActivityLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{ProjectIDs: []uuid.UUID{projectID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	byID := make(map[uuid.UUID]*entities.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return s.populate(ctx, entries, byID)
}

func (s *ActivityService) populate(ctx context.Context, entries []*entities.ActivityLog, tasks map[uuid.UUID]*entities.Task) ([]*ports.ActivityView, error) {
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	users, err := userSummaries(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*ports.ActivityView, 0, len(entries))
	for _, e := range entries {
		v := &ports.ActivityView{ActivityLog: e, User: summaryPtr(users, e.UserID)}
		if e.TaskID != nil {
			if t, ok := tasks[*e.TaskID]; ok {
				v.Task = &ports.TaskRef{ID: t.ID, Title: t.Title, TicketID: t.TicketID}
			}
		}
		views = append(views, v)
	}
	return views, nil
}
