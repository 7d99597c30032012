package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// TaskService handles board operations
type TaskService struct {
	taskRepo    ports.TaskRepository
	projectRepo ports.ProjectRepository
	userRepo    ports.UserRepository
	activity    ports.ActivityRecorder
	logger      *logger.Logger
	now         func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, userRepo ports.UserRepository, activity ports.ActivityRecorder, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		activity:    activity,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTask bumps the project's counter for the ticket id, then inserts the
// task at the end of its column. The two writes are independent: a failed
// insert leaves a gap in the ticket sequence.
func (s *TaskService) CreateTask(ctx context.Context, userID, projectID uuid.UUID, req ports.CreateTaskRequest) (*ports.TaskView, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entities.ErrTaskTitleRequired
	}

	project, err := memberProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	status, err := resolveStatus(project, req.Status)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = entities.PriorityMedium
	}

	if req.AssigneeID != nil && !project.IsMember(*req.AssigneeID) {
		return nil, entities.ErrAssigneeNotMember
	}
	if err := checkLabels(project, req.Labels); err != nil {
		return nil, err
	}

	counted, err := s.projectRepo.IncrementTaskCount(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve ticket number: %w", err)
	}

	order, err := s.nextOrder(ctx, projectID, status)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &entities.Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		TicketID:    entities.TicketID(counted.Key, counted.TaskCount),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      status,
		Priority:    priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		Labels:      append([]string{}, req.Labels...),
		Subtasks:    []entities.Subtask{},
		Comments:    []entities.Comment{},
		Order:       order,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Infow("Task created successfully", "task_id", task.ID, "ticket_id", task.TicketID)
	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: projectID,
		TaskID:    &task.ID,
		UserID:    userID,
		Action:    entities.ActionTaskCreated,
		NewValue:  task.Title,
		Metadata:  map[string]interface{}{"ticketId": task.TicketID, "status": task.Status},
	})

	return s.view(ctx, task)
}

// ListTasks returns the board's tasks ordered by position
func (s *TaskService) ListTasks(ctx context.Context, userID, projectID uuid.UUID) ([]*ports.TaskView, error) {
	if _, err := memberProject(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{ProjectIDs: []uuid.UUID{projectID}})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return s.views(ctx, tasks)
}

// GetTask returns one task with people populated
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*ports.TaskView, error) {
	task, _, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, task)
}

// MoveTask writes a drag-and-drop result. Siblings are not renumbered, so two
// concurrent moves can leave equal order values; the later write wins.
func (s *TaskService) MoveTask(ctx context.Context, userID, taskID uuid.UUID, req ports.MoveTaskRequest) (*entities.Task, error) {
	task, project, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	status, err := resolveStatus(project, req.Status)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.UpdatePosition(ctx, taskID, status, req.Order); err != nil {
		return nil, fmt.Errorf("failed to move task: %w", err)
	}

	previous := task.Status
	task.Status = status
	task.Order = req.Order
	task.UpdatedAt = s.now()

	if previous != status {
		s.activity.Record(ctx, entities.ActivityLog{
			ProjectID: project.ID,
			TaskID:    &task.ID,
			UserID:    userID,
			Action:    entities.ActionTaskMoved,
			Field:     "status",
			OldValue:  previous,
			NewValue:  status,
			Metadata: map[string]interface{}{
				"from": columnTitle(project, previous),
				"to":   columnTitle(project, status),
			},
		})
	}
	return task, nil
}

// UpdateTask applies a partial update and logs one entry per changed field
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) (*ports.TaskView, error) {
	task, project, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	var changes []entities.ActivityLog
	field := func(name, oldValue, newValue string) {
		changes = append(changes, entities.ActivityLog{
			Action:   entities.ActionTaskUpdated,
			Field:    name,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, entities.ErrTaskTitleRequired
		}
		if title != task.Title {
			field("title", task.Title, title)
			task.Title = title
		}
	}

	if req.Description != nil && *req.Description != task.Description {
		field("description", "", "")
		task.Description = *req.Description
	}

	if req.Priority != nil && *req.Priority != task.Priority {
		field("priority", string(task.Priority), string(*req.Priority))
		task.Priority = *req.Priority
	}

	if req.Status != nil {
		status, err := resolveStatus(project, *req.Status)
		if err != nil {
			return nil, err
		}
		if status != task.Status {
			order, err := s.nextOrder(ctx, project.ID, status)
			if err != nil {
				return nil, err
			}
			field("status", task.Status, status)
			task.Status = status
			task.Order = order
		}
	}

	if req.AssigneeID.Set {
		next := req.AssigneeID.Value
		if next != nil && !project.IsMember(*next) {
			return nil, entities.ErrAssigneeNotMember
		}
		if !sameID(task.AssigneeID, next) {
			changes = append(changes, entities.ActivityLog{
				Action:   entities.ActionTaskAssigned,
				Field:    "assignee",
				OldValue: idString(task.AssigneeID),
				NewValue: idString(next),
			})
			task.AssigneeID = next
		}
	}

	if req.DueDate.Set && !sameTime(task.DueDate, req.DueDate.Value) {
		field("dueDate", timeString(task.DueDate), timeString(req.DueDate.Value))
		task.DueDate = req.DueDate.Value
	}

	if req.Labels != nil {
		labels := *req.Labels
		if err := checkLabels(project, labels); err != nil {
			return nil, err
		}
		if strings.Join(labels, ",") != strings.Join(task.Labels, ",") {
			field("labels", strings.Join(task.Labels, ","), strings.Join(labels, ","))
			task.Labels = append([]string{}, labels...)
		}
	}

	if len(changes) == 0 {
		return s.view(ctx, task)
	}

	task.UpdatedAt = s.now()
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	for _, c := range changes {
		c.ProjectID = project.ID
		c.TaskID = &task.ID
		c.UserID = userID
		s.activity.Record(ctx, c)
	}
	return s.view(ctx, task)
}

// AddComment appends a comment. @handles that match a member are stored on
// the activity entry.
func (s *TaskService) AddComment(ctx context.Context, userID, taskID uuid.UUID, req ports.AddCommentRequest) (*ports.CommentView, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, entities.ErrTextRequired
	}

	task, project, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	comment := entities.Comment{
		ID:        uuid.New(),
		Text:      text,
		AuthorID:  userID,
		CreatedAt: s.now(),
	}
	if err := s.taskRepo.AddComment(ctx, taskID, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	users, err := userSummaries(ctx, s.userRepo, project.MemberIDs())
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{"commentId": comment.ID.String()}
	if mentioned := resolveMentions(text, users); len(mentioned) > 0 {
		metadata["mentions"] = mentioned
	}
	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: task.ProjectID,
		TaskID:    &task.ID,
		UserID:    userID,
		Action:    entities.ActionCommentAdded,
		Metadata:  metadata,
	})

	return &ports.CommentView{Comment: comment, Author: summaryPtr(users, userID)}, nil
}

// AddSubtask appends a checklist item
func (s *TaskService) AddSubtask(ctx context.Context, userID, taskID uuid.UUID, req ports.AddSubtaskRequest) ([]entities.Subtask, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, entities.ErrTextRequired
	}

	task, _, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	st := task.AddSubtask(text)
	if err := s.saveSubtasks(ctx, task); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: task.ProjectID,
		TaskID:    &task.ID,
		UserID:    userID,
		Action:    entities.ActionSubtaskAdded,
		NewValue:  st.Text,
		Metadata:  map[string]interface{}{"subtaskId": st.ID.String()},
	})
	return task.Subtasks, nil
}

// ToggleSubtask flips a checklist item
func (s *TaskService) ToggleSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID) ([]entities.Subtask, error) {
	task, _, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	st, err := task.ToggleSubtask(subtaskID)
	if err != nil {
		return nil, err
	}
	if err := s.saveSubtasks(ctx, task); err != nil {
		return nil, err
	}

	if st.Completed {
		s.activity.Record(ctx, entities.ActivityLog{
			ProjectID: task.ProjectID,
			TaskID:    &task.ID,
			UserID:    userID,
			Action:    entities.ActionSubtaskCompleted,
			NewValue:  st.Text,
			Metadata:  map[string]interface{}{"subtaskId": st.ID.String()},
		})
	}
	return task.Subtasks, nil
}

// DeleteSubtask removes a checklist item
func (s *TaskService) DeleteSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID) ([]entities.Subtask, error) {
	task, _, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := task.RemoveSubtask(subtaskID); err != nil {
		return nil, err
	}
	if err := s.saveSubtasks(ctx, task); err != nil {
		return nil, err
	}
	return task.Subtasks, nil
}

// DeleteTask removes a task; its ticket number is not reused
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	task, _, err := s.memberTask(ctx, userID, taskID)
	if err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: task.ProjectID,
		TaskID:    &task.ID,
		UserID:    userID,
		Action:    entities.ActionTaskDeleted,
		OldValue:  task.Title,
		Metadata:  map[string]interface{}{"ticketId": task.TicketID, "title": task.Title},
	})
	return nil
}

func (s *TaskService) memberTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, *entities.Project, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load task: %w", err)
	}
	project, err := memberProject(ctx, s.projectRepo, task.ProjectID, userID)
	if err != nil {
		return nil, nil, err
	}
	return task, project, nil
}

func (s *TaskService) saveSubtasks(ctx context.Context, task *entities.Task) error {
	task.UpdatedAt = s.now()
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to update subtasks: %w", err)
	}
	return nil
}

// nextOrder is one past the last task in the column, or 0 when it is empty.
func (s *TaskService) nextOrder(ctx context.Context, projectID uuid.UUID, status string) (int, error) {
	max, ok, err := s.taskRepo.MaxOrder(ctx, projectID, status)
	if err != nil {
		return 0, fmt.Errorf("failed to compute task order: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}

func (s *TaskService) view(ctx context.Context, task *entities.Task) (*ports.TaskView, error) {
	views, err := s.views(ctx, []*entities.Task{task})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *TaskService) views(ctx context.Context, tasks []*entities.Task) ([]*ports.TaskView, error) {
	var ids []uuid.UUID
	for _, t := range tasks {
		if t.AssigneeID != nil {
			ids = append(ids, *t.AssigneeID)
		}
		for _, c := range t.Comments {
			ids = append(ids, c.AuthorID)
		}
	}
	users, err := userSummaries(ctx, s.userRepo, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*ports.TaskView, 0, len(tasks))
	for _, t := range tasks {
		v := &ports.TaskView{Task: t, Comments: make([]ports.CommentView, 0, len(t.Comments))}
		if t.AssigneeID != nil {
			v.Assignee = summaryPtr(users, *t.AssigneeID)
		}
		for _, c := range t.Comments {
			v.Comments = append(v.Comments, ports.CommentView{Comment: c, Author: summaryPtr(users, c.AuthorID)})
		}
		out = append(out, v)
	}
	return out, nil
}

// resolveStatus maps a requested status to a column id. Boards without
// columns accept any status.
func resolveStatus(project *entities.Project, status string) (string, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return project.InitialStatus(), nil
	}
	if len(project.Columns) == 0 {
		return status, nil
	}
	c, ok := project.ColumnFor(status)
	if !ok {
		return "", entities.ErrUnknownColumn
	}
	return c.ID, nil
}

func checkLabels(project *entities.Project, labels []string) error {
	for _, l := range labels {
		if !project.HasLabel(l) {
			return fmt.Errorf("%w: %s", entities.ErrUnknownLabel, l)
		}
	}
	return nil
}

func columnTitle(project *entities.Project, status string) string {
	if c, ok := project.ColumnFor(status); ok {
		return c.Title
	}
	return status
}

// resolveMentions returns the ids of users whose handle was @-mentioned,
// sorted for stable output.
func resolveMentions(text string, users map[uuid.UUID]entities.UserSummary) []string {
	handles := entities.ParseMentions(text)
	if len(handles) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		wanted[h] = struct{}{}
	}

	var ids []string
	for id, u := range users {
		if _, ok := wanted[entities.MentionHandle(u.Name)]; ok {
			ids = append(ids, id.String())
		}
	}
	sort.Strings(ids)
	return ids
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func timeString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
