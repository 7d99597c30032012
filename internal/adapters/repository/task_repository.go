package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

const taskColumns = `id, project_id, ticket_id, title, description, status, priority, assignee_id,
	due_date, labels, subtasks, comments, position, created_by, created_at, updated_at`

type taskRow struct {
	ID          uuid.UUID                      `db:"id"`
	ProjectID   uuid.UUID                      `db:"project_id"`
	TicketID    string                         `db:"ticket_id"`
	Title       string                         `db:"title"`
	Description string                         `db:"description"`
	Status      string                         `db:"status"`
	Priority    entities.Priority              `db:"priority"`
	AssigneeID  *uuid.UUID                     `db:"assignee_id"`
	DueDate     *time.Time                     `db:"due_date"`
	Labels      jsonColumn[[]string]           `db:"labels"`
	Subtasks    jsonColumn[[]entities.Subtask] `db:"subtasks"`
	Comments    jsonColumn[[]entities.Comment] `db:"comments"`
	Position    int                            `db:"position"`
	CreatedBy   uuid.UUID                      `db:"created_by"`
	CreatedAt   time.Time                      `db:"created_at"`
	UpdatedAt   time.Time                      `db:"updated_at"`
}

func newTaskRow(t *entities.Task) taskRow {
	return taskRow{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		TicketID:    t.TicketID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
		Labels:      jsonColumn[[]string]{V: nonNil(t.Labels)},
		Subtasks:    jsonColumn[[]entities.Subtask]{V: nonNil(t.Subtasks)},
		Comments:    jsonColumn[[]entities.Comment]{V: nonNil(t.Comments)},
		Position:    t.Order,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (row taskRow) entity() *entities.Task {
	return &entities.Task{
		ID:          row.ID,
		ProjectID:   row.ProjectID,
		TicketID:    row.TicketID,
		Title:       row.Title,
		Description: row.Description,
		Status:      row.Status,
		Priority:    row.Priority,
		AssigneeID:  row.AssigneeID,
		DueDate:     row.DueDate,
		Labels:      nonNil(row.Labels.V),
		Subtasks:    nonNil(row.Subtasks.V),
		Comments:    nonNil(row.Comments.V),
		Order:       row.Position,
		CreatedBy:   row.CreatedBy,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

// TaskRepository implements the task repository interface. Subtasks and
// comments are embedded as JSONB.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :project_id, :ticket_id, :title, :description, :status, :priority, :assignee_id,
			:due_date, :labels, :subtasks, :comments, :position, :created_by, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, newTaskRow(task)); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var row taskRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return row.entity(), nil
}

// List retrieves tasks with filters
func (r *TaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.ProjectIDs != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = ANY($%d::uuid[])", argIndex))
		args = append(args, pq.Array(uuidStrings(filter.ProjectIDs)))
		argIndex++
	}

	if filter.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", argIndex))
		args = append(args, *filter.AssigneeID)
		argIndex++
	}

	if filter.DueBefore != nil {
		conditions = append(conditions, fmt.Sprintf("due_date < $%d", argIndex))
		args = append(args, *filter.DueBefore)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY position ASC, created_at ASC"

	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*entities.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.entity())
	}
	return tasks, nil
}

// MaxOrder returns the last position used in a column
func (r *TaskRepository) MaxOrder(ctx context.Context, projectID uuid.UUID, status string) (int, bool, error) {
	var max sql.NullInt64
	query := `SELECT MAX(position) FROM tasks WHERE project_id = $1 AND status = $2`
	if err := r.db.GetContext(ctx, &max, query, projectID, status); err != nil {
		return 0, false, fmt.Errorf("failed to get max order: %w", err)
	}
	return int(max.Int64), max.Valid, nil
}

// Update writes a task, leaving comments alone
func (r *TaskRepository) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET title = :title, description = :description, status = :status, priority = :priority,
			assignee_id = :assignee_id, due_date = :due_date, labels = :labels, subtasks = :subtasks,
			position = :position, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, newTaskRow(task))
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return expectRow(result, entities.ErrTaskNotFound)
}

// UpdatePosition moves a task to a column and position
func (r *TaskRepository) UpdatePosition(ctx context.Context, id uuid.UUID, status string, order int) error {
	query := `UPDATE tasks SET status = $2, position = $3, updated_at = $4 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, order, time.Now())
	if err != nil {
		return fmt.Errorf("failed to move task: %w", err)
	}
	return expectRow(result, entities.ErrTaskNotFound)
}

// AddComment appends a comment without rewriting the rest of the task
func (r *TaskRepository) AddComment(ctx context.Context, taskID uuid.UUID, comment entities.Comment) error {
	query := `UPDATE tasks SET comments = comments || $2::jsonb WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, taskID, jsonColumn[[]entities.Comment]{V: []entities.Comment{comment}})
	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}
	return expectRow(result, entities.ErrTaskNotFound)
}

// Delete deletes a task
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRow(result, entities.ErrTaskNotFound)
}
