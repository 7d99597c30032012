package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

const activityColumns = `id, project_id, task_id, user_id, action, field, old_value, new_value, metadata, created_at`

type activityRow struct {
	ID        uuid.UUID                          `db:"id"`
	ProjectID uuid.UUID                          `db:"project_id"`
	TaskID    *uuid.UUID                         `db:"task_id"`
	UserID    uuid.UUID                          `db:"user_id"`
	Action    entities.ActivityAction            `db:"action"`
	Field     string                             `db:"field"`
	OldValue  string                             `db:"old_value"`
	NewValue  string                             `db:"new_value"`
	Metadata  jsonColumn[map[string]interface{}] `db:"metadata"`
	CreatedAt time.Time                          `db:"created_at"`
}

var _ ports.ActivityRepository = (*ActivityRepository)(nil)

// ActivityRepository implements the activity repository interface
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an entry to the trail
func (r *ActivityRepository) Create(ctx context.Context, entry *entities.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (` + activityColumns + `)
		VALUES (:id, :project_id, :task_id, :user_id, :action, :field, :old_value, :new_value, :metadata, :created_at)`

	row := activityRow{
		ID:        entry.ID,
		ProjectID: entry.ProjectID,
		TaskID:    entry.TaskID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Field:     entry.Field,
		OldValue:  entry.OldValue,
		NewValue:  entry.NewValue,
		Metadata:  jsonColumn[map[string]interface{}]{V: entry.Metadata},
		CreatedAt: entry.CreatedAt,
	}
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// List retrieves entries with filters, newest first
func (r *ActivityRepository) List(ctx context.Context, filter ports.ActivityFilter) ([]*entities.ActivityLog, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.ProjectIDs != nil {
		conditions = append(conditions, fmt.Sprintf("project_id = ANY($%d::uuid[])", argIndex))
		args = append(args, pq.Array(uuidStrings(filter.ProjectIDs)))
		argIndex++
	}

	if filter.TaskID != nil {
		conditions = append(conditions, fmt.Sprintf("task_id = $%d", argIndex))
		args = append(args, *filter.TaskID)
		argIndex++
	}

	if len(filter.Actions) > 0 {
		actions := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			actions[i] = string(a)
		}
		conditions = append(conditions, fmt.Sprintf("action = ANY($%d)", argIndex))
		args = append(args, pq.Array(actions))
		argIndex++
	}

	if filter.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.Since)
		argIndex++
	}

	query := `SELECT ` + activityColumns + ` FROM activity_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	var rows []activityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	out := make([]*entities.ActivityLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entities.ActivityLog{
			ID:        row.ID,
			ProjectID: row.ProjectID,
			TaskID:    row.TaskID,
			UserID:    row.UserID,
			Action:    row.Action,
			Field:     row.Field,
			OldValue:  row.OldValue,
			NewValue:  row.NewValue,
			Metadata:  row.Metadata.V,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
