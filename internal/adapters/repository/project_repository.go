package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/database"
	"github.com/flowhq/flow/internal/ports"
)

const projectColumns = `id, name, description, key, owner_id, columns, labels, task_count,
	onboarding_dismissed, created_at, updated_at`

type projectRow struct {
	ID                  uuid.UUID                     `db:"id"`
	Name                string                        `db:"name"`
	Description         string                        `db:"description"`
	Key                 string                        `db:"key"`
	OwnerID             uuid.UUID                     `db:"owner_id"`
	Columns             jsonColumn[[]entities.Column] `db:"columns"`
	Labels              jsonColumn[[]entities.Label]  `db:"labels"`
	TaskCount           int                           `db:"task_count"`
	OnboardingDismissed bool                          `db:"onboarding_dismissed"`
	CreatedAt           time.Time                     `db:"created_at"`
	UpdatedAt           time.Time                     `db:"updated_at"`
}

type memberRow struct {
	ProjectID uuid.UUID           `db:"project_id"`
	UserID    uuid.UUID           `db:"user_id"`
	Role      entities.MemberRole `db:"role"`
	JoinedAt  time.Time           `db:"joined_at"`
}

func newProjectRow(p *entities.Project) projectRow {
	return projectRow{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Key:                 p.Key,
		OwnerID:             p.OwnerID,
		Columns:             jsonColumn[[]entities.Column]{V: nonNil(p.Columns)},
		Labels:              jsonColumn[[]entities.Label]{V: nonNil(p.Labels)},
		TaskCount:           p.TaskCount,
		OnboardingDismissed: p.OnboardingDismissed,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (row projectRow) entity() *entities.Project {
	return &entities.Project{
		ID:                  row.ID,
		Name:                row.Name,
		Description:         row.Description,
		Key:                 row.Key,
		OwnerID:             row.OwnerID,
		Members:             []entities.Member{},
		Columns:             nonNil(row.Columns.V),
		Labels:              nonNil(row.Labels.V),
		TaskCount:           row.TaskCount,
		OnboardingDismissed: row.OnboardingDismissed,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)

// ProjectRepository implements the project repository interface. Members
// live in project_members; columns and labels are JSONB.
type ProjectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts the project and its initial members
func (r *ProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO projects (id, name, description, key, owner_id, columns, labels, task_count,
				onboarding_dismissed, created_at, updated_at)
			VALUES (:id, :name, :description, :key, :owner_id, :columns, :labels, :task_count,
				:onboarding_dismissed, :created_at, :updated_at)`

		if _, err := tx.NamedExecContext(ctx, query, newProjectRow(project)); err != nil {
			return fmt.Errorf("failed to create project: %w", mapUniqueViolation(err))
		}

		for _, m := range project.Members {
			if err := insertMember(ctx, tx, project.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a project with its members
func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var row projectRow
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	projects, err := r.withMembers(ctx, []projectRow{row})
	if err != nil {
		return nil, err
	}
	return projects[0], nil
}

// KeyExists reports whether a project already uses the key
func (r *ProjectRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	if err := r.db.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM projects WHERE key = $1)`, key); err != nil {
		return false, fmt.Errorf("failed to check project key: %w", err)
	}
	return exists, nil
}

// ListForUser returns owned and joined projects, newest first
func (r *ProjectRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE owner_id = $1
			OR id IN (SELECT project_id FROM project_members WHERE user_id = $1)
		ORDER BY created_at DESC`

	var rows []projectRow
	if err := r.db.DB.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return r.withMembers(ctx, rows)
}

// Update writes the project's settings
func (r *ProjectRepository) Update(ctx context.Context, project *entities.Project) error {
	query := `
		UPDATE projects
		SET name = :name, description = :description, key = :key, columns = :columns,
			labels = :labels, onboarding_dismissed = :onboarding_dismissed, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.DB.NamedExecContext(ctx, query, newProjectRow(project))
	if err != nil {
		return fmt.Errorf("failed to update project: %w", mapUniqueViolation(err))
	}
	return expectRow(result, entities.ErrProjectNotFound)
}

// IncrementTaskCount reserves the next ticket number
func (r *ProjectRepository) IncrementTaskCount(ctx context.Context, id uuid.UUID) (*entities.Project, error) {
	query := `
		UPDATE projects SET task_count = task_count + 1
		WHERE id = $1
		RETURNING ` + projectColumns

	var row projectRow
	if err := r.db.DB.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to increment task count: %w", err)
	}

	projects, err := r.withMembers(ctx, []projectRow{row})
	if err != nil {
		return nil, err
	}
	return projects[0], nil
}

// AddMember adds a member unless they already belong to the project
func (r *ProjectRepository) AddMember(ctx context.Context, projectID uuid.UUID, member entities.Member) error {
	var exists bool
	if err := r.db.DB.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, projectID); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !exists {
		return entities.ErrProjectNotFound
	}
	return insertMember(ctx, r.db.DB, projectID, member)
}

// RemoveMember removes a member from one project
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	if _, err := r.db.DB.ExecContext(ctx, query, projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// RemoveMemberEverywhere removes the user from every project
func (r *ProjectRepository) RemoveMemberEverywhere(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.DB.ExecContext(ctx, `DELETE FROM project_members WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}
	return nil
}

// Delete removes a project and everything that belongs to it
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		for _, table := range []string{"activity_logs", "invitations", "tasks", "project_members"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE project_id = $1`, id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return expectRow(result, entities.ErrProjectNotFound)
	})
}

func (r *ProjectRepository) withMembers(ctx context.Context, rows []projectRow) ([]*entities.Project, error) {
	projects := make([]*entities.Project, 0, len(rows))
	if len(rows) == 0 {
		return projects, nil
	}

	byID := make(map[uuid.UUID]*entities.Project, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		p := row.entity()
		projects = append(projects, p)
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	query := `
		SELECT project_id, user_id, role, joined_at
		FROM project_members
		WHERE project_id = ANY($1::uuid[])
		ORDER BY joined_at`

	var members []memberRow
	if err := r.db.DB.SelectContext(ctx, &members, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	for _, m := range members {
		if p, ok := byID[m.ProjectID]; ok {
			p.Members = append(p.Members, entities.Member{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt})
		}
	}
	return projects, nil
}

func insertMember(ctx context.Context, db sqlx.ExecerContext, projectID uuid.UUID, m entities.Member) error {
	query := `
		INSERT INTO project_members (project_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO NOTHING`

	if _, err := db.ExecContext(ctx, query, projectID, m.UserID, m.Role, m.JoinedAt); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}
