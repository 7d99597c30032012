package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

const invitationColumns = `id, project_id, email, role, token, inviter_id, status, expires_at, created_at`

type invitationRow struct {
	ID        uuid.UUID                 `db:"id"`
	ProjectID uuid.UUID                 `db:"project_id"`
	Email     string                    `db:"email"`
	Role      entities.MemberRole       `db:"role"`
	Token     string                    `db:"token"`
	InviterID uuid.UUID                 `db:"inviter_id"`
	Status    entities.InvitationStatus `db:"status"`
	ExpiresAt time.Time                 `db:"expires_at"`
	CreatedAt time.Time                 `db:"created_at"`
}

func (row invitationRow) entity() *entities.Invitation {
	inv := entities.Invitation(row)
	return &inv
}

var _ ports.InvitationRepository = (*InvitationRepository)(nil)

// InvitationRepository implements the invitation repository interface
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, inv *entities.Invitation) error {
	query := `
		INSERT INTO invitations (` + invitationColumns + `)
		VALUES (:id, :project_id, :email, :role, :token, :inviter_id, :status, :expires_at, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, invitationRow(*inv)); err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Invitation, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *InvitationRepository) GetPendingByToken(ctx context.Context, token string) (*entities.Invitation, error) {
	return r.getOne(ctx, `WHERE token = $1 AND status = 'PENDING'`, token)
}

func (r *InvitationRepository) FindPending(ctx context.Context, projectID uuid.UUID, email string) (*entities.Invitation, error) {
	return r.getOne(ctx, `WHERE project_id = $1 AND email = $2 AND status = 'PENDING' LIMIT 1`, projectID, email)
}

func (r *InvitationRepository) ListPendingByProject(ctx context.Context, projectID uuid.UUID) ([]*entities.Invitation, error) {
	return r.list(ctx, `WHERE project_id = $1 AND status = 'PENDING'`, projectID)
}

func (r *InvitationRepository) ListPendingByEmail(ctx context.Context, email string) ([]*entities.Invitation, error) {
	return r.list(ctx, `WHERE email = $1 AND status = 'PENDING'`, email)
}

func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.InvitationStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE invitations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	return expectRow(result, entities.ErrInvitationNotFound)
}

func (r *InvitationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return expectRow(result, entities.ErrInvitationNotFound)
}

func (r *InvitationRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to delete invitations: %w", err)
	}
	return nil
}

func (r *InvitationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return result.RowsAffected()
}

func (r *InvitationRepository) getOne(ctx context.Context, where string, args ...interface{}) (*entities.Invitation, error) {
	var row invitationRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+invitationColumns+` FROM invitations `+where, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return row.entity(), nil
}

func (r *InvitationRepository) list(ctx context.Context, where string, args ...interface{}) ([]*entities.Invitation, error) {
	var rows []invitationRow
	query := `SELECT ` + invitationColumns + ` FROM invitations ` + where + ` ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	out := make([]*entities.Invitation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.entity())
	}
	return out, nil
}
