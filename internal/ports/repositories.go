package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
)

// UserRepository defines the interface for user data operations.
// Emails are stored and matched in entities.NormalizeEmail form.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *entities.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Project, error)
	KeyExists(ctx context.Context, key string) (bool, error)
	// ListForUser returns projects the user owns or is a member of, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*entities.Project, error)
	// Update writes name, description, key, columns, labels and the onboarding
	// flag. Members and the task counter have their own operations.
	Update(ctx context.Context, project *entities.Project) error
	// IncrementTaskCount bumps the counter atomically and returns the project
	// as it is after the increment.
	IncrementTaskCount(ctx context.Context, id uuid.UUID) (*entities.Project, error)
	// AddMember is a no-op when the user is already a member.
	AddMember(ctx context.Context, projectID uuid.UUID, member entities.Member) error
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
	// RemoveMemberEverywhere pulls the user out of every project's member list.
	RemoveMemberEverywhere(ctx context.Context, userID uuid.UUID) error
	// Delete removes the project together with its tasks, invitations and activity.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	// MaxOrder returns the highest order in a column and false when it is empty.
	MaxOrder(ctx context.Context, projectID uuid.UUID, status string) (int, bool, error)
	// Update writes every mutable field except comments.
	Update(ctx context.Context, task *entities.Task) error
	UpdatePosition(ctx context.Context, id uuid.UUID, status string, order int) error
	AddComment(ctx context.Context, taskID uuid.UUID, comment entities.Comment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// InvitationRepository defines the interface for invitation data operations
type InvitationRepository interface {
	Create(ctx context.Context, inv *entities.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Invitation, error)
	GetPendingByToken(ctx context.Context, token string) (*entities.Invitation, error)
	// FindPending returns ErrInvitationNotFound when there is no pending
	// invitation for the pair.
	FindPending(ctx context.Context, projectID uuid.UUID, email string) (*entities.Invitation, error)
	ListPendingByProject(ctx context.Context, projectID uuid.UUID) ([]*entities.Invitation, error)
	ListPendingByEmail(ctx context.Context, email string) ([]*entities.Invitation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.InvitationStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ActivityRepository defines the interface for the activity trail
type ActivityRepository interface {
	Create(ctx context.Context, entry *entities.ActivityLog) error
	// List returns matching entries newest first.
	List(ctx context.Context, filter ActivityFilter) ([]*entities.ActivityLog, error)
}

// Repositories groups every store the services need.
type Repositories struct {
	Users       UserRepository
	Projects    ProjectRepository
	Tasks       TaskRepository
	Invitations InvitationRepository
	Activity    ActivityRepository
}

// Filter types for repository queries

// TaskFilter narrows task listings. Results are ordered by Order ascending,
// then creation time.
type TaskFilter struct {
	ProjectIDs []uuid.UUID
	AssigneeID *uuid.UUID
	DueBefore  *time.Time
}

// ActivityFilter narrows activity listings. Zero values match everything.
type ActivityFilter struct {
	ProjectIDs []uuid.UUID
	TaskID     *uuid.UUID
	Actions    []entities.ActivityAction
	Since      *time.Time
	Limit      int
}
