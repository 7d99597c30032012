package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
)

// AuthService interface for account creation and credential checks
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*entities.User, error)
	Login(ctx context.Context, req LoginRequest) (*entities.User, error)
}

// SessionService issues and verifies session tokens.
type SessionService interface {
	Issue(user *entities.User) (token string, expiresAt time.Time, err error)
	Parse(token string) (*Session, error)
	NeedsRefresh(s *Session) bool
}

// UserService interface for the signed-in user's own account
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*entities.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*entities.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
	CompleteOnboarding(ctx context.Context, userID uuid.UUID) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// ProjectService interface for project management operations
type ProjectService interface {
	Templates() []entities.ProjectTemplate
	CreateProject(ctx context.Context, userID uuid.UUID, req CreateProjectRequest) (*entities.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID) ([]*entities.Project, error)
	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*ProjectDetails, error)
	UpdateProject(ctx context.Context, userID, projectID uuid.UUID, req UpdateProjectRequest) (*entities.Project, error)
	UpdateColumns(ctx context.Context, userID, projectID uuid.UUID, req UpdateColumnsRequest) (*entities.Project, error)
	UpdateLabels(ctx context.Context, userID, projectID uuid.UUID, req UpdateLabelsRequest) (*entities.Project, error)
	ListMembers(ctx context.Context, userID, projectID uuid.UUID) ([]MemberView, error)
	RemoveMember(ctx context.Context, userID, projectID, memberID uuid.UUID) error
	DismissOnboarding(ctx context.Context, userID, projectID uuid.UUID) error
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error
}

// TaskService interface for board operations
type TaskService interface {
	CreateTask(ctx context.Context, userID, projectID uuid.UUID, req CreateTaskRequest) (*TaskView, error)
	ListTasks(ctx context.Context, userID, projectID uuid.UUID) ([]*TaskView, error)
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*TaskView, error)
	MoveTask(ctx context.Context, userID, taskID uuid.UUID, req MoveTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req UpdateTaskRequest) (*TaskView, error)
	AddComment(ctx context.Context, userID, taskID uuid.UUID, req AddCommentRequest) (*CommentView, error)
	AddSubtask(ctx context.Context, userID, taskID uuid.UUID, req AddSubtaskRequest) ([]entities.Subtask, error)
	ToggleSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID) ([]entities.Subtask, error)
	DeleteSubtask(ctx context.Context, userID, taskID, subtaskID uuid.UUID) ([]entities.Subtask, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
}

// InvitationService interface for team invitations
type InvitationService interface {
	Invite(ctx context.Context, userID, projectID uuid.UUID, req InviteRequest) (*entities.Invitation, error)
	ListProjectInvitations(ctx context.Context, userID, projectID uuid.UUID) ([]*entities.Invitation, error)
	Revoke(ctx context.Context, userID, invitationID uuid.UUID) error
	ListMine(ctx context.Context, userID uuid.UUID) ([]*InvitationView, error)
	Accept(ctx context.Context, userID uuid.UUID, token string) (*entities.Project, error)
	Decline(ctx context.Context, userID, invitationID uuid.UUID) error
	PurgeExpired(ctx context.Context) (int64, error)
}

// ActivityRecorder appends to the audit trail. Record never fails; storage
// errors are logged.
type ActivityRecorder interface {
	Record(ctx context.Context, entry entities.ActivityLog)
}

// ActivityService interface for the audit trail
type ActivityService interface {
	ActivityRecorder
	TaskActivity(ctx context.Context, userID, taskID uuid.UUID) ([]*ActivityView, error)
	ProjectActivity(ctx context.Context, userID, projectID uuid.UUID) ([]*ActivityView, error)
}

// AnalyticsService interface for dashboard statistics
type AnalyticsService interface {
	TaskStats(ctx context.Context, userID uuid.UUID) (*TaskStats, error)
	OverdueTasks(ctx context.Context, userID uuid.UUID) ([]*OverdueTask, error)
	CompletionTrend(ctx context.Context, userID uuid.UUID, days int) ([]TrendPoint, error)
	ProjectStats(ctx context.Context, userID, projectID uuid.UUID) (*ProjectStats, error)
}

// Mailer delivers outgoing email. Callers treat failures as non-fatal.
type Mailer interface {
	SendInvitation(ctx context.Context, msg InvitationEmail) error
}

// InvitationEmail is the content of an invitation message.
type InvitationEmail struct {
	To          string
	ProjectName string
	InviterName string
	InviteURL   string
	ExpiresAt   time.Time
}

// Session is the verified content of a session token.
type Session struct {
	UserID    uuid.UUID
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Request types

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=60"`
	Avatar *string `json:"avatar" validate:"omitempty,max=2048"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Template    string `json:"template" validate:"omitempty,max=32"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Key         string `json:"key" validate:"required"`
}

type UpdateColumnsRequest struct {
	Columns []entities.Column `json:"columns" validate:"required,min=1"`
}

type UpdateLabelsRequest struct {
	Labels []entities.Label `json:"labels"`
}

type CreateTaskRequest struct {
	Title       string            `json:"title" validate:"required,min=1,max=100"`
	Description string            `json:"description" validate:"max=1000"`
	Priority    entities.Priority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status      string            `json:"status" validate:"max=64"`
	AssigneeID  *uuid.UUID        `json:"assigneeId"`
	DueDate     *time.Time        `json:"dueDate"`
	Labels      []string          `json:"labels"`
}

// UpdateTaskRequest is a partial update; nil pointers leave fields untouched.
// AssigneeID and DueDate distinguish "absent" from an explicit null, which
// clears the field.
type UpdateTaskRequest struct {
	Title       *string             `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string             `json:"description" validate:"omitempty,max=1000"`
	Priority    *entities.Priority  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	Status      *string             `json:"status" validate:"omitempty,min=1,max=64"`
	AssigneeID  Optional[uuid.UUID] `json:"assigneeId"`
	DueDate     Optional[time.Time] `json:"dueDate"`
	Labels      *[]string           `json:"labels"`
}

type MoveTaskRequest struct {
	Status string `json:"status" validate:"required,max=64"`
	Order  int    `json:"order" validate:"min=0"`
}

type AddCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

type AddSubtaskRequest struct {
	Text string `json:"text" validate:"required,min=1,max=200"`
}

type InviteRequest struct {
	Email string              `json:"email" validate:"required,email"`
	Role  entities.MemberRole `json:"role" validate:"omitempty,oneof=ADMIN MEMBER"`
}

// View types returned to clients. References to users are populated.

type MemberView struct {
	entities.UserSummary
	Role     entities.MemberRole `json:"role"`
	JoinedAt time.Time           `json:"joinedAt"`
}

type ProjectDetails struct {
	*entities.Project
	Owner   *entities.UserSummary `json:"owner"`
	Members []MemberView          `json:"members"`
}

type CommentView struct {
	entities.Comment
	Author *entities.UserSummary `json:"author,omitempty"`
}

type TaskView struct {
	*entities.Task
	Assignee *entities.UserSummary `json:"assignee,omitempty"`
	Comments []CommentView         `json:"comments"`
}

type TaskRef struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	TicketID string    `json:"ticketId"`
}

type ActivityView struct {
	*entities.ActivityLog
	User *entities.UserSummary `json:"user,omitempty"`
	Task *TaskRef              `json:"task,omitempty"`
}

type InvitationView struct {
	*entities.Invitation
	Token       string `json:"token"`
	ProjectName string `json:"projectName"`
	InviterName string `json:"inviterName"`
}

type TaskStats struct {
	Total             int `json:"total"`
	Completed         int `json:"completed"`
	InProgress        int `json:"inProgress"`
	Overdue           int `json:"overdue"`
	CompletedThisWeek int `json:"completedThisWeek"`
}

type OverdueTask struct {
	*entities.Task
	ProjectName string `json:"projectName"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ColumnCount struct {
	ColumnID string `json:"columnId"`
	Title    string `json:"title"`
	Count    int    `json:"count"`
}

type AssigneeLoad struct {
	User      *entities.UserSummary `json:"user,omitempty"`
	UserID    uuid.UUID             `json:"userId"`
	OpenTasks int                   `json:"openTasks"`
}

type ProjectStats struct {
	TaskStats
	ByColumn   []ColumnCount             `json:"byColumn"`
	ByPriority map[entities.Priority]int `json:"byPriority"`
	Workload   []AssigneeLoad            `json:"workload"`
	Unassigned int                       `json:"unassigned"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
