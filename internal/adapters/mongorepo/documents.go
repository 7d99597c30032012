// Package mongorepo implements the stores on MongoDB. Members, columns,
// labels, subtasks and comments are embedded in their parent documents.
package mongorepo

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
)

const (
	usersCollection       = "users"
	projectsCollection    = "projects"
	tasksCollection       = "tasks"
	invitationsCollection = "invitations"
	activityCollection    = "activity_logs"
)

type userDocument struct {
	ID                  string    `bson:"_id"`
	Name                string    `bson:"name"`
	Email               string    `bson:"email"`
	PasswordHash        string    `bson:"password_hash"`
	Avatar              *string   `bson:"avatar,omitempty"`
	OnboardingCompleted bool      `bson:"onboarding_completed"`
	CreatedAt           time.Time `bson:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

func newUserDocument(u *entities.User) userDocument {
	return userDocument{
		ID:                  u.ID.String(),
		Name:                u.Name,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Avatar:              u.Avatar,
		OnboardingCompleted: u.OnboardingCompleted,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (d userDocument) entity() *entities.User {
	return &entities.User{
		ID:                  parseID(d.ID),
		Name:                d.Name,
		Email:               d.Email,
		PasswordHash:        d.PasswordHash,
		Avatar:              d.Avatar,
		OnboardingCompleted: d.OnboardingCompleted,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type memberDocument struct {
	UserID   string              `bson:"user_id"`
	Role     entities.MemberRole `bson:"role"`
	JoinedAt time.Time           `bson:"joined_at"`
}

type projectDocument struct {
	ID                  string            `bson:"_id"`
	Name                string            `bson:"name"`
	Description         string            `bson:"description"`
	Key                 string            `bson:"key"`
	OwnerID             string            `bson:"owner_id"`
	Members             []memberDocument  `bson:"members"`
	Columns             []entities.Column `bson:"columns"`
	Labels              []entities.Label  `bson:"labels"`
	TaskCount           int               `bson:"task_count"`
	OnboardingDismissed bool              `bson:"onboarding_dismissed"`
	CreatedAt           time.Time         `bson:"created_at"`
	UpdatedAt           time.Time         `bson:"updated_at"`
}

func newMemberDocument(m entities.Member) memberDocument {
	return memberDocument{UserID: m.UserID.String(), Role: m.Role, JoinedAt: m.JoinedAt}
}

func newProjectDocument(p *entities.Project) projectDocument {
	members := make([]memberDocument, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, newMemberDocument(m))
	}
	return projectDocument{
		ID:                  p.ID.String(),
		Name:                p.Name,
		Description:         p.Description,
		Key:                 p.Key,
		OwnerID:             p.OwnerID.String(),
		Members:             members,
		Columns:             nonNil(p.Columns),
		Labels:              nonNil(p.Labels),
		TaskCount:           p.TaskCount,
		OnboardingDismissed: p.OnboardingDismissed,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func (d projectDocument) entity() *entities.Project {
	members := make([]entities.Member, 0, len(d.Members))
	for _, m := range d.Members {
		members = append(members, entities.Member{UserID: parseID(m.UserID), Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return &entities.Project{
		ID:                  parseID(d.ID),
		Name:                d.Name,
		Description:         d.Description,
		Key:                 d.Key,
		OwnerID:             parseID(d.OwnerID),
		Members:             members,
		Columns:             nonNil(d.Columns),
		Labels:              nonNil(d.Labels),
		TaskCount:           d.TaskCount,
		OnboardingDismissed: d.OnboardingDismissed,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
}

type subtaskDocument struct {
	ID        string `bson:"id"`
	Text      string `bson:"text"`
	Completed bool   `bson:"completed"`
	Order     int    `bson:"order"`
}

type commentDocument struct {
	ID        string    `bson:"id"`
	Text      string    `bson:"text"`
	AuthorID  string    `bson:"author_id"`
	CreatedAt time.Time `bson:"created_at"`
}

func newCommentDocument(c entities.Comment) commentDocument {
	return commentDocument{ID: c.ID.String(), Text: c.Text, AuthorID: c.AuthorID.String(), CreatedAt: c.CreatedAt}
}

type taskDocument struct {
	ID          string            `bson:"_id"`
	ProjectID   string            `bson:"project_id"`
	TicketID    string            `bson:"ticket_id"`
	Title       string            `bson:"title"`
	Description string            `bson:"description"`
	Status      string            `bson:"status"`
	Priority    entities.Priority `bson:"priority"`
	AssigneeID  *string           `bson:"assignee_id"`
	DueDate     *time.Time        `bson:"due_date"`
	Labels      []string          `bson:"labels"`
	Subtasks    []subtaskDocument `bson:"subtasks"`
	Comments    []commentDocument `bson:"comments"`
	Order       int               `bson:"order"`
	CreatedBy   string            `bson:"created_by"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

func newTaskDocument(t *entities.Task) taskDocument {
	subtasks := make([]subtaskDocument, 0, len(t.Subtasks))
	for _, s := range t.Subtasks {
		subtasks = append(subtasks, subtaskDocument{ID: s.ID.String(), Text: s.Text, Completed: s.Completed, Order: s.Order})
	}
	comments := make([]commentDocument, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, newCommentDocument(c))
	}
	return taskDocument{
		ID:          t.ID.String(),
		ProjectID:   t.ProjectID.String(),
		TicketID:    t.TicketID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssigneeID:  idPtrString(t.AssigneeID),
		DueDate:     t.DueDate,
		Labels:      nonNil(t.Labels),
		Subtasks:    subtasks,
		Comments:    comments,
		Order:       t.Order,
		CreatedBy:   t.CreatedBy.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (d taskDocument) entity() *entities.Task {
	subtasks := make([]entities.Subtask, 0, len(d.Subtasks))
	for _, s := range d.Subtasks {
		subtasks = append(subtasks, entities.Subtask{ID: parseID(s.ID), Text: s.Text, Completed: s.Completed, Order: s.Order})
	}
	comments := make([]entities.Comment, 0, len(d.Comments))
	for _, c := range d.Comments {
		comments = append(comments, entities.Comment{ID: parseID(c.ID), Text: c.Text, AuthorID: parseID(c.AuthorID), CreatedAt: c.CreatedAt})
	}

	t := &entities.Task{
		ID:          parseID(d.ID),
		ProjectID:   parseID(d.ProjectID),
		TicketID:    d.TicketID,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		DueDate:     d.DueDate,
		Labels:      nonNil(d.Labels),
		Subtasks:    subtasks,
		Comments:    comments,
		Order:       d.Order,
		CreatedBy:   parseID(d.CreatedBy),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.AssigneeID != nil {
		id := parseID(*d.AssigneeID)
		t.AssigneeID = &id
	}
	return t
}

type invitationDocument struct {
	ID        string                    `bson:"_id"`
	ProjectID string                    `bson:"project_id"`
	Email     string                    `bson:"email"`
	Role      entities.MemberRole       `bson:"role"`
	Token     string                    `bson:"token"`
	InviterID string                    `bson:"inviter_id"`
	Status    entities.InvitationStatus `bson:"status"`
	ExpiresAt time.Time                 `bson:"expires_at"`
	CreatedAt time.Time                 `bson:"created_at"`
}

func newInvitationDocument(i *entities.Invitation) invitationDocument {
	return invitationDocument{
		ID:        i.ID.String(),
		ProjectID: i.ProjectID.String(),
		Email:     i.Email,
		Role:      i.Role,
		Token:     i.Token,
		InviterID: i.InviterID.String(),
		Status:    i.Status,
		ExpiresAt: i.ExpiresAt,
		CreatedAt: i.CreatedAt,
	}
}

func (d invitationDocument) entity() *entities.Invitation {
	return &entities.Invitation{
		ID:        parseID(d.ID),
		ProjectID: parseID(d.ProjectID),
		Email:     d.Email,
		Role:      d.Role,
		Token:     d.Token,
		InviterID: parseID(d.InviterID),
		Status:    d.Status,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
	}
}

type activityDocument struct {
	ID        string                  `bson:"_id"`
	ProjectID string                  `bson:"project_id"`
	TaskID    *string                 `bson:"task_id,omitempty"`
	UserID    string                  `bson:"user_id"`
	Action    entities.ActivityAction `bson:"action"`
	Field     string                  `bson:"field,omitempty"`
	OldValue  string                  `bson:"old_value,omitempty"`
	NewValue  string                  `bson:"new_value,omitempty"`
	Metadata  map[string]interface{}  `bson:"metadata,omitempty"`
	CreatedAt time.Time               `bson:"created_at"`
}

func newActivityDocument(a *entities.ActivityLog) activityDocument {
	return activityDocument{
		ID:        a.ID.String(),
		ProjectID: a.ProjectID.String(),
		TaskID:    idPtrString(a.TaskID),
		UserID:    a.UserID.String(),
		Action:    a.Action,
		Field:     a.Field,
		OldValue:  a.OldValue,
		NewValue:  a.NewValue,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

func (d activityDocument) entity() *entities.ActivityLog {
	a := &entities.ActivityLog{
		ID:        parseID(d.ID),
		ProjectID: parseID(d.ProjectID),
		UserID:    parseID(d.UserID),
		Action:    d.Action,
		Field:     d.Field,
		OldValue:  d.OldValue,
		NewValue:  d.NewValue,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
	}
	if d.TaskID != nil {
		id := parseID(*d.TaskID)
		a.TaskID = &id
	}
	return a
}

// parseID reads ids written by this package; a malformed value maps to uuid.Nil.
func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

func idPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
