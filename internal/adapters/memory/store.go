// Package memory keeps every repository in process memory. It backs the
// "memory" database driver and the service tests.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

// Store holds all collections behind one lock so cascading deletes stay
// consistent. Values handed out are copies.
type Store struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*entities.User
	projects    map[uuid.UUID]*entities.Project
	tasks       map[uuid.UUID]*entities.Task
	invitations map[uuid.UUID]*entities.Invitation
	activity    []*entities.ActivityLog
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:       map[uuid.UUID]*entities.User{},
		projects:    map[uuid.UUID]*entities.Project{},
		tasks:       map[uuid.UUID]*entities.Task{},
		invitations: map[uuid.UUID]*entities.Invitation{},
	}
}

// NewRepositories wires every repository to a fresh store.
func NewRepositories() *ports.Repositories {
	return NewStore().Repositories()
}

// Repositories returns the repositories backed by this store.
func (s *Store) Repositories() *ports.Repositories {
	return &ports.Repositories{
		Users:       &UserRepository{s},
		Projects:    &ProjectRepository{s},
		Tasks:       &TaskRepository{s},
		Invitations: &InvitationRepository{s},
		Activity:    &ActivityRepository{s},
	}
}

func cloneUser(u *entities.User) *entities.User {
	c := *u
	if u.Avatar != nil {
		a := *u.Avatar
		c.Avatar = &a
	}
	return &c
}

func cloneProject(p *entities.Project) *entities.Project {
	c := *p
	c.Members = append([]entities.Member(nil), p.Members...)
	c.Columns = append([]entities.Column(nil), p.Columns...)
	c.Labels = append([]entities.Label(nil), p.Labels...)
	return &c
}

func cloneTask(t *entities.Task) *entities.Task {
	c := *t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		c.AssigneeID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	c.Labels = append([]string(nil), t.Labels...)
	c.Subtasks = append([]entities.Subtask(nil), t.Subtasks...)
	c.Comments = append([]entities.Comment(nil), t.Comments...)
	return &c
}

func cloneInvitation(i *entities.Invitation) *entities.Invitation {
	c := *i
	return &c
}

func cloneActivity(a *entities.ActivityLog) *entities.ActivityLog {
	c := *a
	if a.TaskID != nil {
		id := *a.TaskID
		c.TaskID = &id
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
