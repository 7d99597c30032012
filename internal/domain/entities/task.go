package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Subtask is a checklist item embedded in a task.
type Subtask struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Order     int       `json:"order"`
}

// Comment is a discussion entry embedded in a task.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	AuthorID  uuid.UUID `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a card on a project board. Status holds a column id.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"projectId"`
	TicketID    string     `json:"ticketId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    Priority   `json:"priority"`
	AssigneeID  *uuid.UUID `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Labels      []string   `json:"labels"`
	Subtasks    []Subtask  `json:"subtasks"`
	Comments    []Comment  `json:"comments"`
	Order       int        `json:"order"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsOverdue reports whether the due date has passed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}

// AddSubtask appends a subtask after the existing ones.
func (t *Task) AddSubtask(text string) Subtask {
	order := 0
	for _, s := range t.Subtasks {
		if s.Order >= order {
			order = s.Order + 1
		}
	}
	st := Subtask{ID: uuid.New(), Text: text, Order: order}
	t.Subtasks = append(t.Subtasks, st)
	return st
}

// ToggleSubtask flips completion and returns the new state.
func (t *Task) ToggleSubtask(id uuid.UUID) (Subtask, error) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks[i].Completed = !t.Subtasks[i].Completed
			return t.Subtasks[i], nil
		}
	}
	return Subtask{}, ErrSubtaskNotFound
}

// RemoveSubtask deletes a subtask and returns what was removed.
func (t *Task) RemoveSubtask(id uuid.UUID) (Subtask, error) {
	for i, s := range t.Subtasks {
		if s.ID == id {
			t.Subtasks = append(t.Subtasks[:i:i], t.Subtasks[i+1:]...)
			return s, nil
		}
	}
	return Subtask{}, ErrSubtaskNotFound
}

// ParseMentions extracts lower-cased unique @handles in order of appearance.
func ParseMentions(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		h := strings.ToLower(m[1])
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// MentionHandle is the @handle a user is addressed by: the name lower-cased
// with whitespace removed.
func MentionHandle(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
