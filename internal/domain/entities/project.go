package entities

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,9}$`)
	colorPattern      = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// Column is a stage on the board. Tasks reference it by ID through Task.Status.
type Column struct {
	ID    string `json:"id" bson:"id" yaml:"id"`
	Title string `json:"title" bson:"title" yaml:"title"`
	Order int    `json:"order" bson:"order" yaml:"-"`
}

// Label is a coloured tag that tasks reference by ID.
type Label struct {
	ID    string `json:"id" bson:"id" yaml:"id"`
	Name  string `json:"name" bson:"name" yaml:"name"`
	Color string `json:"color" bson:"color" yaml:"color"`
}

// Member links a user to a project with a role.
type Member struct {
	UserID   uuid.UUID  `json:"userId"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joinedAt"`
}

// Project is a board with its own columns, labels and members.
type Project struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Key                 string    `json:"key"`
	OwnerID             uuid.UUID `json:"ownerId"`
	Members             []Member  `json:"members"`
	Columns             []Column  `json:"columns"`
	Labels              []Label   `json:"labels"`
	TaskCount           int       `json:"taskCount"`
	OnboardingDismissed bool      `json:"onboardingDismissed"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DefaultColumns is the board a project gets without a template.
func DefaultColumns() []Column {
	return []Column{
		{ID: "TODO", Title: "To Do", Order: 0},
		{ID: "IN_PROGRESS", Title: "In Progress", Order: 1},
		{ID: "DONE", Title: "Done", Order: 2},
	}
}

// RoleOf returns the user's role and whether they belong to the project.
// The owner is always an admin.
func (p *Project) RoleOf(userID uuid.UUID) (MemberRole, bool) {
	if p.OwnerID == userID {
		return MemberRoleAdmin, true
	}
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

func (p *Project) IsMember(userID uuid.UUID) bool {
	_, ok := p.RoleOf(userID)
	return ok
}

func (p *Project) IsAdmin(userID uuid.UUID) bool {
	role, ok := p.RoleOf(userID)
	return ok && role == MemberRoleAdmin
}

// MemberIDs lists the owner followed by every other member, without duplicates.
func (p *Project) MemberIDs() []uuid.UUID {
	ids := []uuid.UUID{p.OwnerID}
	for _, m := range p.Members {
		if m.UserID != p.OwnerID {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// ColumnFor finds the column a status points at, by ID or by title.
func (p *Project) ColumnFor(status string) (Column, bool) {
	for _, c := range p.Columns {
		if c.ID == status || c.Title == status {
			return c, true
		}
	}
	return Column{}, false
}

// InitialStatus is the status new tasks land in.
func (p *Project) InitialStatus() string {
	if len(p.Columns) == 0 {
		return "TODO"
	}
	first := p.Columns[0]
	for _, c := range p.Columns[1:] {
		if c.Order < first.Order {
			first = c
		}
	}
	return first.ID
}

func (p *Project) HasLabel(id string) bool {
	for _, l := range p.Labels {
		if l.ID == id {
			return true
		}
	}
	return false
}

// IsCompletedStatus classifies a task status as done. The column's id and title
// are matched against "done" and "complete"; statuses without a column are
// matched directly.
func (p *Project) IsCompletedStatus(status string) bool {
	return p.statusMatches(status, "done", "complete")
}

// IsInProgressStatus classifies a task status as in progress.
func (p *Project) IsInProgressStatus(status string) bool {
	return p.statusMatches(status, "progress")
}

func (p *Project) statusMatches(status string, needles ...string) bool {
	candidates := []string{status}
	if c, ok := p.ColumnFor(status); ok {
		candidates = []string{c.ID, c.Title}
	}
	for _, s := range candidates {
		s = strings.ToLower(s)
		for _, n := range needles {
			if strings.Contains(s, n) {
				return true
			}
		}
	}
	return false
}

// NormalizeColumns checks ids and titles and renumbers Order by position.
func NormalizeColumns(columns []Column) ([]Column, error) {
	if len(columns) == 0 {
		return nil, ErrInvalidColumns
	}
	seen := make(map[string]struct{}, len(columns))
	out := make([]Column, len(columns))
	for i, c := range columns {
		c.ID = strings.TrimSpace(c.ID)
		c.Title = strings.TrimSpace(c.Title)
		if c.ID == "" || c.Title == "" {
			return nil, ErrInvalidColumns
		}
		if _, dup := seen[c.ID]; dup {
			return nil, ErrInvalidColumns
		}
		seen[c.ID] = struct{}{}
		c.Order = i
		out[i] = c
	}
	return out, nil
}

// ValidateLabels checks ids, names and colours.
func ValidateLabels(labels []Label) error {
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.Name) == "" || !colorPattern.MatchString(l.Color) {
			return ErrInvalidLabels
		}
		if _, dup := seen[l.ID]; dup {
			return ErrInvalidLabels
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

// ValidateProjectKey checks a user supplied key.
func ValidateProjectKey(key string) error {
	if !projectKeyPattern.MatchString(key) {
		return ErrInvalidProjectKey
	}
	return nil
}

// BaseProjectKey derives a short key from a project name: the first three
// letters of a single word, or the initials of up to three words, upper-cased
// and padded with X to two characters.
func BaseProjectKey(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var key []rune
	if len(words) == 1 {
		for _, r := range words[0] {
			if len(key) == 3 {
				break
			}
			key = append(key, r)
		}
	} else {
		for i, w := range words {
			if i == 3 {
				break
			}
			key = append(key, []rune(w)[0])
		}
	}

	base := strings.ToUpper(string(key))
	for len(base) < 2 {
		base += "X"
	}
	return base
}

// ProjectKeyCandidate returns the key to try on the given attempt; attempt 0
// is the base itself, then base1, base2 and so on.
func ProjectKeyCandidate(base string, attempt int) string {
	if attempt == 0 {
		return base
	}
	return fmt.Sprintf("%s%d", base, attempt)
}

// TicketID formats the human readable task id.
func TicketID(key string, n int) string {
	return fmt.Sprintf("%s-%d", key, n)
}
