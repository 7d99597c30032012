package entities

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseProjectKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single word", "Flow", "FLO"},
		{"short word", "Go", "GO"},
		{"initials", "Marketing Campaign Q3", "MCQ"},
		{"more than three words", "the quick brown fox", "TQB"},
		{"punctuation splits words", "my-cool_app", "MCA"},
		{"padded", "A", "AX"},
		{"empty", "", "XX"},
		{"only symbols", "!!!", "XX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseProjectKey(tt.in))
		})
	}
}

func TestProjectKeyCandidate(t *testing.T) {
	assert.Equal(t, "FLO", ProjectKeyCandidate("FLO", 0))
	assert.Equal(t, "FLO1", ProjectKeyCandidate("FLO", 1))
	assert.Equal(t, "FLO12", ProjectKeyCandidate("FLO", 12))
}

func TestValidateProjectKey(t *testing.T) {
	valid := []string{"FLO", "AB", "AB12", "ABCDEFGHIJ"}
	invalid := []string{"", "F", "flo", "1AB", "ABCDEFGHIJK", "AB-1"}

	for _, k := range valid {
		assert.NoError(t, ValidateProjectKey(k), k)
	}
	for _, k := range invalid {
		assert.ErrorIs(t, ValidateProjectKey(k), ErrInvalidProjectKey, k)
	}
}

func TestTicketID(t *testing.T) {
	assert.Equal(t, "FLO-7", TicketID("FLO", 7))
}

func TestNormalizeColumns(t *testing.T) {
	t.Run("renumbers and trims", func(t *testing.T) {
		cols, err := NormalizeColumns([]Column{
			{ID: " DONE ", Title: "Done", Order: 9},
			{ID: "TODO", Title: " To Do", Order: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, []Column{
			{ID: "DONE", Title: "Done", Order: 0},
			{ID: "TODO", Title: "To Do", Order: 1},
		}, cols)
	})

	bad := map[string][]Column{
		"empty":     nil,
		"blank id":  {{ID: " ", Title: "x"}},
		"no title":  {{ID: "A"}},
		"duplicate": {{ID: "A", Title: "a"}, {ID: "A", Title: "b"}},
	}
	for name, cols := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeColumns(cols)
			assert.ErrorIs(t, err, ErrInvalidColumns)
		})
	}
}

func TestValidateLabels(t *testing.T) {
	assert.NoError(t, ValidateLabels(nil))
	assert.NoError(t, ValidateLabels([]Label{{ID: "bug", Name: "Bug", Color: "#EF4444"}}))

	bad := [][]Label{
		{{ID: "bug", Name: "Bug", Color: "red"}},
		{{ID: "bug", Name: "Bug", Color: "#fff"}},
		{{ID: "", Name: "Bug", Color: "#ef4444"}},
		{{ID: "bug", Name: "", Color: "#ef4444"}},
		{{ID: "bug", Name: "Bug", Color: "#ef4444"}, {ID: "bug", Name: "Other", Color: "#000000"}},
	}
	for _, labels := range bad {
		assert.ErrorIs(t, ValidateLabels(labels), ErrInvalidLabels)
	}
}

func TestProjectRoles(t *testing.T) {
	owner, admin, member, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	p := &Project{
		OwnerID: owner,
		Members: []Member{
			{UserID: owner, Role: MemberRoleAdmin},
			{UserID: admin, Role: MemberRoleAdmin},
			{UserID: member, Role: MemberRoleMember},
		},
	}

	assert.True(t, p.IsAdmin(owner))
	assert.True(t, p.IsAdmin(admin))
	assert.False(t, p.IsAdmin(member))
	assert.True(t, p.IsMember(member))
	assert.False(t, p.IsMember(stranger))
	assert.Equal(t, []uuid.UUID{owner, admin, member}, p.MemberIDs())

	// The owner stays an admin even when missing from Members.
	p.Members = nil
	role, ok := p.RoleOf(owner)
	assert.True(t, ok)
	assert.Equal(t, MemberRoleAdmin, role)
}

func TestProjectColumns(t *testing.T) {
	p := &Project{Columns: []Column{
		{ID: "BACKLOG", Title: "Backlog", Order: 1},
		{ID: "WIP", Title: "In Progress", Order: 2},
		{ID: "SHIPPED", Title: "Completed", Order: 3},
		{ID: "INBOX", Title: "Inbox", Order: 0},
	}}

	assert.Equal(t, "INBOX", p.InitialStatus())
	assert.Equal(t, "TODO", (&Project{}).InitialStatus())

	c, ok := p.ColumnFor("In Progress")
	require.True(t, ok)
	assert.Equal(t, "WIP", c.ID)
	_, ok = p.ColumnFor("nope")
	assert.False(t, ok)

	tests := []struct {
		status     string
		completed  bool
		inProgress bool
	}{
		{"SHIPPED", true, false},
		{"WIP", false, true},
		{"BACKLOG", false, false},
		// Statuses without a column are matched on their own text.
		{"Done", true, false},
		{"in_progress", false, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.completed, p.IsCompletedStatus(tt.status), tt.status)
		assert.Equal(t, tt.inProgress, p.IsInProgressStatus(tt.status), tt.status)
	}
}
