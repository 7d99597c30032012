package entities

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtasks(t *testing.T) {
	task := &Task{}

	first := task.AddSubtask("write tests")
	second := task.AddSubtask("ship it")
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)

	toggled, err := task.ToggleSubtask(first.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.True(t, task.Subtasks[0].Completed)

	toggled, err = task.ToggleSubtask(first.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	removed, err := task.RemoveSubtask(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "write tests", removed.Text)
	require.Len(t, task.Subtasks, 1)
	assert.Equal(t, second.ID, task.Subtasks[0].ID)

	// Order keeps growing past removed entries.
	third := task.AddSubtask("celebrate")
	assert.Equal(t, 2, third.Order)

	_, err = task.ToggleSubtask(uuid.New())
	assert.ErrorIs(t, err, ErrSubtaskNotFound)
	_, err = task.RemoveSubtask(uuid.New())
	assert.ErrorIs(t, err, ErrSubtaskNotFound)
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&Task{}).IsOverdue(now))
	assert.True(t, (&Task{DueDate: &past}).IsOverdue(now))
	assert.False(t, (&Task{DueDate: &future}).IsOverdue(now))
}

func TestParseMentions(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"no mentions here", nil},
		{"ping @Alice and @bob", []string{"alice", "bob"}},
		{"@alice @ALICE again", []string{"alice"}},
		{"mail me at a@b.com", []string{"b"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMentions(tt.text), tt.text)
	}
}

func TestMentionHandle(t *testing.T) {
	assert.Equal(t, "janedoe", MentionHandle("Jane  Doe"))
	assert.Equal(t, "bob", MentionHandle(" Bob "))
}

func TestCountsAsCompletion(t *testing.T) {
	tests := []struct {
		entry ActivityLog
		want  bool
	}{
		{ActivityLog{Action: ActionTaskMoved, NewValue: "DONE"}, true},
		{ActivityLog{Action: ActionTaskUpdated, Field: "status", NewValue: "Completed"}, true},
		{ActivityLog{Action: ActionTaskMoved, NewValue: "IN_PROGRESS"}, false},
		{ActivityLog{Action: ActionTaskCreated, NewValue: "DONE"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.entry.CountsAsCompletion(), "%s %s", tt.entry.Action, tt.entry.NewValue)
	}
}

func TestInvitation(t *testing.T) {
	now := time.Now()
	inv := &Invitation{Status: InvitationPending, ExpiresAt: now}

	assert.True(t, inv.IsPending())
	assert.True(t, inv.IsExpired(now))
	assert.False(t, inv.IsExpired(now.Add(-time.Second)))

	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))

	token, err := NewInvitationToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)
	other, err := NewInvitationToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestTemplateCatalog(t *testing.T) {
	cat := DefaultTemplateCatalog()
	all := cat.All()
	require.Len(t, all, 5)
	assert.Equal(t, "SOFTWARE", all[0].Key)

	tpl, err := cat.Get("software")
	require.NoError(t, err)
	assert.Equal(t, "TODO", tpl.Columns[0].ID)
	assert.Equal(t, 4, tpl.Columns[4].Order)

	// Callers get copies.
	tpl.Columns[0].ID = "CHANGED"
	again, err := cat.Get("SOFTWARE")
	require.NoError(t, err)
	assert.Equal(t, "TODO", again.Columns[0].ID)

	_, err = cat.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = NewTemplateCatalog([]ProjectTemplate{
		{Key: "a", Columns: DefaultColumns()},
		{Key: "A", Columns: DefaultColumns()},
	})
	assert.Error(t, err)
}

func TestLoadTemplateCatalog(t *testing.T) {
	cat, err := LoadTemplateCatalog("")
	require.NoError(t, err)
	assert.Len(t, cat.All(), 5)

	path := filepath.Join(t.TempDir(), "templates.yaml")
	doc := `
templates:
  - key: ops
    name: Operations
    columns:
      - {id: OPEN, title: Open}
      - {id: CLOSED, title: Done}
    labels:
      - {id: p1, name: Page, color: "#ff0000"}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cat, err = LoadTemplateCatalog(path)
	require.NoError(t, err)
	tpl, err := cat.Get("OPS")
	require.NoError(t, err)
	assert.Equal(t, "Operations", tpl.Name)
	assert.Equal(t, 1, tpl.Columns[1].Order)
	assert.Equal(t, "#ff0000", tpl.Labels[0].Color)

	_, err = LoadTemplateCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
