package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

func TestTaskStatsAndOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	stranger := env.signup(t, "Stranger", "stranger@example.com")
	p := env.project(t, owner, "Flow")
	other := env.project(t, stranger, "Elsewhere")

	yesterday := time.Now().Add(-24 * time.Hour)
	lastWeek := time.Now().Add(-6 * 24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)

	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "late", DueDate: &yesterday})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "later", DueDate: &lastWeek, Status: "IN_PROGRESS"})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "fine", DueDate: &tomorrow})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "done late", DueDate: &yesterday, Status: "DONE"})
	env.task(t, stranger, other.ID, ports.CreateTaskRequest{Title: "not mine", DueDate: &yesterday})

	stats, err := env.analytics.TaskStats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, ports.TaskStats{
		Total:             4,
		Completed:         1,
		InProgress:        1,
		Overdue:           2,
		CompletedThisWeek: 1,
	}, *stats)

	overdue, err := env.analytics.OverdueTasks(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "later", overdue[0].Title)
	assert.Equal(t, "late", overdue[1].Title)
	assert.Equal(t, "Flow", overdue[0].ProjectName)

	empty := env.signup(t, "Empty", "empty@example.com")
	stats, err = env.analytics.TaskStats(ctx, empty.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	overdue, err = env.analytics.OverdueTasks(ctx, empty.ID)
	require.NoError(t, err)
	assert.NotNil(t, overdue)
	assert.Empty(t, overdue)
}

func TestCompletionTrend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	p := env.project(t, owner, "Flow")

	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	env.analytics.now = func() time.Time { return now }

	record := func(action entities.ActivityAction, newValue string, at time.Time) {
		taskID := uuid.New()
		env.activity.Record(ctx, entities.ActivityLog{
			ProjectID: p.ID,
			TaskID:    &taskID,
			UserID:    owner.ID,
			Action:    action,
			Field:     "status",
			NewValue:  newValue,
			CreatedAt: at,
		})
	}
	record(entities.ActionTaskMoved, "DONE", now.Add(-time.Hour))
	record(entities.ActionTaskUpdated, "Completed", now.Add(-2*time.Hour))
	record(entities.ActionTaskMoved, "DONE", now.AddDate(0, 0, -2))
	record(entities.ActionTaskMoved, "IN_PROGRESS", now.Add(-time.Hour))
	record(entities.ActionTaskMoved, "DONE", now.AddDate(0, 0, -30))

	points, err := env.analytics.CompletionTrend(ctx, owner.ID, 0)
	require.NoError(t, err)
	require.Len(t, points, 7)
	assert.Equal(t, "2024-05-04", points[0].Date)
	assert.Equal(t, "2024-05-10", points[6].Date)
	assert.Equal(t, 2, points[6].Count)
	assert.Equal(t, 1, points[4].Count)
	assert.Equal(t, 0, points[5].Count)

	points, err = env.analytics.CompletionTrend(ctx, owner.ID, 365)
	require.NoError(t, err)
	require.Len(t, points, 90)
	total := 0
	for _, pt := range points {
		total += pt.Count
	}
	assert.Equal(t, 4, total)
}

func TestProjectStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	member := env.signup(t, "Member", "member@example.com")
	stranger := env.signup(t, "Stranger", "stranger@example.com")
	p := env.project(t, owner, "Flow")
	env.join(t, p.ID, member, entities.MemberRoleMember)

	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "a", AssigneeID: &member.ID, Priority: entities.PriorityHigh})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "b", AssigneeID: &member.ID})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "c", AssigneeID: &owner.ID, Status: "IN_PROGRESS"})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "d"})
	env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "e", AssigneeID: &owner.ID, Status: "DONE"})

	stats, err := env.analytics.ProjectStats(ctx, member.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, []ports.ColumnCount{
		{ColumnID: "TODO", Title: "To Do", Count: 3},
		{ColumnID: "IN_PROGRESS", Title: "In Progress", Count: 1},
		{ColumnID: "DONE", Title: "Done", Count: 1},
	}, stats.ByColumn)
	assert.Equal(t, 1, stats.ByPriority[entities.PriorityHigh])
	assert.Equal(t, 4, stats.ByPriority[entities.PriorityMedium])
	assert.Equal(t, 1, stats.Unassigned)

	require.Len(t, stats.Workload, 2)
	assert.Equal(t, member.ID, stats.Workload[0].UserID)
	assert.Equal(t, 2, stats.Workload[0].OpenTasks)
	require.NotNil(t, stats.Workload[0].User)
	assert.Equal(t, "Member", stats.Workload[0].User.Name)
	assert.Equal(t, 1, stats.Workload[1].OpenTasks)

	_, err = env.analytics.ProjectStats(ctx, stranger.ID, p.ID)
	assert.ErrorIs(t, err, entities.ErrNotProjectMember)
}

func TestProjectActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.signup(t, "Owner", "owner@example.com")
	stranger := env.signup(t, "Stranger", "stranger@example.com")
	p := env.project(t, owner, "Flow")
	task := env.task(t, owner, p.ID, ports.CreateTaskRequest{Title: "one"})

	views, err := env.activity.ProjectActivity(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, entities.ActionTaskCreated, views[0].Action)
	require.NotNil(t, views[0].Task)
	assert.Equal(t, task.ID, views[0].Task.ID)
	assert.Equal(t, entities.ActionProjectCreated, views[1].Action)
	assert.Nil(t, views[1].Task)

	_, err = env.activity.ProjectActivity(ctx, stranger.ID, p.ID)
	assert.ErrorIs(t, err, entities.ErrNotProjectMember)
	_, err = env.activity.TaskActivity(ctx, stranger.ID, task.ID)
	assert.ErrorIs(t, err, entities.ErrNotProjectMember)
}
