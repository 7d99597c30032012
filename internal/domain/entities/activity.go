package entities

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActionTaskCreated      ActivityAction = "TASK_CREATED"
	ActionTaskUpdated      ActivityAction = "TASK_UPDATED"
	ActionTaskDeleted      ActivityAction = "TASK_DELETED"
	ActionTaskMoved        ActivityAction = "TASK_MOVED"
	ActionTaskAssigned     ActivityAction = "TASK_ASSIGNED"
	ActionCommentAdded     ActivityAction = "COMMENT_ADDED"
	ActionSubtaskAdded     ActivityAction = "SUBTASK_ADDED"
	ActionSubtaskCompleted ActivityAction = "SUBTASK_COMPLETED"
	ActionProjectCreated   ActivityAction = "PROJECT_CREATED"
	ActionProjectUpdated   ActivityAction = "PROJECT_UPDATED"
	ActionMemberAdded      ActivityAction = "MEMBER_ADDED"
	ActionMemberRemoved    ActivityAction = "MEMBER_REMOVED"
)

var completionValuePattern = regexp.MustCompile(`(?i)done|complete`)

// ActivityLog is one append-only audit entry.
type ActivityLog struct {
	ID        uuid.UUID              `json:"id"`
	ProjectID uuid.UUID              `json:"projectId"`
	TaskID    *uuid.UUID             `json:"taskId,omitempty"`
	UserID    uuid.UUID              `json:"userId"`
	Action    ActivityAction         `json:"action"`
	Field     string                 `json:"field,omitempty"`
	OldValue  string                 `json:"oldValue,omitempty"`
	NewValue  string                 `json:"newValue,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// CountsAsCompletion reports whether the entry moved a task into a done column.
func (a *ActivityLog) CountsAsCompletion() bool {
	if a.Action != ActionTaskMoved && a.Action != ActionTaskUpdated {
		return false
	}
	return completionValuePattern.MatchString(a.NewValue)
}
