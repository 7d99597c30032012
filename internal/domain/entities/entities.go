package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound            = errors.New("user not found")
	ErrProjectNotFound         = errors.New("project not found")
	ErrTaskNotFound            = errors.New("task not found")
	ErrSubtaskNotFound         = errors.New("subtask not found")
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrEmailTaken              = errors.New("user already exists")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrPasswordMismatch        = errors.New("current password is incorrect")
	ErrPasswordConfirmation    = errors.New("new passwords do not match")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrNotProjectMember        = errors.New("not a member of this project")
	ErrForbidden               = errors.New("insufficient project permissions")
	ErrOwnerRemoval            = errors.New("the project owner cannot be removed")
	ErrProjectKeyTaken         = errors.New("project key already in use")
	ErrInvalidProjectKey       = errors.New("project key must be 2-10 upper-case letters or digits starting with a letter")
	ErrUnknownColumn           = errors.New("status does not match any column")
	ErrUnknownLabel            = errors.New("label does not exist on this project")
	ErrInvalidColumns          = errors.New("columns must have unique non-empty ids and titles")
	ErrInvalidLabels           = errors.New("labels must have unique ids, names and #rrggbb colors")
	ErrAssigneeNotMember       = errors.New("assignee is not a member of this project")
	ErrAlreadyMember           = errors.New("user is already a member of this project")
	ErrPendingInvitationExists = errors.New("invitation already sent to this email")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationNotPending    = errors.New("invitation is no longer pending")
	ErrInvitationNotForUser    = errors.New("invitation was sent to a different email")
	ErrUnknownTemplate         = errors.New("unknown project template")
	ErrProjectNameRequired     = errors.New("project name is required")
	ErrTaskTitleRequired       = errors.New("task title is required")
	ErrTextRequired            = errors.New("text is required")
	ErrNameRequired            = errors.New("name is required")
	ErrInvalidInput            = errors.New("invalid input")
)

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// MemberRole is a user's role within a single project.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "ADMIN"
	MemberRoleMember MemberRole = "MEMBER"
)

func (r MemberRole) IsValid() bool {
	return r == MemberRoleAdmin || r == MemberRoleMember
}

// User represents an account
type User struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Email               string    `json:"email" db:"email"`
	PasswordHash        string    `json:"-" db:"password_hash"`
	Avatar              *string   `json:"avatar,omitempty" db:"avatar"`
	OnboardingCompleted bool      `json:"onboardingCompleted" db:"onboarding_completed"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// Summary returns the public projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// UserSummary is what other users get to see when a reference is populated.
type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar *string   `json:"avatar,omitempty"`
}
