package entities

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRejected InvitationStatus = "REJECTED"
)

// Invitation asks an email address to join a project.
type Invitation struct {
	ID        uuid.UUID        `json:"id"`
	ProjectID uuid.UUID        `json:"projectId"`
	Email     string           `json:"email"`
	Role      MemberRole       `json:"role"`
	Token     string           `json:"-"`
	InviterID uuid.UUID        `json:"inviterId"`
	Status    InvitationStatus `json:"status"`
	ExpiresAt time.Time        `json:"expiresAt"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

func (i *Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// NormalizeEmail is the canonical form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewInvitationToken returns 32 random bytes, hex encoded.
func NewInvitationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
