package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// InvitationService handles team invitations
type InvitationService struct {
	invitationRepo ports.InvitationRepository
	projectRepo    ports.ProjectRepository
	userRepo       ports.UserRepository
	activity       ports.ActivityRecorder
	mailer         ports.Mailer
	publicURL      string
	ttl            time.Duration
	logger         *logger.Logger
	now            func() time.Time
}

// NewInvitationService creates a new invitation service. publicURL is the
// browser-facing base that invitation links are built on.
func NewInvitationService(
	invitationRepo ports.InvitationRepository,
	projectRepo ports.ProjectRepository,
	userRepo ports.UserRepository,
	activity ports.ActivityRecorder,
	mailer ports.Mailer,
	publicURL string,
	ttl time.Duration,
	logger *logger.Logger,
) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		projectRepo:    projectRepo,
		userRepo:       userRepo,
		activity:       activity,
		mailer:         mailer,
		publicURL:      strings.TrimRight(publicURL, "/"),
		ttl:            ttl,
		logger:         logger.WithComponent("invitations"),
		now:            time.Now,
	}
}

// Invite creates a pending invitation and emails the link
func (s *InvitationService) Invite(ctx context.Context, userID, projectID uuid.UUID, req ports.InviteRequest) (*entities.Invitation, error) {
	project, err := adminProject(ctx, s.projectRepo, projectID, userID)
	if err != nil {
		return nil, err
	}

	email := entities.NormalizeEmail(req.Email)
	role := req.Role
	if role == "" {
		role = entities.MemberRoleMember
	}

	invitee, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if project.IsMember(invitee.ID) {
			return nil, entities.ErrAlreadyMember
		}
	case !errors.Is(err, entities.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}

	_, err = s.invitationRepo.FindPending(ctx, projectID, email)
	switch {
	case err == nil:
		return nil, entities.ErrPendingInvitationExists
	case !errors.Is(err, entities.ErrInvitationNotFound):
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}

	token, err := entities.NewInvitationToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &entities.Invitation{
		ID:        uuid.New(),
		ProjectID: projectID,
		Email:     email,
		Role:      role,
		Token:     token,
		InviterID: userID,
		Status:    entities.InvitationPending,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	inviterName := "Someone"
	if inviter, err := s.userRepo.GetByID(ctx, userID); err == nil && inviter.Name != "" {
		inviterName = inviter.Name
	}

	msg := ports.InvitationEmail{
		To:          email,
		ProjectName: project.Name,
		InviterName: inviterName,
		InviteURL:   s.InviteURL(token),
		ExpiresAt:   inv.ExpiresAt,
	}
	if err := s.mailer.SendInvitation(ctx, msg); err != nil {
		s.logger.Errorw("Failed to send invitation email", "error", err, "invitation_id", inv.ID)
	}

	s.logger.Infow("Invitation created", "invitation_id", inv.ID, "project_id", projectID)
	return inv, nil
}

// InviteURL is the link an invitee follows to accept.
func (s *InvitationService) InviteURL(token string) string {
	return s.publicURL + "/invite/" + token
}

// ListProjectInvitations returns a project's pending invitations
func (s *InvitationService) ListProjectInvitations(ctx context.Context, userID, projectID uuid.UUID) ([]*entities.Invitation, error) {
	if _, err := memberProject(ctx, s.projectRepo, projectID, userID); err != nil {
		return nil, err
	}

	invs, err := s.invitationRepo.ListPendingByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

// Revoke deletes an invitation on behalf of a project admin
func (s *InvitationService) Revoke(ctx context.Context, userID, invitationID uuid.UUID) error {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("failed to load invitation: %w", err)
	}
	if _, err := adminProject(ctx, s.projectRepo, inv.ProjectID, userID); err != nil {
		return err
	}

	if err := s.invitationRepo.Delete(ctx, invitationID); err != nil {
		return fmt.Errorf("failed to revoke invitation: %w", err)
	}
	return nil
}

// ListMine returns unexpired pending invitations addressed to the user
func (s *InvitationService) ListMine(ctx context.Context, userID uuid.UUID) ([]*ports.InvitationView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	invs, err := s.invitationRepo.ListPendingByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	now := s.now()
	inviterIDs := make([]uuid.UUID, 0, len(invs))
	for _, inv := range invs {
		inviterIDs = append(inviterIDs, inv.InviterID)
	}
	inviters, err := userSummaries(ctx, s.userRepo, inviterIDs)
	if err != nil {
		return nil, err
	}

	views := make([]*ports.InvitationView, 0, len(invs))
	projectNames := map[uuid.UUID]string{}
	for _, inv := range invs {
		if inv.IsExpired(now) {
			continue
		}

		name, ok := projectNames[inv.ProjectID]
		if !ok {
			name = "Unknown Project"
			if p, err := s.projectRepo.GetByID(ctx, inv.ProjectID); err == nil {
				name = p.Name
			} else if !errors.Is(err, entities.ErrProjectNotFound) {
				return nil, fmt.Errorf("failed to load project: %w", err)
			}
			projectNames[inv.ProjectID] = name
		}

		inviterName := "Someone"
		if u, ok := inviters[inv.InviterID]; ok {
			inviterName = u.Name
		}

		views = append(views, &ports.InvitationView{
			Invitation:  inv,
			Token:       inv.Token,
			ProjectName: name,
			InviterName: inviterName,
		})
	}
	return views, nil
}

// Accept adds the token holder to the project with the invited role. An
// expired invitation is deleted on sight.
func (s *InvitationService) Accept(ctx context.Context, userID uuid.UUID, token string) (*entities.Project, error) {
	inv, err := s.invitationRepo.GetPendingByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}

	now := s.now()
	if inv.IsExpired(now) {
		if err := s.invitationRepo.Delete(ctx, inv.ID); err != nil {
			s.logger.Warnw("Failed to delete expired invitation", "error", err, "invitation_id", inv.ID)
		}
		return nil, entities.ErrInvitationExpired
	}

	member := entities.Member{UserID: userID, Role: inv.Role, JoinedAt: now}
	if err := s.projectRepo.AddMember(ctx, inv.ProjectID, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if err := s.invitationRepo.UpdateStatus(ctx, inv.ID, entities.InvitationAccepted); err != nil {
		return nil, fmt.Errorf("failed to mark invitation accepted: %w", err)
	}

	project, err := s.projectRepo.GetByID(ctx, inv.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	s.activity.Record(ctx, entities.ActivityLog{
		ProjectID: project.ID,
		UserID:    userID,
		Action:    entities.ActionMemberAdded,
		NewValue:  string(inv.Role),
		Metadata:  map[string]interface{}{"invitationId": inv.ID.String()},
	})
	s.logger.Infow("Invitation accepted", "invitation_id", inv.ID, "user_id", userID)
	return project, nil
}

// Decline marks an invitation addressed to the user as rejected
func (s *InvitationService) Decline(ctx context.Context, userID, invitationID uuid.UUID) error {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("failed to load invitation: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if inv.Email != user.Email {
		return entities.ErrInvitationNotForUser
	}
	if !inv.IsPending() {
		return entities.ErrInvitationNotPending
	}

	if err := s.invitationRepo.UpdateStatus(ctx, invitationID, entities.InvitationRejected); err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}
	return nil
}

// PurgeExpired deletes invitations past their expiry. Stores with native TTL
// expiry still benefit between their own sweeps.
func (s *InvitationService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.invitationRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge invitations: %w", err)
	}
	if n > 0 {
		s.logger.Infow("Expired invitations purged", "count", n)
	}
	return n, nil
}
