package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// UserService handles the signed-in user's own account
type UserService struct {
	userRepo       ports.UserRepository
	projectRepo    ports.ProjectRepository
	invitationRepo ports.InvitationRepository
	logger         *logger.Logger
	now            func() time.Time
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, projectRepo ports.ProjectRepository, invitationRepo ports.InvitationRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo:       userRepo,
		projectRepo:    projectRepo,
		invitationRepo: invitationRepo,
		logger:         logger,
		now:            time.Now,
	}
}

// GetProfile returns the user's own record
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes display name and avatar
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req ports.UpdateProfileRequest) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, entities.ErrNameRequired
		}
		user.Name = name
	}
	if req.Avatar != nil {
		if *req.Avatar == "" {
			user.Avatar = nil
		} else {
			avatar := *req.Avatar
			user.Avatar = &avatar
		}
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req ports.ChangePasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return entities.ErrPasswordConfirmation
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if !checkPassword(user.PasswordHash, req.CurrentPassword) {
		s.logger.LogSecurityEvent("password_change_rejected", userID.String(), "", nil)
		return entities.ErrPasswordMismatch
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Infow("Password changed", "user_id", userID)
	return nil
}

// CompleteOnboarding marks the first-run tour as done
func (s *UserService) CompleteOnboarding(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user.OnboardingCompleted {
		return nil
	}
	user.OnboardingCompleted = true
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update onboarding state: %w", err)
	}
	return nil
}

// DeleteAccount removes the user with everything they own: owned projects
// (with their tasks), memberships elsewhere and invitations addressed to them.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	projects, err := s.projectRepo.ListForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	owned := 0
	for _, p := range projects {
		if p.OwnerID != userID {
			continue
		}
		if err := s.projectRepo.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to delete project %s: %w", p.ID, err)
		}
		owned++
	}

	if err := s.projectRepo.RemoveMemberEverywhere(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}

	if err := s.invitationRepo.DeleteByEmail(ctx, user.Email); err != nil {
		return fmt.Errorf("failed to delete invitations: %w", err)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "account_deleted", map[string]interface{}{
		"owned_projects_deleted": owned,
	})
	return nil
}
