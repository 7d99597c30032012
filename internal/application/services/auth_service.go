package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// PasswordCost is the bcrypt cost used for new hashes.
var PasswordCost = bcrypt.DefaultCost

// requestValidator re-checks request tags for callers that bypass the HTTP
// binder, such as the CLI.
var requestValidator = validator.New()

// HashPassword bcrypt-hashes a plain password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthService handles signup and login
type AuthService struct {
	userRepo ports.UserRepository
	logger   *logger.Logger
	now      func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// Signup creates a new user account
func (s *AuthService) Signup(ctx context.Context, req ports.SignupRequest) (*entities.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = entities.NormalizeEmail(req.Email)
	if err := requestValidator.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}
	email := req.Email

	_, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, entities.ErrEmailTaken
	case !errors.Is(err, entities.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &entities.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entities.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infow("User registered successfully", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*entities.User, error) {
	email := entities.NormalizeEmail(req.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			s.logger.Warnw("Login attempt with non-existent email", "email", email)
			return nil, entities.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !checkPassword(user.PasswordHash, req.Password) {
		s.logger.Warnw("Login attempt with invalid password", "user_id", user.ID)
		return nil, entities.ErrInvalidCredentials
	}

	s.logger.Infow("User logged in successfully", "user_id", user.ID)
	return user, nil
}
