package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/ports"
)

// sessionClaims is the payload of the session cookie
type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// SessionManager signs and verifies HS256 session tokens
type SessionManager struct {
	cfg config.SessionConfig
	now func() time.Time
}

// NewSessionManager creates a new session manager
func NewSessionManager(cfg config.SessionConfig) *SessionManager {
	return &SessionManager{cfg: cfg, now: time.Now}
}

// Issue signs a fresh token for the user.
func (m *SessionManager) Issue(user *entities.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.cfg.TTL)

	claims := sessionClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the signature, issuer and expiry of a token.
func (m *SessionManager) Parse(tokenString string) (*ports.Session, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(m.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrUnauthorized, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", entities.ErrUnauthorized)
	}

	s := &ports.Session{
		UserID:    userID,
		Email:     claims.Email,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}

// NeedsRefresh reports whether the sliding expiry should be pushed forward.
func (m *SessionManager) NeedsRefresh(s *ports.Session) bool {
	return m.now().Sub(s.IssuedAt) >= m.cfg.RefreshInterval
}
