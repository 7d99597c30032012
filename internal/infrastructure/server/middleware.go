package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/flowhq/flow/internal/adapters/http"
	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/ports"
)

// loadSession resolves the session cookie (or a Bearer token) into a session
// on the request context. Requests without a valid token pass through
// anonymous; requireAuth decides whether that is acceptable.
func (s *Server) loadSession(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := s.sessionToken(c)
			if token == "" {
				return next(c)
			}

			session, err := sessions.Parse(token)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_session", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return next(c)
			}
			httpHandlers.SetSession(c, session)

			if sessions.NeedsRefresh(session) {
				s.refreshSession(c, sessions, session)
			}
			return next(c)
		}
	}
}

// sessionToken prefers the cookie and falls back to the Authorization header.
func (s *Server) sessionToken(c echo.Context) string {
	if cookie, err := c.Cookie(s.config.Session.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return ""
	}
	return strings.TrimSpace(token)
}

// refreshSession pushes the sliding expiry forward. Failure only means the
// client keeps its current token.
func (s *Server) refreshSession(c echo.Context, sessions ports.SessionService, session *ports.Session) {
	user := &entities.User{ID: session.UserID, Email: session.Email, Name: session.Name}
	token, expiresAt, err := sessions.Issue(user)
	if err != nil {
		s.logger.Warnw("Failed to refresh session", "user_id", session.UserID, "error", err)
		return
	}
	httpHandlers.WriteSessionCookie(c, s.config.Session, token, expiresAt)
}

// requireAuth rejects anonymous requests.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := httpHandlers.SessionFrom(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, entities.ErrUnauthorized.Error())
		}
		return next(c)
	}
}

// clientIdentifier counts signed-in users by id and everyone else by address.
func clientIdentifier(c echo.Context) string {
	if session, ok := httpHandlers.SessionFrom(c); ok {
		return "user:" + session.UserID.String()
	}
	return "ip:" + c.RealIP()
}
