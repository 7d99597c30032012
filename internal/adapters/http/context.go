package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/ports"
)

const (
	sessionContextKey = "session"
	userContextKey    = "user"
)

// SetSession stores the verified session on the request context.
func SetSession(c echo.Context, s *ports.Session) {
	c.Set(sessionContextKey, s)
	c.Set(userContextKey, s.UserID)
}

// SessionFrom returns the session stored by SetSession, if any.
func SessionFrom(c echo.Context) (*ports.Session, bool) {
	s, ok := c.Get(sessionContextKey).(*ports.Session)
	return s, ok && s != nil
}

// getUserIDFromContext extracts the signed-in user's id
func getUserIDFromContext(c echo.Context) uuid.UUID {
	id, ok := c.Get(userContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

// WriteSessionCookie sets the HttpOnly session cookie.
func WriteSessionCookie(c echo.Context, cfg config.SessionConfig, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c echo.Context, cfg config.SessionConfig) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func parseUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ValidationMessage(err))
	}
	return nil
}

// ValidationMessage turns validator errors into a single readable sentence.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}
