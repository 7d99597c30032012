package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// IdentifierFunc picks the key a request is counted under.
type IdentifierFunc func(c echo.Context) string

// Middleware enforces p on every request it wraps. The request context bounds
// the backend call. Denied requests get a 429 with a Retry-After hint of one
// window.
func (l *Limiter) Middleware(p Policy, identify IdentifierFunc) echo.MiddlewareFunc {
	retryAfter := strconv.Itoa(int(p.Window.Seconds()))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.Request().Context(), p, identify(c)) {
				c.Response().Header().Set("Retry-After", retryAfter)
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
			}
			return next(c)
		}
	}
}
