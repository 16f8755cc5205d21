package middleware

// identity.go defines helpers shared across middleware and handlers for
// reading the caller resolved by Authenticate.

import (
	"github.com/labstack/echo/v4"

	"github.com/southwestptfs/flightdeck/internal/model"
)

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ContextUser).(model.User)
	return u, ok
}

// UserID returns the authenticated user id, or "anon" for public routes.
func UserID(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
