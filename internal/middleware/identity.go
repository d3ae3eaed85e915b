package middleware

// identity.go holds helpers shared by handlers and the rate limiter for
// reading the authenticated user from the Echo context.

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id, or false for anonymous
// requests.
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(CtxUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// currentUserID is the rate-limit key component for the caller: the user id
// when authenticated, "anon" otherwise.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return id.String()
	}
	return "anon"
}
