package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RoleOperator is granted by OperatorKey to callers presenting the operator
// API key.
const RoleOperator = "operator"

// OperatorKey authenticates event publishers by the X-Operator-Key header
// and marks the request with RoleOperator.  A missing header yields 400 and
// a wrong key 401, as echo's key-auth middleware does.
func OperatorKey(key string) echo.MiddlewareFunc {
	return echomw.KeyAuthWithConfig(echomw.KeyAuthConfig{
		KeyLookup: "header:X-Operator-Key",
		Validator: func(got string, c echo.Context) (bool, error) {
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return false, nil
			}
			c.Set(CtxRole, RoleOperator)
			return true, nil
		},
	})
}

// RequireRole rejects requests whose role (set by JWTAuth or OperatorKey) is
// not one of roles with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
