package handler // package handler contains the echo HTTP handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/logging"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// requestTimeout bounds every storage round trip started by a handler.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError maps a service error onto the HTTP status and a JSON body.
// Anything outside the domain taxonomy is logged and reported as 500.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient inventory"})
	case errors.Is(err, model.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		logging.FromContext(c.Request().Context()).WithError(err).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses the :name path parameter as a UUID.
func pathID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

// currentUserID returns the authenticated user id set by the JWT middleware.
func currentUserID(c echo.Context) (uuid.UUID, bool) {
	return middleware.UserID(c)
}

// parseDateTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates
// (midnight UTC).
func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
