package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// ReservationHandler serves making, viewing and cancelling reservations.
type ReservationHandler struct {
	Reservations *service.ReservationService
	Users        *service.UserService
}

// NewReservationHandler panics on nil services.
func NewReservationHandler(reservations *service.ReservationService, users *service.UserService) *ReservationHandler {
	if reservations == nil || users == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: reservations, Users: users}
}

type makeReservationReq struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// Make handles POST /v1/events/:id/reservations.  Anonymous callers get an
// unattributed reservation; authenticated callers also get the id appended
// to their history.
func (h *ReservationHandler) Make(c echo.Context) error {
	eventID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req makeReservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		return badRequest(c, "category is required")
	}
	if req.Quantity <= 0 {
		return badRequest(c, "quantity must be positive")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var user *model.User
	if uid, ok := currentUserID(c); ok {
		u, err := h.Users.FindByID(ctx, uid)
		if err != nil {
			return writeError(c, err)
		}
		user = u
	}
	res, err := h.Reservations.MakeReservation(ctx, eventID, req.Category, req.Quantity, user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	res, err := h.Reservations.FindByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles DELETE /v1/reservations/:id and answers 204.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Reservations.CancelReservation(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /v1/me/reservations: the caller's live reservations in
// the order they were made.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
