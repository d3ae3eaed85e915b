package handler

import (
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// EventHandler serves the event catalog.
type EventHandler struct {
	Events *service.EventService
}

// NewEventHandler panics on a nil service.
func NewEventHandler(events *service.EventService) *EventHandler {
	if events == nil {
		panic("nil service passed to NewEventHandler")
	}
	return &EventHandler{Events: events}
}

// ----- DTOs -----

type categoryReq struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
}

type createEventReq struct {
	Name       string        `json:"name"`
	DateTime   string        `json:"date_time"`
	Location   string        `json:"location"`
	Categories []categoryReq `json:"categories"`
}

// Create handles POST /v1/events.  The body must name the event, give a
// date_time (RFC 3339 or YYYY-MM-DD) and at least one category with a
// non-empty name, a non-negative price and a non-negative availability.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return badRequest(c, "name is required")
	}
	when, err := parseDateTime(req.DateTime)
	if err != nil {
		return badRequest(c, "date_time must be RFC 3339 or YYYY-MM-DD")
	}
	if len(req.Categories) == 0 {
		return badRequest(c, "at least one category is required")
	}
	inputs := make([]service.CategoryInput, 0, len(req.Categories))
	for _, cat := range req.Categories {
		name := strings.TrimSpace(cat.Name)
		switch {
		case name == "":
			return badRequest(c, "category name is required")
		case cat.Price.IsNegative():
			return badRequest(c, "category price must not be negative")
		case cat.Available < 0:
			return badRequest(c, "category availability must not be negative")
		}
		inputs = append(inputs, service.CategoryInput{Name: name, Price: cat.Price, Available: cat.Available})
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	e, err := h.Events.Create(ctx, req.Name, when, strings.TrimSpace(req.Location), inputs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	e, err := h.Events.FindByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Search handles GET /v1/events?from=&to=.  Both bounds are inclusive
// calendar days; to defaults to from.  Results are sorted by date.
func (h *EventHandler) Search(c echo.Context) error {
	fromRaw := c.QueryParam("from")
	if fromRaw == "" {
		return badRequest(c, "from is required")
	}
	from, err := parseDateTime(fromRaw)
	if err != nil {
		return badRequest(c, "from must be RFC 3339 or YYYY-MM-DD")
	}
	to := from
	if raw := c.QueryParam("to"); raw != "" {
		if to, err = parseDateTime(raw); err != nil {
			return badRequest(c, "to must be RFC 3339 or YYYY-MM-DD")
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	events, err := h.Events.Search(ctx, from, to)
	if err != nil {
		return writeError(c, err)
	}
	slices.SortFunc(events, func(a, b *model.Event) int { return a.DateTime.Compare(b.DateTime) })
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}
