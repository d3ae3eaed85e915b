package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Event is a scheduled occasion with one or more ticket categories.  Apart
// from category availability an event does not change after creation.
//
// Fields:
//  ID         – opaque identity assigned on creation.
//  Name       – display name.
//  DateTime   – when the event takes place.
//  Location   – free-form venue description.
//  Categories – ordered ticket categories, unique by name.
type Event struct {
	ID         uuid.UUID         `json:"id"`        // events.id
	Name       string            `json:"name"`      // events.name
	DateTime   time.Time         `json:"date_time"` // events.date_time
	Location   string            `json:"location"`  // events.location
	Categories []*TicketCategory `json:"categories"`
}

// Category looks up a ticket category by exact name.
func (e *Event) Category(name string) (*TicketCategory, bool) {
	return lo.Find(e.Categories, func(c *TicketCategory) bool { return c.Name == name })
}

// OnDate reports whether the event's calendar date lies within [start, end].
// Only the UTC date component of each argument is compared.
func (e *Event) OnDate(start, end time.Time) bool {
	d := truncateDay(e.DateTime)
	return !d.Before(truncateDay(start)) && !d.After(truncateDay(end))
}

// Clone returns a deep copy so callers can mutate categories without touching
// the stored event.
func (e *Event) Clone() *Event {
	cp := *e
	cp.Categories = lo.Map(e.Categories, func(c *TicketCategory, _ int) *TicketCategory { return c.Clone() })
	return &cp
}

// truncateDay returns midnight of t's UTC calendar day, the same day boundary
// the SQL store queries with.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
