package model

import (
	"time"

	"github.com/google/uuid"
)

// Reservation records a successful debit against one ticket category.  It is
// referenced by both the event (through EventID and CategoryName) and the
// user history, but owned by neither.  Records never change; cancelling a
// reservation deletes it.
//
// Fields:
//  ID           – opaque identity.
//  EventID      – event the tickets were debited from.
//  CategoryName – category within that event, resolved by name at use time.
//  Quantity     – number of tickets debited, always positive.
//  ReservedAt   – creation timestamp (UTC).
type Reservation struct {
	ID           uuid.UUID `json:"id" db:"id"`                       // reservations.id
	EventID      uuid.UUID `json:"event_id" db:"event_id"`           // reservations.event_id
	CategoryName string    `json:"category_name" db:"category_name"` // reservations.category_name
	Quantity     int       `json:"quantity" db:"quantity"`           // reservations.quantity
	ReservedAt   time.Time `json:"reserved_at" db:"reserved_at"`     // reservations.reserved_at
}

// NewReservation assigns a fresh identity and stamps the reservation with now.
func NewReservation(eventID uuid.UUID, categoryName string, quantity int, now time.Time) *Reservation {
	return &Reservation{
		ID:           uuid.New(),
		EventID:      eventID,
		CategoryName: categoryName,
		Quantity:     quantity,
		ReservedAt:   now.UTC(),
	}
}
