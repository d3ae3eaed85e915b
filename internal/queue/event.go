// Package queue carries the reservation audit trail over RabbitMQ: payload
// types, the publisher used by the services and the consumer that appends
// deliveries to the audit log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// Event types published on the reservation queue.
const (
	TypeReservationMade      = "reservation.made"
	TypeReservationCancelled = "reservation.cancelled"
)

// ReservationEvent is published after a make or cancel commits.  It carries
// enough for the audit log without querying the store.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID string `json:"reservation_id"`
	EventID       string `json:"event_id"`
	Category      string `json:"category"`
	Quantity      int    `json:"quantity"`
	UserID        string `json:"user_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewReservationEvent builds the payload for r.  userID may be uuid.Nil for
// anonymous reservations and cancellations.
func NewReservationEvent(typ string, r *model.Reservation, userID uuid.UUID, at time.Time) ReservationEvent {
	ev := ReservationEvent{
		Type:          typ,
		ReservationID: r.ID.String(),
		EventID:       r.EventID.String(),
		Category:      r.CategoryName,
		Quantity:      r.Quantity,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
	if userID != uuid.Nil {
		ev.UserID = userID.String()
	}
	return ev
}
