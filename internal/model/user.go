package model

import (
	"github.com/google/uuid"
)

// User is an identity with an ordered history of reservation ids.  The
// history is a list of weak references: cancelling a reservation does not
// remove its id, and appending the same id twice keeps both entries.
//
// Fields:
//  ID       – opaque identity.
//  Username – unique login name.
//  History  – reservation ids in the order they were made.
type User struct {
	ID       uuid.UUID   `json:"id" db:"id"`             // users.id
	Username string      `json:"username" db:"username"` // users.username
	History  []uuid.UUID `json:"history" db:"-"`         // user_reservations.reservation_id ordered by position
}

// NewUser returns a user with a fresh identity and an empty history.
func NewUser(username string) *User {
	return &User{ID: uuid.New(), Username: username, History: []uuid.UUID{}}
}

// AppendReservation adds id to the end of the history without checking for
// an existing entry.
func (u *User) AppendReservation(id uuid.UUID) {
	u.History = append(u.History, id)
}

// HistoryCopy returns the history as a new slice.
func (u *User) HistoryCopy() []uuid.UUID {
	out := make([]uuid.UUID, len(u.History))
	copy(out, u.History)
	return out
}
