// Package repository defines the storage contracts used by the services and
// the SQL implementation backed by MySQL or PostgreSQL.  The in-memory
// implementation lives in the memory subpackage.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// EventStore persists events together with their ticket categories.
type EventStore interface {
	// Create stores the event and every category.  A duplicate id yields
	// model.ErrConflict.
	Create(ctx context.Context, e *model.Event) error
	// FindByID returns a freshly loaded copy of the event or model.ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	// Search returns events whose date falls in [start, end], compared by
	// calendar day.  Order is not guaranteed.
	Search(ctx context.Context, start, end time.Time) ([]*model.Event, error)
}

// Inventory adjusts the available count of a single ticket category.  Reserve
// is a conditional debit: it succeeds only when at least quantity tickets
// remain, otherwise it returns model.ErrInsufficientInventory and changes
// nothing.
type Inventory interface {
	Reserve(ctx context.Context, eventID uuid.UUID, category string, quantity int) error
	Restore(ctx context.Context, eventID uuid.UUID, category string, quantity int) error
}

// ReservationStore persists reservation records.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	// FindAllByUser resolves the user's history in order, skipping ids that
	// no longer exist and repeated ids.
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*model.Reservation, error)
	// Delete removes the record.  It returns model.ErrNotFound when nothing
	// was deleted, which is how a concurrent second cancel is detected.
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserStore persists users and their reservation history.
type UserStore interface {
	// Create stores a new user.  A taken username yields model.ErrConflict.
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindByIDForUpdate is FindByID that also locks the user row until the
	// enclosing transaction ends.  Read-modify-write of the history must use
	// it, otherwise a concurrent SaveHistory can drop an entry.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	LoadHistory(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	// SaveHistory replaces the stored history with ids, keeping order and
	// duplicates.
	SaveHistory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
}

// Store groups the repositories and runs units of work.  Inside InTx every
// repository obtained from the provided Store participates in the same
// transaction; returning an error from fn rolls all of it back.  InTx on a
// transactional Store joins the running transaction.
type Store interface {
	Events() EventStore
	Inventory() Inventory
	Reservations() ReservationStore
	Users() UserStore
	InTx(ctx context.Context, fn func(tx Store) error) error
}
