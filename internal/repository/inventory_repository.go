package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// InventoryRepo adjusts ticket_categories.available.
type InventoryRepo struct {
	q sqlx.ExtContext
}

// NewInventoryRepo returns an InventoryRepo using q.
func NewInventoryRepo(q sqlx.ExtContext) *InventoryRepo { return &InventoryRepo{q: q} }

// Reserve debits quantity in one conditional UPDATE.  The row lock taken by
// the update serializes concurrent reservations on the same category, and the
// availability guard in the WHERE clause keeps the count from going negative.
func (r *InventoryRepo) Reserve(ctx context.Context, eventID uuid.UUID, category string, quantity int) error {
	if quantity <= 0 {
		return model.ErrInsufficientInventory
	}
	const upd = `UPDATE ticket_categories SET available = available - ?
	             WHERE event_id = ? AND category_name = ? AND available >= ?`
	n, err := execAffected(ctx, r.q, upd, quantity, eventID, category, quantity)
	if err != nil {
		return model.Persistence("reserve inventory", err)
	}
	if n == 0 {
		return model.ErrInsufficientInventory
	}
	return nil
}

// Restore credits quantity back.  A category that no longer exists yields
// model.ErrInvalidState.
func (r *InventoryRepo) Restore(ctx context.Context, eventID uuid.UUID, category string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	const upd = `UPDATE ticket_categories SET available = available + ? WHERE event_id = ? AND category_name = ?`
	n, err := execAffected(ctx, r.q, upd, quantity, eventID, category)
	if err != nil {
		return model.Persistence("restore inventory", err)
	}
	if n == 0 {
		return model.ErrInvalidState
	}
	return nil
}
