package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

type inventory struct{ v *view }

// Reserve debits the live category ledger.  TicketCategory.Reserve does the
// check and the decrement as one step.
func (r *inventory) Reserve(ctx context.Context, eventID uuid.UUID, category string, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	c, err := r.category(eventID, category, model.ErrInsufficientInventory)
	if err != nil {
		return err
	}
	prev := c.Available()
	if !c.Reserve(quantity) {
		return model.ErrInsufficientInventory
	}
	r.v.onRollback(func() { c.RestoreSnapshot(prev) })
	return nil
}

func (r *inventory) Restore(ctx context.Context, eventID uuid.UUID, category string, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if quantity <= 0 {
		return nil
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	c, err := r.category(eventID, category, model.ErrInvalidState)
	if err != nil {
		return err
	}
	prev := c.Available()
	c.Restore(quantity)
	r.v.onRollback(func() { c.RestoreSnapshot(prev) })
	return nil
}

// category resolves the live ledger entry.  Callers hold the view lock so a
// rollback cannot interleave with the debit.
func (r *inventory) category(eventID uuid.UUID, name string, missing error) (*model.TicketCategory, error) {
	e, ok := r.v.st.events[eventID]
	if !ok {
		return nil, missing
	}
	c, ok := e.Category(name)
	if !ok {
		return nil, missing
	}
	return c, nil
}
