package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

type events struct{ v *view }

// Create stores a private copy of e.  The copy's categories become the live
// inventory ledger for the event.
func (r *events) Create(ctx context.Context, e *model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	if _, ok := r.v.st.events[e.ID]; ok {
		return model.ErrConflict
	}
	r.v.st.events[e.ID] = e.Clone()
	r.v.onRollback(func() { delete(r.v.st.events, e.ID) })
	return nil
}

func (r *events) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	e, ok := r.v.st.events[id]
	if !ok {
		return nil, model.NotFoundf("event %s", id)
	}
	return e.Clone(), nil
}

func (r *events) Search(ctx context.Context, start, end time.Time) ([]*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	matched := lo.Filter(lo.Values(r.v.st.events), func(e *model.Event, _ int) bool { return e.OnDate(start, end) })
	return lo.Map(matched, func(e *model.Event, _ int) *model.Event { return e.Clone() }), nil
}
