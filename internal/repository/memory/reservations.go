package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

type reservations struct{ v *view }

func (r *reservations) Create(ctx context.Context, res *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	if _, ok := r.v.st.reservations[res.ID]; ok {
		return model.ErrConflict
	}
	r.v.st.reservations[res.ID] = *res
	id := res.ID
	r.v.onRollback(func() { delete(r.v.st.reservations, id) })
	return nil
}

func (r *reservations) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	res, ok := r.v.st.reservations[id]
	if !ok {
		return nil, model.NotFoundf("reservation %s", id)
	}
	return &res, nil
}

func (r *reservations) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	u, ok := r.v.st.users[userID]
	if !ok {
		return []*model.Reservation{}, nil
	}
	out := []*model.Reservation{}
	for _, id := range lo.Uniq(u.History) {
		if res, ok := r.v.st.reservations[id]; ok {
			out = append(out, &res)
		}
	}
	return out, nil
}

func (r *reservations) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.lock.Lock()
	defer r.v.lock.Unlock()

	old, ok := r.v.st.reservations[id]
	if !ok {
		return model.NotFoundf("reservation %s", id)
	}
	delete(r.v.st.reservations, id)
	r.v.onRollback(func() { r.v.st.reservations[id] = old })
	return nil
}
