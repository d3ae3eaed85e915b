package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// ReservationRepo manages the reservations table.
type ReservationRepo struct {
	q sqlx.ExtContext
}

// NewReservationRepo returns a ReservationRepo using q.
func NewReservationRepo(q sqlx.ExtContext) *ReservationRepo { return &ReservationRepo{q: q} }

// Create inserts the reservation record.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const ins = `INSERT INTO reservations (id, event_id, category_name, quantity, reserved_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, rebind(r.q, ins), res.ID, res.EventID, res.CategoryName, res.Quantity, res.ReservedAt.UTC())
	return translate("insert reservation", err, nil)
}

// FindByID fetches a reservation by id.
func (r *ReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	const sel = `SELECT id, event_id, category_name, quantity, reserved_at FROM reservations WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.q, &res, rebind(r.q, sel), id); err != nil {
		return nil, translate("select reservation", err, model.NotFoundf("reservation %s", id))
	}
	res.ReservedAt = res.ReservedAt.UTC()
	return &res, nil
}

// FindAllByUser joins the user's history to the reservations that still
// exist.  The inner join drops cancelled ids; repeated ids keep their first
// position.
func (r *ReservationRepo) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*model.Reservation, error) {
	var rows []*model.Reservation
	const sel = `SELECT r.id, r.event_id, r.category_name, r.quantity, r.reserved_at
	             FROM user_reservations ur
	             JOIN reservations r ON r.id = ur.reservation_id
	             WHERE ur.user_id = ?
	             ORDER BY ur.position`
	if err := sqlx.SelectContext(ctx, r.q, &rows, rebind(r.q, sel), userID); err != nil {
		return nil, translate("select user reservations", err, nil)
	}
	for _, res := range rows {
		res.ReservedAt = res.ReservedAt.UTC()
	}
	return lo.UniqBy(rows, func(res *model.Reservation) uuid.UUID { return res.ID }), nil
}

// Delete removes the reservation.  Zero affected rows means another caller
// already removed it.
func (r *ReservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := execAffected(ctx, r.q, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return model.Persistence("delete reservation", err)
	}
	if n == 0 {
		return model.NotFoundf("reservation %s", id)
	}
	return nil
}
