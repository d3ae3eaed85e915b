package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// UserRepo manages the users and user_reservations tables.
type UserRepo struct {
	q sqlx.ExtContext
}

// NewUserRepo returns a UserRepo using q.
func NewUserRepo(q sqlx.ExtContext) *UserRepo { return &UserRepo{q: q} }

// Create inserts the user and any history it already carries.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const ins = `INSERT INTO users (id, username) VALUES (?, ?)`
	if _, err := r.q.ExecContext(ctx, rebind(r.q, ins), u.ID, u.Username); err != nil {
		return translate("insert user", err, nil)
	}
	if len(u.History) == 0 {
		return nil
	}
	return r.insertHistory(ctx, u.ID, u.History)
}

// FindByID fetches a user by id with its history.
func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const sel = `SELECT id, username FROM users WHERE id = ?`
	return r.find(ctx, sel, id, model.NotFoundf("user %s", id))
}

// FindByIDForUpdate is FindByID with the users row locked (SELECT ... FOR
// UPDATE, valid on MySQL and PostgreSQL).  Concurrent history writers for
// the same user queue on the lock, so each reads the other's committed list.
func (r *UserRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const sel = `SELECT id, username FROM users WHERE id = ? FOR UPDATE`
	return r.find(ctx, sel, id, model.NotFoundf("user %s", id))
}

// FindByUsername fetches a user by exact username with its history.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	const sel = `SELECT id, username FROM users WHERE username = ?`
	return r.find(ctx, sel, username, model.NotFoundf("user %q", username))
}

func (r *UserRepo) find(ctx context.Context, query string, arg any, notFound error) (*model.User, error) {
	var u model.User
	if err := sqlx.GetContext(ctx, r.q, &u, rebind(r.q, query), arg); err != nil {
		return nil, translate("select user", err, notFound)
	}
	history, err := r.LoadHistory(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.History = history
	return &u, nil
}

// LoadHistory returns the user's reservation ids ordered by position.
func (r *UserRepo) LoadHistory(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	const sel = `SELECT reservation_id FROM user_reservations WHERE user_id = ? ORDER BY position`
	if err := sqlx.SelectContext(ctx, r.q, &ids, rebind(r.q, sel), userID); err != nil {
		return nil, translate("select history", err, nil)
	}
	return ids, nil
}

// SaveHistory deletes the stored history and writes ids in order.  Run it
// inside Store.InTx so a failure leaves the previous history intact.
func (r *UserRepo) SaveHistory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	const del = `DELETE FROM user_reservations WHERE user_id = ?`
	if _, err := r.q.ExecContext(ctx, rebind(r.q, del), userID); err != nil {
		return model.Persistence("clear history", err)
	}
	return r.insertHistory(ctx, userID, ids)
}

func (r *UserRepo) insertHistory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	const ins = `INSERT INTO user_reservations (user_id, position, reservation_id) VALUES (?, ?, ?)`
	for i, id := range ids {
		if _, err := r.q.ExecContext(ctx, rebind(r.q, ins), userID, i, id); err != nil {
			return model.Persistence("insert history", err)
		}
	}
	return nil
}
