package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

// SQLStore implements Store over a *sqlx.DB.  Queries are written with '?'
// placeholders and rebound for the connected driver, so the same statements
// run on MySQL and PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
	q  sqlx.ExtContext // db outside a transaction, the *sqlx.Tx inside one
	tx *sqlx.Tx
}

// NewSQLStore returns a Store bound to db.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// DB exposes the underlying handle for health checks and migrations.
func (s *SQLStore) DB() *sqlx.DB { return s.db }

func (s *SQLStore) Events() EventStore             { return &EventRepo{q: s.q} }
func (s *SQLStore) Inventory() Inventory           { return &InventoryRepo{q: s.q} }
func (s *SQLStore) Reservations() ReservationStore { return &ReservationRepo{q: s.q} }
func (s *SQLStore) Users() UserStore               { return &UserRepo{q: s.q} }

// InTx begins a transaction, hands fn a Store bound to it and commits when fn
// returns nil.  Any error, or a panic, rolls the transaction back.
func (s *SQLStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Persistence("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&SQLStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return model.Persistence("commit transaction", err)
	}
	committed = true
	return nil
}

// rebind converts '?' placeholders to the driver's bindvar style.
func rebind(q sqlx.ExtContext, query string) string {
	return q.Rebind(query)
}

// execAffected runs a statement and returns the number of affected rows.
func execAffected(ctx context.Context, q sqlx.ExtContext, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, rebind(q, query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
