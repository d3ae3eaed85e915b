package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

var _ Store = (*SQLStore)(nil)

func newMock(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewSQLStore(sqlx.NewDb(db, driver)), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestInventoryRepo_Reserve(t *testing.T) {
	eventID := uuid.New()
	const upd = `UPDATE ticket_categories SET available = available - ?`

	tests := []struct {
		name    string
		setup   func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "debited",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q(upd)).WithArgs(4, eventID, "VIP", 4).WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "not enough left",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q(upd)).WithArgs(4, eventID, "VIP", 4).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: model.ErrInsufficientInventory,
		},
		{
			name: "driver failure",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectExec(q(upd)).WillReturnError(errors.New("connection reset"))
			},
			wantErr: model.ErrPersistence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t, "mysql")
			tt.setup(mock)
			err := s.Inventory().Reserve(context.Background(), eventID, "VIP", 4)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestInventoryRepo_NonPositiveQuantity(t *testing.T) {
	s, _ := newMock(t, "mysql")
	ctx := context.Background()
	assert.ErrorIs(t, s.Inventory().Reserve(ctx, uuid.New(), "VIP", 0), model.ErrInsufficientInventory)
	assert.NoError(t, s.Inventory().Restore(ctx, uuid.New(), "VIP", -1))
}

func TestInventoryRepo_RestoreMissingCategory(t *testing.T) {
	s, mock := newMock(t, "mysql")
	mock.ExpectExec(q(`UPDATE ticket_categories SET available = available + ?`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Inventory().Restore(context.Background(), uuid.New(), "Gone", 2)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestEventRepo_FindByID(t *testing.T) {
	s, mock := newMock(t, "mysql")
	id := uuid.New()
	when := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q(`SELECT id, name, date_time, location FROM events WHERE id = ?`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date_time", "location"}).
			AddRow(id.String(), "Spring Concert", when, "Main Hall"))
	mock.ExpectQuery(q(`FROM ticket_categories WHERE event_id IN (?) ORDER BY event_id, position`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "position", "category_name", "price", "available"}).
			AddRow(id.String(), 0, "VIP", "100.00", 10).
			AddRow(id.String(), 1, "Standard", "40.50", 50))

	e, err := s.Events().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Spring Concert", e.Name)
	assert.True(t, when.Equal(e.DateTime))
	require.Len(t, e.Categories, 2)
	assert.Equal(t, "VIP", e.Categories[0].Name)
	assert.Equal(t, 10, e.Categories[0].Available())
	assert.True(t, decimal.RequireFromString("40.5").Equal(e.Categories[1].Price))
}

func TestEventRepo_FindByIDNotFound(t *testing.T) {
	s, mock := newMock(t, "mysql")
	mock.ExpectQuery(q(`FROM events WHERE id = ?`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date_time", "location"}))

	_, err := s.Events().FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEventRepo_SearchEmpty(t *testing.T) {
	s, mock := newMock(t, "mysql")
	start := time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q(`FROM events WHERE date_time >= ? AND date_time < ?`)).
		WithArgs(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date_time", "location"}))

	got, err := s.Events().Search(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEventRepo_CreateDuplicateCategory(t *testing.T) {
	s, mock := newMock(t, "mysql")
	e := &model.Event{
		ID:       uuid.New(),
		Name:     "Gala",
		DateTime: time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC),
		Categories: []*model.TicketCategory{
			model.NewTicketCategory("VIP", decimal.NewFromInt(10), 1),
		},
	}
	mock.ExpectExec(q(`INSERT INTO events`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO ticket_categories`)).
		WithArgs(e.ID, 0, "VIP", sqlmock.AnyArg(), 1).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	assert.ErrorIs(t, s.Events().Create(context.Background(), e), model.ErrConflict)
}

func TestReservationRepo_Delete(t *testing.T) {
	s, mock := newMock(t, "mysql")
	id := uuid.New()
	mock.ExpectExec(q(`DELETE FROM reservations WHERE id = ?`)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`DELETE FROM reservations WHERE id = ?`)).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Reservations().Delete(context.Background(), id))
	assert.ErrorIs(t, s.Reservations().Delete(context.Background(), id), model.ErrNotFound)
}

func TestReservationRepo_FindByIDPostgres(t *testing.T) {
	s, mock := newMock(t, "postgres")
	id, eventID := uuid.New(), uuid.New()
	reservedAt := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q(`FROM reservations WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "category_name", "quantity", "reserved_at"}).
			AddRow(id.String(), eventID.String(), "VIP", 3, reservedAt))

	r, err := s.Reservations().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, eventID, r.EventID)
	assert.Equal(t, 3, r.Quantity)
	assert.True(t, reservedAt.Equal(r.ReservedAt))
}

func TestReservationRepo_FindAllByUserDedupes(t *testing.T) {
	s, mock := newMock(t, "mysql")
	userID, a, b := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(q(`FROM user_reservations ur`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "category_name", "quantity", "reserved_at"}).
			AddRow(a.String(), uuid.NewString(), "VIP", 1, now).
			AddRow(b.String(), uuid.NewString(), "VIP", 2, now).
			AddRow(a.String(), uuid.NewString(), "VIP", 1, now))

	got, err := s.Reservations().FindAllByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)
}

func TestUserRepo_CreateConflict(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		err    error
	}{
		{"mysql", "mysql", &mysql.MySQLError{Number: 1062}},
		{"postgres", "postgres", &pq.Error{Code: "23505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMock(t, tt.driver)
			mock.ExpectExec(q(`INSERT INTO users`)).WillReturnError(tt.err)
			assert.ErrorIs(t, s.Users().Create(context.Background(), model.NewUser("alice")), model.ErrConflict)
		})
	}
}

func TestUserRepo_SaveHistoryInTx(t *testing.T) {
	s, mock := newMock(t, "mysql")
	userID, a := uuid.New(), uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(q(`DELETE FROM user_reservations WHERE user_id = ?`)).WithArgs(userID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO user_reservations`)).WithArgs(userID, 0, a).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO user_reservations`)).WithArgs(userID, 1, a).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx Store) error {
		return tx.Users().SaveHistory(context.Background(), userID, []uuid.UUID{a, a})
	})
	require.NoError(t, err)
}

func TestSQLStore_InTxRollsBack(t *testing.T) {
	s, mock := newMock(t, "mysql")
	mock.ExpectBegin()
	mock.ExpectExec(q(`UPDATE ticket_categories SET available = available - ?`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(`INSERT INTO reservations`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx Store) error {
		if err := tx.Inventory().Reserve(context.Background(), uuid.New(), "VIP", 1); err != nil {
			return err
		}
		return tx.Reservations().Create(context.Background(), model.NewReservation(uuid.New(), "VIP", 1, time.Now()))
	})
	assert.ErrorIs(t, err, model.ErrPersistence)
}

func TestSQLStore_BeginFails(t *testing.T) {
	s, mock := newMock(t, "mysql")
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := s.InTx(context.Background(), func(Store) error { called = true; return nil })
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.False(t, called)
}

func TestUserRepo_FindByIDForUpdate(t *testing.T) {
	for _, tt := range []struct{ driver, sel, hist string }{
		{"mysql", `SELECT id, username FROM users WHERE id = ? FOR UPDATE`, `WHERE user_id = ? ORDER BY position`},
		{"postgres", `SELECT id, username FROM users WHERE id = $1 FOR UPDATE`, `WHERE user_id = $1 ORDER BY position`},
	} {
		t.Run(tt.driver, func(t *testing.T) {
			s, mock := newMock(t, tt.driver)
			userID, a := uuid.New(), uuid.New()
			mock.ExpectBegin()
			mock.ExpectQuery(q(tt.sel)).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(userID.String(), "alice"))
			mock.ExpectQuery(q(tt.hist)).WithArgs(userID).
				WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(a.String()))
			mock.ExpectCommit()

			err := s.InTx(context.Background(), func(tx Store) error {
				u, err := tx.Users().FindByIDForUpdate(context.Background(), userID)
				if err != nil {
					return err
				}
				assert.Equal(t, []uuid.UUID{a}, u.History)
				return nil
			})
			require.NoError(t, err)
		})
	}
}
