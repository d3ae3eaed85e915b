package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/metrics"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

func qm(s string) string { return regexp.QuoteMeta(s) }

func newSQLReservationService(t *testing.T) (*ReservationService, *UserService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	logger, _ := logtest.NewNullLogger()
	log := logrus.NewEntry(logger)
	store := repository.NewSQLStore(sqlx.NewDb(db, "mysql"))
	rs := NewReservationService(store, nil, metrics.New(), log).WithClock(func() time.Time { return fixedNow })
	return rs, NewUserService(store, log), mock
}

func expectEvent(mock sqlmock.Sqlmock, eventID uuid.UUID) {
	mock.ExpectQuery(qm(`SELECT id, name, date_time, location FROM events WHERE id = ?`)).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "date_time", "location"}).
			AddRow(eventID.String(), "Spring Concert", fixedNow, "Main Hall"))
	mock.ExpectQuery(qm(`FROM ticket_categories WHERE event_id IN (?)`)).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "position", "category_name", "price", "available"}).
			AddRow(eventID.String(), 0, "VIP", "100.00", 10))
}

// The user row is locked before the history is read, so two reservations
// for the same user cannot both rewrite the history from a stale copy.
func TestMakeReservation_SQLLocksUserBeforeHistoryRewrite(t *testing.T) {
	rs, _, mock := newSQLReservationService(t)
	eventID, userID, earlier := uuid.New(), uuid.New(), uuid.New()

	expectEvent(mock, eventID)
	mock.ExpectBegin()
	mock.ExpectExec(qm(`UPDATE ticket_categories SET available = available - ?`)).
		WithArgs(2, eventID, "VIP", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm(`INSERT INTO reservations`)).
		WithArgs(sqlmock.AnyArg(), eventID, "VIP", 2, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qm(`SELECT id, username FROM users WHERE id = ? FOR UPDATE`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(userID.String(), "alice"))
	mock.ExpectQuery(qm(`SELECT reservation_id FROM user_reservations WHERE user_id = ? ORDER BY position`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(earlier.String()))
	mock.ExpectExec(qm(`DELETE FROM user_reservations WHERE user_id = ?`)).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm(`INSERT INTO user_reservations`)).
		WithArgs(userID, 0, earlier).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm(`INSERT INTO user_reservations`)).
		WithArgs(userID, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// the caller's copy is stale on purpose: the stored history wins
	user := &model.User{ID: userID, Username: "alice"}
	res, err := rs.MakeReservation(context.Background(), eventID, "VIP", 2, user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{earlier, res.ID}, user.History)
}

func TestAppendReservation_SQLLocksUser(t *testing.T) {
	_, us, mock := newSQLReservationService(t)
	userID, resID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(qm(`SELECT id, username FROM users WHERE id = ? FOR UPDATE`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(userID.String(), "alice"))
	mock.ExpectQuery(qm(`SELECT reservation_id FROM user_reservations`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}))
	mock.ExpectExec(qm(`DELETE FROM user_reservations WHERE user_id = ?`)).
		WithArgs(userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(qm(`INSERT INTO user_reservations`)).
		WithArgs(userID, 0, resID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, us.AppendReservation(context.Background(), userID, resID))
}

func TestMakeReservation_SQLUnknownUserRollsBack(t *testing.T) {
	rs, _, mock := newSQLReservationService(t)
	eventID, userID := uuid.New(), uuid.New()

	expectEvent(mock, eventID)
	mock.ExpectBegin()
	mock.ExpectExec(qm(`UPDATE ticket_categories SET available = available - ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qm(`INSERT INTO reservations`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(qm(`SELECT id, username FROM users WHERE id = ? FOR UPDATE`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))
	mock.ExpectRollback()

	_, err := rs.MakeReservation(context.Background(), eventID, "VIP", 2, &model.User{ID: userID})
	assert.ErrorIs(t, err, model.ErrNotFound)
}
