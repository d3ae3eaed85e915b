package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/metrics"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/repository/memory"
)

var fixedNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type fixture struct {
	store        *memory.Store
	metrics      *metrics.Metrics
	logs         *logtest.Hook
	events       *EventService
	users        *UserService
	reservations *ReservationService
}

func newFixture(t *testing.T, pub queue.Publisher) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(), nil, pub)
}

// newFixtureWithStore builds the services over wrap(store) when wrap is set,
// keeping direct access to the underlying memory store for assertions.
func newFixtureWithStore(t *testing.T, store *memory.Store, wrap func(repository.Store) repository.Store, pub queue.Publisher) *fixture {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	log := logrus.NewEntry(logger)
	m := metrics.New()
	var s repository.Store = store
	if wrap != nil {
		s = wrap(store)
	}
	return &fixture{
		store:        store,
		metrics:      m,
		logs:         hook,
		events:       NewEventService(s, log),
		users:        NewUserService(s, log),
		reservations: NewReservationService(s, pub, m, log).WithClock(func() time.Time { return fixedNow }),
	}
}

func (f *fixture) concert(t *testing.T, vip int) *model.Event {
	t.Helper()
	e, err := f.events.Create(context.Background(), "Spring Concert", time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC), "Main Hall", []CategoryInput{
		{Name: "VIP", Price: decimal.NewFromInt(100), Available: vip},
		{Name: "Standard", Price: decimal.RequireFromString("39.90"), Available: 50},
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) available(t *testing.T, eventID uuid.UUID, name string) int {
	t.Helper()
	e, err := f.store.Events().FindByID(context.Background(), eventID)
	require.NoError(t, err)
	c, ok := e.Category(name)
	require.True(t, ok)
	return c.Available()
}

func (f *fixture) signUp(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.users.SignUp(context.Background(), name)
	require.NoError(t, err)
	return u
}

var errDisk = errors.New("disk I/O error")

// faultyStore fails selected writes inside transactions, standing in for a
// storage outage after the inventory debit.
type faultyStore struct {
	repository.Store
	failCreate      bool
	failSaveHistory bool
	failDelete      bool
}

func (f *faultyStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.InTx(ctx, func(tx repository.Store) error {
		return fn(&faultyStore{Store: tx, failCreate: f.failCreate, failSaveHistory: f.failSaveHistory, failDelete: f.failDelete})
	})
}

func (f *faultyStore) Reservations() repository.ReservationStore {
	return &faultyReservations{ReservationStore: f.Store.Reservations(), f: f}
}

func (f *faultyStore) Users() repository.UserStore {
	return &faultyUsers{UserStore: f.Store.Users(), f: f}
}

type faultyReservations struct {
	repository.ReservationStore
	f *faultyStore
}

func (r *faultyReservations) Create(ctx context.Context, res *model.Reservation) error {
	if r.f.failCreate {
		return model.Persistence("insert reservation", errDisk)
	}
	return r.ReservationStore.Create(ctx, res)
}

func (r *faultyReservations) Delete(ctx context.Context, id uuid.UUID) error {
	if r.f.failDelete {
		return model.Persistence("delete reservation", errDisk)
	}
	return r.ReservationStore.Delete(ctx, id)
}

type faultyUsers struct {
	repository.UserStore
	f *faultyStore
}

func (u *faultyUsers) SaveHistory(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if u.f.failSaveHistory {
		return model.Persistence("insert history", errDisk)
	}
	return u.UserStore.SaveHistory(ctx, userID, ids)
}
