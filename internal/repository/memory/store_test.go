package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

var _ repository.Store = (*Store)(nil)

func seedEvent(t *testing.T, s *Store, when time.Time, available int) *model.Event {
	t.Helper()
	e := &model.Event{
		ID:       uuid.New(),
		Name:     "Spring Concert",
		DateTime: when,
		Location: "Main Hall",
		Categories: []*model.TicketCategory{
			model.NewTicketCategory("VIP", decimal.NewFromInt(100), available),
			model.NewTicketCategory("Standard", decimal.NewFromInt(40), 50),
		},
	}
	require.NoError(t, s.Events().Create(context.Background(), e))
	return e
}

func available(t *testing.T, s *Store, eventID uuid.UUID, name string) int {
	t.Helper()
	e, err := s.Events().FindByID(context.Background(), eventID)
	require.NoError(t, err)
	c, ok := e.Category(name)
	require.True(t, ok)
	return c.Available()
}

func TestInventory_ReserveAndRestore(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC), 10)

	require.NoError(t, s.Inventory().Reserve(ctx, e.ID, "VIP", 4))
	assert.Equal(t, 6, available(t, s, e.ID, "VIP"))

	err := s.Inventory().Reserve(ctx, e.ID, "VIP", 7)
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)
	assert.Equal(t, 6, available(t, s, e.ID, "VIP"))

	require.NoError(t, s.Inventory().Restore(ctx, e.ID, "VIP", 4))
	assert.Equal(t, 10, available(t, s, e.ID, "VIP"))
}

func TestInventory_MissingCategory(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Now(), 10)

	assert.ErrorIs(t, s.Inventory().Reserve(ctx, e.ID, "Balcony", 1), model.ErrInsufficientInventory)
	assert.ErrorIs(t, s.Inventory().Restore(ctx, e.ID, "Balcony", 1), model.ErrInvalidState)
	assert.ErrorIs(t, s.Inventory().Restore(ctx, uuid.New(), "VIP", 1), model.ErrInvalidState)
	assert.NoError(t, s.Inventory().Restore(ctx, e.ID, "Balcony", 0))
}

func TestInventory_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Now(), 10)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Inventory().Reserve(ctx, e.ID, "VIP", 6)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, model.ErrInsufficientInventory)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, available(t, s, e.ID, "VIP"))
}

func TestEvents_FindByIDReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Now(), 10)

	got, err := s.Events().FindByID(ctx, e.ID)
	require.NoError(t, err)
	got.Name = "changed"
	got.Categories[0].Reserve(10)

	again, err := s.Events().FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring Concert", again.Name)
	assert.Equal(t, 10, available(t, s, e.ID, "VIP"))

	_, err = s.Events().FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, s.Events().Create(ctx, e), model.ErrConflict)
}

func TestEvents_Search(t *testing.T) {
	ctx := context.Background()
	s := New()
	may1 := seedEvent(t, s, time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC), 10)
	may3 := seedEvent(t, s, time.Date(2026, 5, 3, 0, 15, 0, 0, time.UTC), 10)
	seedEvent(t, s, time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC), 10)

	tests := []struct {
		name       string
		start, end time.Time
		want       []uuid.UUID
	}{
		{"whole range", time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), []uuid.UUID{may1.ID, may3.ID}},
		{"single day", time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), []uuid.UUID{may3.ID}},
		{"empty", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 9, 0, 0, 0, 0, time.UTC), nil},
		{"offset bounds use the utc day", time.Date(2026, 5, 2, 20, 0, 0, 0, time.FixedZone("HST", -10*60*60)), time.Date(2026, 5, 2, 20, 0, 0, 0, time.FixedZone("HST", -10*60*60)), []uuid.UUID{may3.ID}},
		{"inverted", time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Events().Search(ctx, tt.start, tt.end)
			require.NoError(t, err)
			ids := make([]uuid.UUID, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestReservations_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := model.NewReservation(uuid.New(), "VIP", 2, time.Now())
	require.NoError(t, s.Reservations().Create(ctx, r))

	got, err := s.Reservations().FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, *r, *got)

	require.NoError(t, s.Reservations().Delete(ctx, r.ID))
	assert.ErrorIs(t, s.Reservations().Delete(ctx, r.ID), model.ErrNotFound)
	_, err = s.Reservations().FindByID(ctx, r.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUsers_CreateAndHistory(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := model.NewUser("alice")
	require.NoError(t, s.Users().Create(ctx, u))
	assert.ErrorIs(t, s.Users().Create(ctx, model.NewUser("alice")), model.ErrConflict)

	a, b := uuid.New(), uuid.New()
	require.NoError(t, s.Users().SaveHistory(ctx, u.ID, []uuid.UUID{a, b, a}))

	history, err := s.Users().LoadHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b, a}, history)

	byName, err := s.Users().FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, []uuid.UUID{a, b, a}, byName.History)

	_, err = s.Users().FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, model.ErrNotFound)

	empty, err := s.Users().LoadHistory(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReservations_FindAllByUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := model.NewUser("carol")
	require.NoError(t, s.Users().Create(ctx, u))

	first := model.NewReservation(uuid.New(), "VIP", 1, time.Now())
	second := model.NewReservation(uuid.New(), "VIP", 2, time.Now())
	cancelled := model.NewReservation(uuid.New(), "VIP", 3, time.Now())
	for _, r := range []*model.Reservation{first, second, cancelled} {
		require.NoError(t, s.Reservations().Create(ctx, r))
	}
	require.NoError(t, s.Users().SaveHistory(ctx, u.ID, []uuid.UUID{second.ID, cancelled.ID, first.ID, second.ID}))
	require.NoError(t, s.Reservations().Delete(ctx, cancelled.ID))

	got, err := s.Reservations().FindAllByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Now(), 10)
	u := model.NewUser("dave")
	require.NoError(t, s.Users().Create(ctx, u))

	boom := errors.New("boom")
	r := model.NewReservation(e.ID, "VIP", 4, time.Now())
	err := s.InTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Inventory().Reserve(ctx, e.ID, "VIP", 4))
		require.NoError(t, tx.Reservations().Create(ctx, r))
		require.NoError(t, tx.Users().SaveHistory(ctx, u.ID, []uuid.UUID{r.ID}))
		require.NoError(t, tx.Users().Create(ctx, model.NewUser("erin")))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 10, available(t, s, e.ID, "VIP"))
	_, err = s.Reservations().FindByID(ctx, r.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	history, err := s.Users().LoadHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	_, err = s.Users().FindByUsername(ctx, "erin")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInTx_CommitsAndNests(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Now(), 10)

	err := s.InTx(ctx, func(tx repository.Store) error {
		return tx.InTx(ctx, func(inner repository.Store) error {
			return inner.Inventory().Reserve(ctx, e.ID, "VIP", 3)
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 7, available(t, s, e.ID, "VIP"))
}

func TestInTx_UndoesEveryWriteNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := seedEvent(t, s, time.Now(), 10)
	kept := model.NewReservation(e.ID, "VIP", 2, time.Now())
	require.NoError(t, s.Reservations().Create(ctx, kept))
	u := model.NewUser("frank")
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Users().SaveHistory(ctx, u.ID, []uuid.UUID{kept.ID}))

	added := &model.Event{ID: uuid.New(), Name: "Late Show", DateTime: time.Now(), Location: "Annex"}
	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Inventory().Reserve(ctx, e.ID, "VIP", 3))
		require.NoError(t, tx.Inventory().Restore(ctx, e.ID, "VIP", 1))
		require.NoError(t, tx.Inventory().Reserve(ctx, e.ID, "VIP", 5))
		require.NoError(t, tx.Reservations().Delete(ctx, kept.ID))
		require.NoError(t, tx.Users().SaveHistory(ctx, u.ID, nil))
		require.NoError(t, tx.Users().SaveHistory(ctx, u.ID, []uuid.UUID{uuid.New(), uuid.New()}))
		require.NoError(t, tx.Events().Create(ctx, added))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 10, available(t, s, e.ID, "VIP"))
	got, err := s.Reservations().FindByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, kept.ID, got.ID)
	history, err := s.Users().LoadHistory(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{kept.ID}, history)
	_, err = s.Events().FindByID(ctx, added.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// a later transaction starts from a clean journal
	require.NoError(t, s.InTx(ctx, func(tx repository.Store) error {
		return tx.Inventory().Reserve(ctx, e.ID, "VIP", 1)
	}))
	assert.Equal(t, 9, available(t, s, e.ID, "VIP"))
}
