// Package service holds the use cases behind the HTTP handlers: event
// catalog, user directory and the reservation coordinator that keeps
// inventory, reservation records and user history in agreement.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/metrics"
	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

const publishTimeout = 3 * time.Second

// ReservationService makes and cancels reservations.  Every state change runs
// in one Store transaction, so a failure part way leaves the inventory, the
// record and the history exactly as they were.
type ReservationService struct {
	store     repository.Store
	publisher queue.Publisher
	metrics   *metrics.Metrics
	log       *logrus.Entry
	now       func() time.Time
}

// NewReservationService wires the coordinator.  A nil publisher disables the
// audit trail.
func NewReservationService(store repository.Store, publisher queue.Publisher, m *metrics.Metrics, log *logrus.Entry) *ReservationService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &ReservationService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		log:       log.WithField("component", "reservations"),
		now:       time.Now,
	}
}

// WithClock replaces the time source used to stamp reservations.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// MakeReservation debits quantity tickets from the named category of the
// event and records the reservation.  When user is non-nil the reservation id
// is appended to the user's stored history and user.History is refreshed.
//
// Unknown event or category yields model.ErrNotFound.  Too few tickets (or a
// non-positive quantity) yields model.ErrInsufficientInventory.  Storage
// failures yield an error matching model.ErrPersistence.
func (s *ReservationService) MakeReservation(ctx context.Context, eventID uuid.UUID, categoryName string, quantity int, user *model.User) (*model.Reservation, error) {
	logger := s.log.WithFields(logrus.Fields{"event_id": eventID, "category": categoryName, "quantity": quantity})

	event, err := s.store.Events().FindByID(ctx, eventID)
	if err != nil {
		return nil, s.refuse(logger, "make", err)
	}
	if _, ok := event.Category(categoryName); !ok {
		return nil, s.refuse(logger, "make", model.NotFoundf("category %q of event %s", categoryName, eventID))
	}

	var (
		res     *model.Reservation
		history []uuid.UUID
	)
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Inventory().Reserve(ctx, eventID, categoryName, quantity); err != nil {
			return err
		}
		res = model.NewReservation(eventID, categoryName, quantity, s.now())
		if err := tx.Reservations().Create(ctx, res); err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		stored, err := tx.Users().FindByIDForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		stored.AppendReservation(res.ID)
		history = stored.History
		return tx.Users().SaveHistory(ctx, user.ID, history)
	})
	if err != nil {
		return nil, s.refuse(logger, "make", err)
	}

	userID := uuid.Nil
	if user != nil {
		user.History = history
		userID = user.ID
	}
	s.metrics.ReservationsMade.Inc()
	s.metrics.TicketsReserved.Add(float64(quantity))
	logger.WithFields(logrus.Fields{"reservation_id": res.ID, "user_id": userID}).Info("reservation made")
	s.publish(ctx, queue.NewReservationEvent(queue.TypeReservationMade, res, userID, res.ReservedAt))
	return res, nil
}

// CancelReservation credits the reserved quantity back and deletes the
// record.  User histories keep the id; see UserService.PruneHistory.
//
// A missing reservation yields model.ErrNotFound, including when a
// concurrent cancel wins.  A reservation whose event or category no longer
// resolves yields model.ErrInvalidState.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID uuid.UUID) error {
	logger := s.log.WithField("reservation_id", reservationID)

	res, err := s.store.Reservations().FindByID(ctx, reservationID)
	if err != nil {
		return s.refuse(logger, "cancel", err)
	}
	logger = logger.WithFields(logrus.Fields{"event_id": res.EventID, "category": res.CategoryName, "quantity": res.Quantity})

	event, err := s.store.Events().FindByID(ctx, res.EventID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return s.refuse(logger, "cancel", fmt.Errorf("event %s of reservation %s: %w", res.EventID, res.ID, model.ErrInvalidState))
	case err != nil:
		return s.refuse(logger, "cancel", err)
	}
	if _, ok := event.Category(res.CategoryName); !ok {
		return s.refuse(logger, "cancel", fmt.Errorf("category %q of reservation %s: %w", res.CategoryName, res.ID, model.ErrInvalidState))
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Inventory().Restore(ctx, res.EventID, res.CategoryName, res.Quantity); err != nil {
			return err
		}
		return tx.Reservations().Delete(ctx, res.ID)
	})
	if err != nil {
		return s.refuse(logger, "cancel", err)
	}

	s.metrics.ReservationsCancelled.Inc()
	s.metrics.TicketsReleased.Add(float64(res.Quantity))
	logger.Info("reservation cancelled")
	s.publish(ctx, queue.NewReservationEvent(queue.TypeReservationCancelled, res, uuid.Nil, s.now()))
	return nil
}

// FindByID returns the reservation or model.ErrNotFound.
func (s *ReservationService) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.store.Reservations().FindByID(ctx, id)
}

// ListByUser returns the user's live reservations in history order.
// Cancelled ids are skipped and repeated ids appear once.
func (s *ReservationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Reservation, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Reservations().FindAllByUser(ctx, userID)
}

// refuse counts and logs a failed make or cancel and returns err unchanged.
func (s *ReservationService) refuse(logger *logrus.Entry, op string, err error) error {
	reason := refusalReason(err)
	s.metrics.Refusals.WithLabelValues(op, reason).Inc()
	entry := logger.WithError(err).WithField("reason", reason)
	if reason == metrics.ReasonPersistence {
		entry.Errorf("%s reservation failed", op)
	} else {
		entry.Warnf("%s reservation refused", op)
	}
	return err
}

func refusalReason(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return metrics.ReasonNotFound
	case errors.Is(err, model.ErrInsufficientInventory):
		return metrics.ReasonInsufficient
	case errors.Is(err, model.ErrInvalidState):
		return metrics.ReasonInvalidState
	default:
		return metrics.ReasonPersistence
	}
}

// publish sends ev after a commit.  The request context may already be done
// by the time the broker answers, so the publish gets its own deadline,
// which also bounds the broker dial.
func (s *ReservationService) publish(ctx context.Context, ev queue.ReservationEvent) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		s.log.WithError(err).WithField("reservation_id", ev.ReservationID).Warn("audit event not published")
	}
}
