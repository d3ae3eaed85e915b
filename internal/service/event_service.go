package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// CategoryInput describes one ticket category of a new event.
type CategoryInput struct {
	Name      string
	Price     decimal.Decimal
	Available int
}

// EventService manages the event catalog.
type EventService struct {
	store repository.Store
	log   *logrus.Entry
}

// NewEventService returns an EventService backed by store.
func NewEventService(store repository.Store, log *logrus.Entry) *EventService {
	return &EventService{store: store, log: log.WithField("component", "events")}
}

// Create assigns a fresh id and stores the event with its categories in
// order.  Repeated category names yield model.ErrConflict.
func (s *EventService) Create(ctx context.Context, name string, dateTime time.Time, location string, categories []CategoryInput) (*model.Event, error) {
	if dups := lo.FindDuplicatesBy(categories, func(c CategoryInput) string { return c.Name }); len(dups) > 0 {
		return nil, fmt.Errorf("category %q listed twice: %w", dups[0].Name, model.ErrConflict)
	}
	e := &model.Event{
		ID:       uuid.New(),
		Name:     name,
		DateTime: dateTime.UTC(),
		Location: location,
		Categories: lo.Map(categories, func(c CategoryInput, _ int) *model.TicketCategory {
			return model.NewTicketCategory(c.Name, c.Price, c.Available)
		}),
	}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		return tx.Events().Create(ctx, e)
	})
	if err != nil {
		s.log.WithError(err).WithField("name", name).Error("create event failed")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"event_id": e.ID, "categories": len(e.Categories)}).Info("event created")
	return e, nil
}

// FindByID returns the event or model.ErrNotFound.
func (s *EventService) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.store.Events().FindByID(ctx, id)
}

// Search returns events whose calendar date lies within [start, end].
// Order is not guaranteed.
func (s *EventService) Search(ctx context.Context, start, end time.Time) ([]*model.Event, error) {
	return s.store.Events().Search(ctx, start, end)
}
