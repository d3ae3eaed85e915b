package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// UserService manages the user directory.
type UserService struct {
	store repository.Store
	log   *logrus.Entry
}

// NewUserService returns a UserService backed by store.
func NewUserService(store repository.Store, log *logrus.Entry) *UserService {
	return &UserService{store: store, log: log.WithField("component", "users")}
}

// SignUp creates a user.  A taken username yields model.ErrConflict.
func (s *UserService) SignUp(ctx context.Context, username string) (*model.User, error) {
	u := model.NewUser(username)
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, fmt.Errorf("username %q is already taken: %w", username, err)
		}
		s.log.WithError(err).Error("sign up failed")
		return nil, err
	}
	s.log.WithField("user_id", u.ID).Info("user signed up")
	return u, nil
}

// Login looks the user up by username and loads the history.
func (s *UserService) Login(ctx context.Context, username string) (*model.User, error) {
	return s.store.Users().FindByUsername(ctx, username)
}

// FindByID returns the user with its history, or model.ErrNotFound.
func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.store.Users().FindByID(ctx, id)
}

// LoadHistory returns the stored reservation ids of the user in order.
func (s *UserService) LoadHistory(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return s.store.Users().LoadHistory(ctx, userID)
}

// AppendReservation adds reservationID to the end of the user's history.  It
// does not check for an existing entry: appending twice stores it twice.
func (s *UserService) AppendReservation(ctx context.Context, userID, reservationID uuid.UUID) error {
	return s.store.InTx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		u.AppendReservation(reservationID)
		return tx.Users().SaveHistory(ctx, userID, u.History)
	})
}

// PruneHistory drops ids of reservations that no longer exist from the
// user's history and returns what remains.  Order and repeated live ids are
// kept.
func (s *UserService) PruneHistory(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var kept []uuid.UUID
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		u, err := tx.Users().FindByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		live := map[uuid.UUID]bool{}
		for _, id := range lo.Uniq(u.History) {
			_, err := tx.Reservations().FindByID(ctx, id)
			switch {
			case err == nil:
				live[id] = true
			case !errors.Is(err, model.ErrNotFound):
				return err
			}
		}
		kept = lo.Filter(u.History, func(id uuid.UUID, _ int) bool { return live[id] })
		if len(kept) == len(u.History) {
			return nil
		}
		return tx.Users().SaveHistory(ctx, userID, kept)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "remaining": len(kept)}).Info("history pruned")
	return kept, nil
}
