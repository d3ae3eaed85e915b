// Package memory is an in-process implementation of repository.Store.  It is
// the default storage driver for local runs and the backing store for most
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
)

// Store keeps every record in maps guarded by one mutex.  Plain repository
// calls lock per call.  InTx holds the lock for the whole unit of work and
// replays an undo journal when fn fails.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	events       map[uuid.UUID]*model.Event
	reservations map[uuid.UUID]model.Reservation
	users        map[uuid.UUID]*model.User
	usernames    map[string]uuid.UUID
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: &state{
		events:       map[uuid.UUID]*model.Event{},
		reservations: map[uuid.UUID]model.Reservation{},
		users:        map[uuid.UUID]*model.User{},
		usernames:    map[string]uuid.UUID{},
	}}
}

func (s *Store) view() *view { return &view{st: s.st, lock: &s.mu} }

func (s *Store) Events() repository.EventStore             { return s.view().Events() }
func (s *Store) Inventory() repository.Inventory           { return s.view().Inventory() }
func (s *Store) Reservations() repository.ReservationStore { return s.view().Reservations() }
func (s *Store) Users() repository.UserStore               { return s.view().Users() }

// InTx runs fn with exclusive access to the store.  If fn returns an error
// every change it made is undone, newest first, before the lock is released.
// Rollback cost is proportional to the writes of fn, not to the store size.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &view{st: s.st, lock: noLock{}, journal: &journal{}}
	if err := fn(tx); err != nil {
		tx.journal.rollback()
		return err
	}
	return nil
}

// view is the Store handed to repositories.  Outside a transaction lock is
// the store mutex and journal is nil; inside one the mutex is already held,
// lock is a no-op and every write records its inverse in journal.
type view struct {
	st      *state
	lock    sync.Locker
	journal *journal
}

func (v *view) Events() repository.EventStore             { return &events{v} }
func (v *view) Inventory() repository.Inventory           { return &inventory{v} }
func (v *view) Reservations() repository.ReservationStore { return &reservations{v} }
func (v *view) Users() repository.UserStore               { return &users{v} }

// InTx joins the running transaction.
func (v *view) InTx(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(v)
}

// onRollback registers undo to run if the enclosing transaction fails.
// Outside a transaction writes are final and undo is dropped.
func (v *view) onRollback(undo func()) {
	if v.journal != nil {
		v.journal.undo = append(v.journal.undo, undo)
	}
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// journal holds the inverse of each write made inside a transaction.
type journal struct {
	undo []func()
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}
