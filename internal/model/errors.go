package model

import (
	"errors"
	"fmt"
)

// Outcomes shared by the stores and services.  NotFound, InsufficientInventory
// and Conflict are expected results that callers surface to clients.
// InvalidState means a reservation points at a category that no longer
// resolves.  Persistence wraps storage round-trip failures.
var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrConflict              = errors.New("conflict")
	ErrInvalidState          = errors.New("invalid state")
	ErrPersistence           = errors.New("persistence failure")
)

// PersistenceError records which storage operation failed.  It matches
// ErrPersistence under errors.Is and unwraps to the driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err as a PersistenceError for op.  A nil err stays nil
// and errors that already carry a domain outcome pass through untouched.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{ErrNotFound, ErrInsufficientInventory, ErrConflict, ErrInvalidState, ErrPersistence} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}

// NotFoundf returns an ErrNotFound wrapped with a description of what was missing.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}
