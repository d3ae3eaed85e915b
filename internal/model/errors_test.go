package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistence(t *testing.T) {
	assert.NoError(t, Persistence("noop", nil))

	driverErr := errors.New("connection reset")
	err := Persistence("insert reservation", driverErr)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, "insert reservation: connection reset", err.Error())

	var pe *PersistenceError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "insert reservation", pe.Op)
}

func TestPersistence_PassesDomainErrors(t *testing.T) {
	notFound := fmt.Errorf("event 42: %w", ErrNotFound)
	err := Persistence("load event", notFound)
	assert.Same(t, notFound, err)
	assert.NotErrorIs(t, err, ErrPersistence)
}

func TestNotFoundf(t *testing.T) {
	err := NotFoundf("category %q", "VIP")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `category "VIP": not found`, err.Error())
}
