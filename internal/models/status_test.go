package models

import (
	"testing"

	"marketplace-service/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"pending", "shipped", "out_for_delivery", "delivered", "cancelled"} {
		status, err := ParseStatus(valid)
		assert.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	for _, invalid := range []string{"", "Pending", "archived", "canceled"} {
		_, err := ParseStatus(invalid)
		assert.ErrorIs(t, err, apperr.ErrValidation, invalid)
	}
}

func TestCanTransitionTo(t *testing.T) {
	// Admins may move between any non-cancelled states, including backwards.
	assert.NoError(t, StatusPending.CanTransitionTo(StatusDelivered))
	assert.NoError(t, StatusDelivered.CanTransitionTo(StatusShipped))
	assert.NoError(t, StatusShipped.CanTransitionTo(StatusCancelled))

	err := StatusCancelled.CanTransitionTo(StatusPending)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.NoError(t, StatusCancelled.CanTransitionTo(StatusCancelled))
}

func TestCancellableByCustomer(t *testing.T) {
	assert.NoError(t, StatusPending.CancellableByCustomer())
	assert.NoError(t, StatusShipped.CancellableByCustomer())
	assert.NoError(t, StatusOutForDelivery.CancellableByCustomer())

	assert.ErrorIs(t, StatusDelivered.CancellableByCustomer(), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, StatusCancelled.CancellableByCustomer(), apperr.ErrInvalidTransition)
}
