package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateCart, StateConfirmed, true},
		{StateConfirmed, StateInPreparation, true},
		{StateInPreparation, StateReady, true},
		{StateReady, StateOutForDelivery, true},
		{StateReady, StateCompleted, true},
		{StateOutForDelivery, StateDelivered, true},
		{StateDelivered, StateCompleted, true},

		// No skipping ahead or going back.
		{StateCart, StateReady, false},
		{StateConfirmed, StateReady, false},
		{StateReady, StateConfirmed, false},
		{StateDelivered, StateInPreparation, false},

		// Cancellation from every non-terminal state.
		{StateCart, StateCancelled, true},
		{StateConfirmed, StateCancelled, true},
		{StateInPreparation, StateCancelled, true},
		{StateReady, StateCancelled, true},
		{StateOutForDelivery, StateCancelled, true},
		{StateDelivered, StateCancelled, true},

		// Terminal states reject everything.
		{StateCompleted, StateCancelled, false},
		{StateCompleted, StateConfirmed, false},
		{StateCancelled, StateConfirmed, false},
		{StateCancelled, StateCancelled, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.False(t, StateCart.Terminal())
	assert.False(t, StateDelivered.Terminal())
}

func TestValidState(t *testing.T) {
	assert.True(t, ValidState(StateInPreparation))
	assert.False(t, ValidState(State("shipped")))
}
