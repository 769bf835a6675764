package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckoutStateTransitions(t *testing.T) {
	tests := []struct {
		from    CheckoutState
		to      CheckoutState
		allowed bool
	}{
		{StateShipping, StatePayment, true},
		{StateShipping, StateAbandoned, true},
		{StateShipping, StateConfirmed, false},
		{StateShipping, StateShipping, false},

		// payment -> payment is shipping re-entry
		{StatePayment, StatePayment, true},
		{StatePayment, StateConfirmed, true},
		{StatePayment, StateAbandoned, true},
		{StatePayment, StateShipping, false},

		{StateConfirmed, StatePayment, false},
		{StateConfirmed, StateAbandoned, false},
		{StateAbandoned, StatePayment, false},
		{StateAbandoned, StateConfirmed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestCheckoutStateIsTerminal(t *testing.T) {
	assert.False(t, StateShipping.IsTerminal())
	assert.False(t, StatePayment.IsTerminal())
	assert.True(t, StateConfirmed.IsTerminal())
	assert.True(t, StateAbandoned.IsTerminal())
}
