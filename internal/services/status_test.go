package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{name: "received to in_review", from: StatusReceived, to: StatusInReview, wantErr: false},
		{name: "in_review back to received", from: StatusInReview, to: StatusReceived, wantErr: false},
		{name: "skip straight to ready_for_pickup", from: StatusReceived, to: StatusReadyForPickup, wantErr: false},
		{name: "give up from awaiting_part", from: StatusAwaitingPart, to: StatusNotRepairable, wantErr: false},
		{name: "ready_for_pickup to delivered", from: StatusReadyForPickup, to: StatusDelivered, wantErr: false},
		{name: "same status rejected", from: StatusInRepair, to: StatusInRepair, wantErr: true},
		{name: "delivered is terminal", from: StatusDelivered, to: StatusReceived, wantErr: true},
		{name: "delivered cannot be reopened to in_repair", from: StatusDelivered, to: StatusInRepair, wantErr: true},
		{name: "not_repairable is terminal", from: StatusNotRepairable, to: StatusInReview, wantErr: true},
		{name: "unknown target status", from: StatusReceived, to: "exploded", wantErr: true},
		{name: "empty target status", from: StatusReceived, to: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusDelivered))
	assert.True(t, IsTerminalStatus(StatusNotRepairable))
	assert.False(t, IsTerminalStatus(StatusReceived))
	assert.False(t, IsTerminalStatus(StatusReadyForPickup))
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, s := range orderStatuses {
		assert.True(t, IsValidOrderStatus(s), s)
	}
	assert.False(t, IsValidOrderStatus("archived"))
	assert.False(t, IsValidOrderStatus(""))
}
