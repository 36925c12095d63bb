package services

import (
	"errors"
	"fmt"
)

// Work order statuses, persisted verbatim. delivered and not_repairable are
// terminal: no transition out of them is permitted.
const (
	StatusReceived       = "received"
	StatusInReview       = "in_review"
	StatusAwaitingPart   = "awaiting_part"
	StatusInRepair       = "in_repair"
	StatusReadyForPickup = "ready_for_pickup"
	StatusDelivered      = "delivered"
	StatusNotRepairable  = "not_repairable"
)

// Warranty states on a work order.
const (
	WarrantyNone   = "none"
	WarrantyActive = "active"
)

var orderStatuses = []string{
	StatusReceived,
	StatusInReview,
	StatusAwaitingPart,
	StatusInRepair,
	StatusReadyForPickup,
	StatusDelivered,
	StatusNotRepairable,
}

// ErrInvalidTransition is returned when a status change is rejected by the
// state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// IsValidOrderStatus reports whether s is one of the seven defined statuses.
func IsValidOrderStatus(s string) bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transition is permitted from s.
func IsTerminalStatus(s string) bool {
	return s == StatusDelivered || s == StatusNotRepairable
}

// ValidateTransition checks whether a work order may move from one status to
// another. Any non-terminal status may move to any other status, including
// not_repairable; transitions out of a terminal status and no-op transitions
// are rejected.
func ValidateTransition(from, to string) error {
	if !IsValidOrderStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if from == to {
		return fmt.Errorf("%w: order is already %s", ErrInvalidTransition, from)
	}
	if IsTerminalStatus(from) {
		return fmt.Errorf("%w: %s is a terminal status", ErrInvalidTransition, from)
	}
	return nil
}

// statusNotificationText is the customer-facing message sent when an order
// changes status.
func statusNotificationText(code, toStatus string) string {
	switch toStatus {
	case StatusInReview:
		return fmt.Sprintf("Your repair %s is being diagnosed.", code)
	case StatusAwaitingPart:
		return fmt.Sprintf("Your repair %s is waiting for a replacement part.", code)
	case StatusInRepair:
		return fmt.Sprintf("Your repair %s is being worked on.", code)
	case StatusReadyForPickup:
		return fmt.Sprintf("Your repair %s is ready for pickup.", code)
	case StatusDelivered:
		return fmt.Sprintf("Your repair %s has been delivered. Thank you!", code)
	case StatusNotRepairable:
		return fmt.Sprintf("Unfortunately your device for order %s could not be repaired. Please contact the store.", code)
	default:
		return fmt.Sprintf("Your repair %s changed status to %s.", code, toStatus)
	}
}
