// internal/models/transitions.go
package models

import "fmt"

// BookingTransitions defines the valid booking status transitions.
// The key is the current status, the value the set of allowed targets.
// The map is never mutated after init and is safe for concurrent reads.
var BookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusDraft: {
		BookingStatusPending,
	},
	BookingStatusPending: {
		BookingStatusNegotiating,
		BookingStatusAccepted,
		BookingStatusRejected,
		BookingStatusCancelled,
	},
	BookingStatusNegotiating: {
		BookingStatusFinalOfferSent,
		BookingStatusAccepted,
		BookingStatusRejected,
		BookingStatusCancelled,
	},
	BookingStatusFinalOfferSent: {
		BookingStatusAccepted,
		BookingStatusRejected,
		BookingStatusCancelled,
	},
	BookingStatusAccepted: {
		BookingStatusContractSigned,
		BookingStatusCancelled,
	},
	BookingStatusContractSigned: {
		BookingStatusPaidPartial,
		BookingStatusCancelled,
	},
	BookingStatusPaidPartial: {
		BookingStatusPaidFull,
		BookingStatusCancelledPendingReview,
	},
	BookingStatusPaidFull: {
		BookingStatusCompleted,
		BookingStatusCancelledPendingReview,
	},
	BookingStatusCompleted:              {}, // Terminal
	BookingStatusRejected:               {}, // Terminal
	BookingStatusCancelled:              {}, // Terminal
	BookingStatusCancelledPendingReview: {}, // Terminal
}

type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %s to %s", e.From, e.To)
}

// CanTransition checks if a transition between two booking statuses is allowed.
func CanTransition(from, to BookingStatus) bool {
	allowed, exists := BookingTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransitionError if the transition is not allowed.
func ValidateTransition(from, to BookingStatus) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether a booking status has no outgoing transitions.
func IsTerminal(s BookingStatus) bool {
	return len(BookingTransitions[s]) == 0
}
