// internal/events/events.go
package events

import (
	"time"

	"github.com/google/uuid"
)

// Events emitted by the booking core after state-changing actions. They are
// written to the transactional outbox and delivered by the worker; the core
// never blocks on delivery.

type ContractRequested struct {
	BookingID  uuid.UUID `json:"booking_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CounterpartNotified struct {
	BookingID       uuid.UUID  `json:"booking_id"`
	RecipientUserID uuid.UUID  `json:"recipient_user_id"`
	ActorRole       string     `json:"actor_role"`
	Type            string     `json:"type"`
	OccurredAt      time.Time  `json:"occurred_at"`
	CaseID          *uuid.UUID `json:"case_id,omitempty"`
}

// Notification types carried by CounterpartNotified.
const (
	TypeBookingCreated    = "booking_created"
	TypeMessageReceived   = "message_received"
	TypeFinalOfferSent    = "final_offer_sent"
	TypeBookingAccepted   = "booking_accepted"
	TypeBookingRejected   = "booking_rejected"
	TypeBookingCancelled  = "booking_cancelled"
	TypeCaseResolved      = "cancellation_resolved"
	TypeRefundExecuted    = "refund_executed"
	TypeContractSigned    = "contract_signed"
	TypeMilestonePaid     = "milestone_paid"
	TypeBookingCompleted  = "booking_completed"
)
