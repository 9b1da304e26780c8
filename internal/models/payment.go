// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMilestone is a payable slice of a booking's total amount. The deposit
// milestone carries the principal payment the cancellation workflow refunds
// against.
type PaymentMilestone struct {
	BaseModel
	BookingID        uuid.UUID       `json:"booking_id" gorm:"type:uuid;not null;index"`
	Kind             MilestoneKind   `json:"kind" gorm:"type:varchar(20);not null"`
	Amount           float64         `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency         string          `json:"currency" gorm:"size:3;not null"`
	Status           MilestoneStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	PaymentReference string          `json:"payment_reference" gorm:"size:255"`
	PaidAt           *time.Time      `json:"paid_at"`

	Booking *Booking `json:"-" gorm:"foreignKey:BookingID"`
}

// SplitSummary is the frozen fee breakdown for a booking, computed once after
// acceptance and never recalculated. Payouts and refunds read these numbers.
type SplitSummary struct {
	BaseModel
	BookingID         uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex"`
	ArtistFee         float64   `json:"artist_fee" gorm:"type:decimal(10,2);not null"`
	ArtimeCommission  float64   `json:"artime_commission" gorm:"type:decimal(10,2);not null"`
	ManagerInvolved   bool      `json:"manager_involved" gorm:"not null"`
	ManagerCommission float64   `json:"manager_commission" gorm:"type:decimal(10,2);not null"`
	PaymentCosts      float64   `json:"payment_costs" gorm:"type:decimal(10,2);not null"`
	ArtistNetAmount   float64   `json:"artist_net_amount" gorm:"type:decimal(10,2);not null"`
	TotalPayable      float64   `json:"total_payable" gorm:"type:decimal(10,2);not null"`
	Currency          string    `json:"currency" gorm:"size:3;not null"`
	FrozenAt          time.Time `json:"frozen_at" gorm:"not null"`
}

// ContractDocument references the generated contract for an accepted booking.
type ContractDocument struct {
	BaseModel
	BookingID   uuid.UUID  `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex"`
	StorageKey  string     `json:"storage_key" gorm:"size:512;not null"`
	URL         string     `json:"url" gorm:"size:1024"`
	GeneratedAt time.Time  `json:"generated_at" gorm:"not null"`
	SignedAt    *time.Time `json:"signed_at"`
}
