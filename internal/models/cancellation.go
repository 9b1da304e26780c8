// internal/models/cancellation.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// CancellationCase is the review record opened when a booking with economic
// exposure (signed contract or payments) is cancelled. At most one case ever
// exists per booking; the case stays OPEN until exactly one resolution is
// attached.
type CancellationCase struct {
	BaseModel
	BookingID                   uuid.UUID              `json:"booking_id" gorm:"type:uuid;not null;uniqueIndex"`
	RequestedByRole             Role                   `json:"requested_by_role" gorm:"type:varchar(20);not null"`
	RequestedByUserID           uuid.UUID              `json:"requested_by_user_id" gorm:"type:uuid;not null"`
	Reason                      string                 `json:"reason" gorm:"size:255;not null"`
	Description                 string                 `json:"description,omitempty" gorm:"type:text"`
	BookingStatusAtCancellation BookingStatus          `json:"booking_status_at_cancellation" gorm:"type:varchar(30);not null"`
	PaymentStatusAtCancellation PaymentSnapshotStatus  `json:"payment_status_at_cancellation" gorm:"type:varchar(20);not null"`
	Status                      CancellationCaseStatus `json:"status" gorm:"type:varchar(20);default:'OPEN';index"`
	ResolvedAt                  *time.Time             `json:"resolved_at"`

	// Optimistic concurrency token over resolve/execute.
	Version int `json:"-" gorm:"not null;default:0"`

	Booking    Booking                        `json:"booking,omitempty" gorm:"foreignKey:BookingID"`
	Resolution *CancellationResolution        `json:"resolution,omitempty" gorm:"foreignKey:CancellationCaseID"`
	Execution  *CancellationEconomicExecution `json:"execution,omitempty" gorm:"foreignKey:CancellationCaseID"`
}

// CancellationResolution is the platform operator's refund decision.
// Immutable once saved; exactly one per case.
type CancellationResolution struct {
	BaseModel
	CancellationCaseID uuid.UUID      `json:"cancellation_case_id" gorm:"type:uuid;not null;uniqueIndex"`
	ResolutionType     ResolutionType `json:"resolution_type" gorm:"type:varchar(20);not null"`
	RefundAmount       float64        `json:"refund_amount" gorm:"type:decimal(10,2);not null"`
	ResolvedByUserID   uuid.UUID      `json:"resolved_by_user_id" gorm:"type:uuid;not null"`
	ResolvedByRole     Role           `json:"resolved_by_role" gorm:"type:varchar(20);not null"`
	Notes              string         `json:"notes,omitempty" gorm:"type:text"`
	ResolvedAt         time.Time      `json:"resolved_at" gorm:"not null"`
}

// CancellationEconomicExecution records the one-time refund dispatched to the
// payment provider for a resolved case. A second execution for the same case
// is rejected by the unique index and the service-level guard.
type CancellationEconomicExecution struct {
	BaseModel
	CancellationCaseID uuid.UUID `json:"cancellation_case_id" gorm:"type:uuid;not null;uniqueIndex"`
	ExecutedByUserID   uuid.UUID `json:"executed_by_user_id" gorm:"type:uuid;not null"`
	ExecutedByRole     Role      `json:"executed_by_role" gorm:"type:varchar(20);not null"`
	ProviderRefundID   string    `json:"provider_refund_id" gorm:"size:255;not null"`
	ExecutedAt         time.Time `json:"executed_at" gorm:"not null"`
}
