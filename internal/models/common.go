// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeArtist   UserType = "artist"
	UserTypeManager  UserType = "manager"
	UserTypeVenue    UserType = "venue"
	UserTypePromoter UserType = "promoter"
	UserTypeAdmin    UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// Role identifies the capacity a user acts in on a booking.
type Role string

const (
	RoleArtist   Role = "ARTIST"
	RoleManager  Role = "MANAGER"
	RoleVenue    Role = "VENUE"
	RolePromoter Role = "PROMOTER"
	RoleAdmin    Role = "ADMIN"
)

// IsArtistSide reports whether the role negotiates on behalf of the artist.
func (r Role) IsArtistSide() bool {
	return r == RoleArtist || r == RoleManager
}

// IsVenueSide reports whether the role negotiates on behalf of the venue or promoter.
func (r Role) IsVenueSide() bool {
	return r == RoleVenue || r == RolePromoter
}

// SameSide reports whether two roles belong to the same negotiating side.
func SameSide(a, b Role) bool {
	return (a.IsArtistSide() && b.IsArtistSide()) || (a.IsVenueSide() && b.IsVenueSide())
}

// RoleForUserType maps an account type to the role it acts as in negotiations.
func RoleForUserType(t UserType) (Role, bool) {
	switch t {
	case UserTypeArtist:
		return RoleArtist, true
	case UserTypeManager:
		return RoleManager, true
	case UserTypeVenue:
		return RoleVenue, true
	case UserTypePromoter:
		return RolePromoter, true
	case UserTypeAdmin:
		return RoleAdmin, true
	}
	return "", false
}

type BookingStatus string

const (
	BookingStatusDraft                  BookingStatus = "DRAFT"
	BookingStatusPending                BookingStatus = "PENDING"
	BookingStatusNegotiating            BookingStatus = "NEGOTIATING"
	BookingStatusFinalOfferSent         BookingStatus = "FINAL_OFFER_SENT"
	BookingStatusAccepted               BookingStatus = "ACCEPTED"
	BookingStatusContractSigned         BookingStatus = "CONTRACT_SIGNED"
	BookingStatusPaidPartial            BookingStatus = "PAID_PARTIAL"
	BookingStatusPaidFull               BookingStatus = "PAID_FULL"
	BookingStatusCompleted              BookingStatus = "COMPLETED"
	BookingStatusRejected               BookingStatus = "REJECTED"
	BookingStatusCancelled              BookingStatus = "CANCELLED"
	BookingStatusCancelledPendingReview BookingStatus = "CANCELLED_PENDING_REVIEW"
)

// PaymentSnapshotStatus records how much of a booking had been paid at the
// moment a cancellation case was opened.
type PaymentSnapshotStatus string

const (
	PaymentSnapshotNone    PaymentSnapshotStatus = "NONE"
	PaymentSnapshotPartial PaymentSnapshotStatus = "PAID_PARTIAL"
	PaymentSnapshotFull    PaymentSnapshotStatus = "PAID_FULL"
)

type CancellationCaseStatus string

const (
	CancellationCaseOpen     CancellationCaseStatus = "OPEN"
	CancellationCaseResolved CancellationCaseStatus = "RESOLVED"
)

type ResolutionType string

const (
	ResolutionNoRefund      ResolutionType = "NO_REFUND"
	ResolutionFullRefund    ResolutionType = "FULL_REFUND"
	ResolutionPartialRefund ResolutionType = "PARTIAL_REFUND"
)

type MilestoneKind string

const (
	MilestoneKindDeposit MilestoneKind = "deposit"
	MilestoneKindBalance MilestoneKind = "balance"
)

type MilestoneStatus string

const (
	MilestoneStatusPending  MilestoneStatus = "pending"
	MilestoneStatusPaid     MilestoneStatus = "paid"
	MilestoneStatusRefunded MilestoneStatus = "refunded"
)
