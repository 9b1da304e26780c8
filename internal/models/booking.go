// internal/models/booking.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	BaseModel
	ArtistID    uuid.UUID     `json:"artist_id" gorm:"type:uuid;not null;index"`
	VenueID     *uuid.UUID    `json:"venue_id" gorm:"type:uuid;index"`
	PromoterID  *uuid.UUID    `json:"promoter_id" gorm:"type:uuid;index"`
	ManagerID   *uuid.UUID    `json:"manager_id" gorm:"type:uuid;index"`
	EventID     *uuid.UUID    `json:"event_id" gorm:"type:uuid;index"`
	Status      BookingStatus `json:"status" gorm:"type:varchar(30);default:'PENDING';index"`
	Currency    string        `json:"currency" gorm:"size:3;not null"`
	TotalAmount float64       `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	StartDate   time.Time     `json:"start_date" gorm:"not null;index"`

	// Exclusive artist-side case owner; nil until the first artist-side action.
	HandlerRole       *Role      `json:"handler_role" gorm:"type:varchar(20)"`
	HandlerUserID     *uuid.UUID `json:"handler_user_id" gorm:"type:uuid"`
	HandlerAssignedAt *time.Time `json:"handler_assigned_at"`

	// Optimistic concurrency token; bumped on every state-changing update.
	Version int `json:"-" gorm:"not null;default:0"`

	// Relationships
	Artist     User                 `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
	Venue      *User                `json:"venue,omitempty" gorm:"foreignKey:VenueID"`
	Promoter   *User                `json:"promoter,omitempty" gorm:"foreignKey:PromoterID"`
	Manager    *User                `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Event      *Event               `json:"event,omitempty" gorm:"foreignKey:EventID"`
	Messages   []NegotiationMessage `json:"messages,omitempty" gorm:"foreignKey:BookingID"`
	Milestones []PaymentMilestone   `json:"milestones,omitempty" gorm:"foreignKey:BookingID"`
}

// TransitionTo applies a status transition after validating it against the
// transition table. It never clamps an invalid target.
func (b *Booking) TransitionTo(next BookingStatus) error {
	if err := ValidateTransition(b.Status, next); err != nil {
		return err
	}
	b.Status = next
	return nil
}

// CounterpartyRole returns the venue-side role that owns this booking.
// Exactly one of VenueID/PromoterID is set by construction.
func (b *Booking) CounterpartyRole() Role {
	if b.PromoterID != nil {
		return RolePromoter
	}
	return RoleVenue
}

// IsParty reports whether the user participates in the booking in any role.
func (b *Booking) IsParty(userID uuid.UUID) bool {
	if b.ArtistID == userID {
		return true
	}
	for _, id := range []*uuid.UUID{b.VenueID, b.PromoterID, b.ManagerID} {
		if id != nil && *id == userID {
			return true
		}
	}
	return false
}

// NegotiationMessage is an append-only negotiation log entry. Ordering by
// CreatedAt defines the turns. At most one message per booking carries
// IsFinalOffer (enforced by a partial unique index).
type NegotiationMessage struct {
	BaseModel
	BookingID    uuid.UUID `json:"booking_id" gorm:"type:uuid;not null;index"`
	SenderRole   Role      `json:"sender_role" gorm:"type:varchar(20);not null"`
	SenderUserID uuid.UUID `json:"sender_user_id" gorm:"type:uuid;not null"`
	Message      string    `json:"message,omitempty" gorm:"type:text"`
	ProposedFee  *float64  `json:"proposed_fee" gorm:"type:decimal(10,2)"`
	IsFinalOffer bool      `json:"is_final_offer" gorm:"not null;default:false"`

	Booking *Booking `json:"-" gorm:"foreignKey:BookingID"`
	Sender  User     `json:"sender,omitempty" gorm:"foreignKey:SenderUserID"`
}

type Event struct {
	BaseModel
	Title     string    `json:"title" gorm:"size:255;not null"`
	VenueName string    `json:"venue_name" gorm:"size:255"`
	City      string    `json:"city" gorm:"size:100;index"`
	Country   string    `json:"country" gorm:"size:2"`
	Date      time.Time `json:"date" gorm:"index"`
	CreatedBy uuid.UUID `json:"created_by" gorm:"type:uuid;not null"`

	Bookings []Booking `json:"bookings,omitempty" gorm:"foreignKey:EventID"`
}
