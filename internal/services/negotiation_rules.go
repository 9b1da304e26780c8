// internal/services/negotiation_rules.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/models"
)

// Actor is the authenticated user performing a booking action, in the role
// their account type maps to.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

// checkTurn enforces side alternation over the ordered message history: a new
// non-final message from the same side as the last message is rejected. Final
// offers bypass the alternation check (state gating still applies).
func checkTurn(last *models.NegotiationMessage, sender models.Role, finalOffer bool) error {
	if finalOffer || last == nil {
		return nil
	}
	if models.SameSide(last.SenderRole, sender) {
		return ErrNotYourTurn
	}
	return nil
}

// claimHandler locks the artist side of a booking to the first artist-side
// user who acts. A later action by a different user on the same side fails,
// even though both legitimately represent the artist. The venue side carries
// no equivalent lock: venue and promoter are mutually exclusive per booking.
func claimHandler(b *models.Booking, actor Actor, now time.Time) error {
	if !actor.Role.IsArtistSide() {
		return nil
	}
	if b.HandlerUserID == nil {
		role := actor.Role
		userID := actor.UserID
		assignedAt := now
		b.HandlerRole = &role
		b.HandlerUserID = &userID
		b.HandlerAssignedAt = &assignedAt
		if actor.Role == models.RoleManager && b.ManagerID == nil {
			b.ManagerID = &userID
		}
		return nil
	}
	if *b.HandlerUserID != actor.UserID {
		return ErrHandledByOtherParty
	}
	return nil
}

// checkParticipant verifies the actor's standing on the booking for their
// claimed role. Managers are verified against the representation table
// separately (ensureManagerRepresents).
func checkParticipant(b *models.Booking, actor Actor) error {
	switch actor.Role {
	case models.RoleArtist:
		if b.ArtistID != actor.UserID {
			return ErrNotParticipant
		}
	case models.RoleManager:
		// Standing comes from the active representation, not a booking column.
	case models.RoleVenue:
		if b.VenueID == nil || *b.VenueID != actor.UserID {
			return ErrNotParticipant
		}
	case models.RolePromoter:
		if b.PromoterID == nil || *b.PromoterID != actor.UserID {
			return ErrNotParticipant
		}
	default:
		return ErrForbiddenRole
	}
	return nil
}

// checkStanding gates endpoints outside the negotiation turn flow. Unlike
// checkParticipant it also pins managers down: a manager has standing only
// when already attached to the booking or actively representing its artist.
func checkStanding(tx *gorm.DB, b *models.Booking, actor Actor) error {
	if err := checkParticipant(b, actor); err != nil {
		return err
	}
	if actor.Role == models.RoleManager && !b.IsParty(actor.UserID) {
		return ensureManagerRepresents(tx, b.ArtistID, actor.UserID)
	}
	return nil
}

// ensureManagerRepresents fails with ErrManagerNotRepresenting unless an
// active artist-manager representation exists for the booking's artist.
func ensureManagerRepresents(tx *gorm.DB, artistID, managerID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.ArtistManagerRepresentation{}).
		Where("artist_id = ? AND manager_id = ? AND is_active = ?", artistID, managerID, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check representation: %w", err)
	}
	if count == 0 {
		return ErrManagerNotRepresenting
	}
	return nil
}

// authorizeActor runs the standing, representation and handler checks common
// to every negotiation action. It mutates the booking's handler fields on a
// successful first artist-side claim.
func authorizeActor(tx *gorm.DB, b *models.Booking, actor Actor, now time.Time) error {
	if err := checkParticipant(b, actor); err != nil {
		return err
	}
	if actor.Role == models.RoleManager {
		if err := ensureManagerRepresents(tx, b.ArtistID, actor.UserID); err != nil {
			return err
		}
	}
	return claimHandler(b, actor, now)
}

// lastMessage returns the newest negotiation message for a booking, or nil.
func lastMessage(tx *gorm.DB, bookingID uuid.UUID) (*models.NegotiationMessage, error) {
	var msg models.NegotiationMessage
	err := tx.Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last message: %w", err)
	}
	return &msg, nil
}

// findFinalOffer returns the booking's final-offer message, or nil.
func findFinalOffer(tx *gorm.DB, bookingID uuid.UUID) (*models.NegotiationMessage, error) {
	var msg models.NegotiationMessage
	err := tx.Where("booking_id = ? AND is_final_offer = ?", bookingID, true).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load final offer: %w", err)
	}
	return &msg, nil
}

// latestProposedFee returns the newest message carrying a proposed fee, or nil.
func latestProposedFee(tx *gorm.DB, bookingID uuid.UUID) (*models.NegotiationMessage, error) {
	var msg models.NegotiationMessage
	err := tx.Where("booking_id = ? AND proposed_fee IS NOT NULL", bookingID).
		Order("created_at DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load proposed fees: %w", err)
	}
	return &msg, nil
}
