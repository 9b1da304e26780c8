// internal/services/negotiation_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/outbox"
	"github.com/artime/artime-backend/internal/utils"
)

type NegotiationService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

type SendMessageRequest struct {
	Message     string   `json:"message" validate:"required,max=2000"`
	ProposedFee *float64 `json:"proposed_fee,omitempty" validate:"omitempty,gt=0"`
}

type FinalOfferRequest struct {
	Message     string  `json:"message" validate:"required,max=2000"`
	ProposedFee float64 `json:"proposed_fee" validate:"required,gt=0"`
}

func NewNegotiationService(db *gorm.DB, logger *logrus.Logger) *NegotiationService {
	return &NegotiationService{
		db:     db,
		logger: logger,
	}
}

// SendMessage appends a regular negotiation message. The first artist-side
// reply to a pending booking moves it into NEGOTIATING.
func (s *NegotiationService) SendMessage(actor Actor, bookingID uuid.UUID, req *SendMessageRequest) (*models.NegotiationMessage, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var msg *models.NegotiationMessage
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		booking, err := loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := authorizeActor(tx, booking, actor, now); err != nil {
			return err
		}

		switch booking.Status {
		case models.BookingStatusPending, models.BookingStatusNegotiating:
		default:
			return &models.InvalidTransitionError{From: booking.Status, To: models.BookingStatusNegotiating}
		}

		last, err := lastMessage(tx, bookingID)
		if err != nil {
			return err
		}
		if err := checkTurn(last, actor.Role, false); err != nil {
			return err
		}

		prev := booking.Version
		if booking.Status == models.BookingStatusPending {
			if err := booking.TransitionTo(models.BookingStatusNegotiating); err != nil {
				return err
			}
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}

		msg = &models.NegotiationMessage{
			BookingID:    bookingID,
			SenderRole:   actor.Role,
			SenderUserID: actor.UserID,
			Message:      req.Message,
			ProposedFee:  req.ProposedFee,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeMessageReceived, nil)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// SendFinalOffer posts the single take-it-or-leave-it offer for a booking.
// Only one final offer may ever exist; the booking moves to FINAL_OFFER_SENT
// and free-form negotiation ends.
func (s *NegotiationService) SendFinalOffer(actor Actor, bookingID uuid.UUID, req *FinalOfferRequest) (*models.NegotiationMessage, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var msg *models.NegotiationMessage
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		booking, err := loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := authorizeActor(tx, booking, actor, now); err != nil {
			return err
		}

		existing, err := findFinalOffer(tx, bookingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrFinalOfferAlreadyExists
		}

		prev := booking.Version
		// A final offer straight off a pending request first enters
		// negotiation, then locks it. That shortcut belongs to the artist side
		// alone: the venue side created the request and must wait for a
		// response before it may lock the terms.
		if booking.Status == models.BookingStatusPending {
			if !actor.Role.IsArtistSide() {
				return ErrNotYourTurn
			}
			if err := booking.TransitionTo(models.BookingStatusNegotiating); err != nil {
				return err
			}
		}
		if err := booking.TransitionTo(models.BookingStatusFinalOfferSent); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}

		fee := req.ProposedFee
		msg = &models.NegotiationMessage{
			BookingID:    bookingID,
			SenderRole:   actor.Role,
			SenderUserID: actor.UserID,
			Message:      req.Message,
			ProposedFee:  &fee,
			IsFinalOffer: true,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create final offer: %w", err)
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeFinalOfferSent, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"fee":        req.ProposedFee,
	}).Info("Final offer sent")
	return msg, nil
}

// AcceptBooking closes the negotiation in the counterpart's favor. With a
// final offer on the table the actor accepts it as-is. A direct accept from
// PENDING or NEGOTIATING implicitly treats the other side's latest fee
// proposal as a final offer and accepts that, so the accepted amount is
// always anchored to a recorded offer.
func (s *NegotiationService) AcceptBooking(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		booking, err = loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := authorizeActor(tx, booking, actor, now); err != nil {
			return err
		}

		offer, err := findFinalOffer(tx, bookingID)
		if err != nil {
			return err
		}

		prev := booking.Version
		switch booking.Status {
		case models.BookingStatusFinalOfferSent:
			if offer == nil {
				return ErrNoAmountToClose
			}
		case models.BookingStatusPending, models.BookingStatusNegotiating:
			if offer != nil {
				return ErrFinalOfferAlreadyExists
			}
			offer, err = s.synthesizeFinalOffer(tx, booking, actor)
			if err != nil {
				return err
			}
		default:
			return &models.InvalidTransitionError{From: booking.Status, To: models.BookingStatusAccepted}
		}

		// Accepting your own side's offer is meaningless; the decision
		// belongs to the other side.
		if models.SameSide(offer.SenderRole, actor.Role) {
			return ErrNotYourTurn
		}

		booking.TotalAmount = *offer.ProposedFee
		if err := booking.TransitionTo(models.BookingStatusAccepted); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}

		if err := outbox.PublishInTx(tx, s.logger, outbox.TopicContractGenerate, events.ContractRequested{
			BookingID:  booking.ID,
			OccurredAt: now,
		}); err != nil {
			return err
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeBookingAccepted, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"amount":     booking.TotalAmount,
	}).Info("Booking accepted")
	return booking, nil
}

// RejectBooking declines the booking. With a final offer pending, only the
// receiving side may reject it. During open negotiation a side cannot reject
// while its own proposal is the latest word.
func (s *NegotiationService) RejectBooking(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		booking, err = loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := authorizeActor(tx, booking, actor, now); err != nil {
			return err
		}

		switch booking.Status {
		case models.BookingStatusFinalOfferSent:
			offer, err := findFinalOffer(tx, bookingID)
			if err != nil {
				return err
			}
			if offer != nil && models.SameSide(offer.SenderRole, actor.Role) {
				return ErrCannotRejectOwnOffer
			}
		case models.BookingStatusPending:
			if !actor.Role.IsArtistSide() {
				return ErrForbiddenRole
			}
		case models.BookingStatusNegotiating:
			last, err := lastMessage(tx, bookingID)
			if err != nil {
				return err
			}
			if last != nil && models.SameSide(last.SenderRole, actor.Role) {
				return ErrCannotRejectOwnOffer
			}
		default:
			return &models.InvalidTransitionError{From: booking.Status, To: models.BookingStatusRejected}
		}

		prev := booking.Version
		if err := booking.TransitionTo(models.BookingStatusRejected); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeBookingRejected, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", booking.ID).Info("Booking rejected")
	return booking, nil
}

// synthesizeFinalOffer records an implicit final offer on behalf of the
// other side's latest fee proposal, so a direct accept leaves the same audit
// trail as the explicit path. Falls back to the booking's requested amount
// when no counter was ever proposed.
func (s *NegotiationService) synthesizeFinalOffer(tx *gorm.DB, booking *models.Booking, actor Actor) (*models.NegotiationMessage, error) {
	proposal, err := latestProposedFee(tx, booking.ID)
	if err != nil {
		return nil, err
	}
	if proposal == nil {
		if booking.TotalAmount <= 0 {
			return nil, ErrNoAmountToClose
		}
		role := booking.CounterpartyRole()
		if actor.Role.IsVenueSide() {
			role = models.RoleArtist
		}
		proposal = &models.NegotiationMessage{
			BookingID:    booking.ID,
			SenderRole:   role,
			SenderUserID: counterpartUserID(booking, actor),
			ProposedFee:  &booking.TotalAmount,
		}
	}

	fee := *proposal.ProposedFee
	offer := &models.NegotiationMessage{
		BookingID:    booking.ID,
		SenderRole:   proposal.SenderRole,
		SenderUserID: proposal.SenderUserID,
		Message:      "Offer accepted at the proposed fee",
		ProposedFee:  &fee,
		IsFinalOffer: true,
	}
	if err := tx.Create(offer).Error; err != nil {
		return nil, fmt.Errorf("failed to record implicit final offer: %w", err)
	}
	return offer, nil
}
