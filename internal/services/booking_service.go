// internal/services/booking_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/outbox"
	"github.com/artime/artime-backend/internal/utils"
)

type BookingService struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *logrus.Logger
}

type CreateBookingRequest struct {
	ArtistID    uuid.UUID  `json:"artist_id" validate:"required"`
	VenueID     *uuid.UUID `json:"venue_id,omitempty"`
	PromoterID  *uuid.UUID `json:"promoter_id,omitempty"`
	EventID     *uuid.UUID `json:"event_id,omitempty"`
	Currency    string     `json:"currency" validate:"required,currency"`
	TotalAmount float64    `json:"total_amount" validate:"required,gt=0"`
	StartDate   time.Time  `json:"start_date" validate:"required,future_date"`
	Message     string     `json:"message" validate:"required,max=2000"`
	Draft       bool       `json:"draft,omitempty"`
}

type BookingFilter struct {
	Status models.BookingStatus
}

func NewBookingService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *BookingService {
	return &BookingService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBooking opens a booking request from the venue side toward an artist.
// The opening message carries the initial fee proposal; unless Draft is set
// the booking goes straight to PENDING.
func (s *BookingService) CreateBooking(actor Actor, req *CreateBookingRequest) (*models.Booking, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !actor.Role.IsVenueSide() {
		return nil, ErrForbiddenRole
	}
	if (req.VenueID == nil) == (req.PromoterID == nil) {
		return nil, ErrCounterpartyMissing
	}
	switch actor.Role {
	case models.RoleVenue:
		if req.VenueID == nil || *req.VenueID != actor.UserID {
			return nil, ErrForbiddenRole
		}
	case models.RolePromoter:
		if req.PromoterID == nil || *req.PromoterID != actor.UserID {
			return nil, ErrForbiddenRole
		}
	}

	var artist models.User
	if err := s.db.First(&artist, "id = ? AND user_type = ?", req.ArtistID, models.UserTypeArtist).Error; err != nil {
		return nil, &NotFoundError{Resource: "artist"}
	}

	status := models.BookingStatusPending
	if req.Draft {
		status = models.BookingStatusDraft
	}

	booking := &models.Booking{
		ArtistID:    req.ArtistID,
		VenueID:     req.VenueID,
		PromoterID:  req.PromoterID,
		EventID:     req.EventID,
		Status:      status,
		Currency:    req.Currency,
		TotalAmount: req.TotalAmount,
		StartDate:   req.StartDate,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		fee := req.TotalAmount
		msg := &models.NegotiationMessage{
			BookingID:    booking.ID,
			SenderRole:   actor.Role,
			SenderUserID: actor.UserID,
			Message:      req.Message,
			ProposedFee:  &fee,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create opening message: %w", err)
		}

		if status == models.BookingStatusPending {
			return notifyCounterpart(tx, s.logger, booking, actor, events.TypeBookingCreated, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"artist_id":  booking.ArtistID,
		"status":     booking.Status,
	}).Info("Booking created")

	return booking, nil
}

// PublishBooking moves a draft to PENDING and notifies the artist side.
func (s *BookingService) PublishBooking(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		booking, err = loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if err := checkParticipant(booking, actor); err != nil {
			return err
		}
		if !actor.Role.IsVenueSide() {
			return ErrForbiddenRole
		}

		prev := booking.Version
		if err := booking.TransitionTo(models.BookingStatusPending); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeBookingCreated, nil)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) GetBooking(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.Preload("Artist").Preload("Venue").Preload("Promoter").Preload("Manager").
		First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "booking"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		if err := checkStanding(s.db, &booking, actor); err != nil {
			return nil, err
		}
	}
	return &booking, nil
}

func (s *BookingService) ListBookings(actor Actor, filter *BookingFilter, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Booking{})

	switch actor.Role {
	case models.RoleAdmin:
		// admins see everything
	case models.RoleArtist:
		query = query.Where("artist_id = ?", actor.UserID)
	case models.RoleManager:
		query = query.Where("manager_id = ? OR artist_id IN (?)", actor.UserID,
			s.db.Model(&models.ArtistManagerRepresentation{}).
				Select("artist_id").
				Where("manager_id = ? AND is_active = ?", actor.UserID, true))
	case models.RoleVenue:
		query = query.Where("venue_id = ?", actor.UserID)
	case models.RolePromoter:
		query = query.Where("promoter_id = ?", actor.UserID)
	default:
		return nil, ErrForbiddenRole
	}

	if filter != nil && filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}

	var bookings []models.Booking
	query = utils.ApplySort(query, params, []string{"created_at", "start_date", "total_amount", "status"})
	if err := utils.ApplyPagination(query, params).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	result := utils.CreatePaginationResult(bookings, total, params)
	return &result, nil
}

func (s *BookingService) GetMessages(actor Actor, bookingID uuid.UUID) ([]models.NegotiationMessage, error) {
	booking, err := loadBooking(s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if err := checkStanding(s.db, booking, actor); err != nil {
			return nil, err
		}
	}

	var messages []models.NegotiationMessage
	if err := s.db.Where("booking_id = ?", bookingID).
		Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return messages, nil
}

// CompleteBooking closes out a fully paid booking after the performance.
func (s *BookingService) CompleteBooking(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		booking, err = loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			if err := checkStanding(tx, booking, actor); err != nil {
				return err
			}
		}
		// The performance has to have happened before anyone closes it out.
		if time.Now().Before(booking.StartDate) {
			return ErrNotCompletable
		}

		prev := booking.Version
		if err := booking.TransitionTo(models.BookingStatusCompleted); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeBookingCompleted, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", booking.ID).Info("Booking completed")
	return booking, nil
}

// notifyCounterpart enqueues a notification to whoever sits on the other
// side of the booking, inside the caller's transaction.
func notifyCounterpart(tx *gorm.DB, logger *logrus.Logger, booking *models.Booking, actor Actor, eventType string, caseID *uuid.UUID) error {
	recipient := counterpartUserID(booking, actor)
	if recipient == uuid.Nil {
		return nil
	}
	return outbox.PublishInTx(tx, logger, outbox.TopicNotifications, events.CounterpartNotified{
		BookingID:       booking.ID,
		RecipientUserID: recipient,
		ActorRole:       string(actor.Role),
		Type:            eventType,
		CaseID:          caseID,
		OccurredAt:      time.Now(),
	})
}

// counterpartUserID resolves who on the other side should hear about an
// action. Artist-side actors notify the venue or promoter; venue-side actors
// notify the current handler, falling back to the artist.
func counterpartUserID(booking *models.Booking, actor Actor) uuid.UUID {
	if actor.Role.IsArtistSide() {
		if booking.PromoterID != nil {
			return *booking.PromoterID
		}
		if booking.VenueID != nil {
			return *booking.VenueID
		}
		return uuid.Nil
	}
	if booking.HandlerUserID != nil {
		return *booking.HandlerUserID
	}
	return booking.ArtistID
}

func loadBooking(tx *gorm.DB, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "booking"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &booking, nil
}

// updateBookingLocked persists the booking's mutable fields guarded by the
// version the caller read. A lost race leaves zero rows updated and surfaces
// as ErrConcurrentUpdate; the client retries against fresh state.
func updateBookingLocked(tx *gorm.DB, b *models.Booking, prevVersion int) error {
	res := tx.Model(&models.Booking{}).
		Where("id = ? AND version = ?", b.ID, prevVersion).
		Updates(map[string]interface{}{
			"status":              b.Status,
			"total_amount":        b.TotalAmount,
			"manager_id":          b.ManagerID,
			"handler_role":        b.HandlerRole,
			"handler_user_id":     b.HandlerUserID,
			"handler_assigned_at": b.HandlerAssignedAt,
			"version":             prevVersion + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = prevVersion + 1
	return nil
}
