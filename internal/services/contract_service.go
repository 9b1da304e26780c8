// internal/services/contract_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/models"
)

type ContractService struct {
	db         *gorm.DB
	cfg        *config.Config
	storage    *StorageService
	settlement *SettlementService
	logger     *logrus.Logger
}

func NewContractService(db *gorm.DB, cfg *config.Config, storage *StorageService, settlement *SettlementService, logger *logrus.Logger) *ContractService {
	return &ContractService{
		db:         db,
		cfg:        cfg,
		storage:    storage,
		settlement: settlement,
		logger:     logger,
	}
}

// Generate renders and stores the contract document for an accepted booking.
// Invoked by the worker consuming contract requests; safe to retry, the
// existing document wins.
func (s *ContractService) Generate(bookingID uuid.UUID) (*models.ContractDocument, error) {
	var existing models.ContractDocument
	if err := s.db.Where("booking_id = ?", bookingID).First(&existing).Error; err == nil {
		return &existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check contract document: %w", err)
	}

	var booking models.Booking
	if err := s.db.Preload("Artist").Preload("Venue").Preload("Promoter").
		First(&booking, "id = ?", bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "booking"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if booking.Status != models.BookingStatusAccepted {
		return nil, &models.InvalidTransitionError{From: booking.Status, To: models.BookingStatusContractSigned}
	}

	content := renderContract(&booking)
	upload, err := s.storage.UploadContract(bookingID, content, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	doc := &models.ContractDocument{
		BookingID:   bookingID,
		StorageKey:  upload.Key,
		URL:         upload.URL,
		GeneratedAt: time.Now(),
	}
	if err := s.db.Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to record contract document: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"key":        doc.StorageKey,
	}).Info("Contract generated")
	return doc, nil
}

// MarkSigned records both parties' signature on the contract. The booking
// moves to CONTRACT_SIGNED, the payment milestones are laid out from the
// configured deposit share, and the fee split freezes at the accepted amount.
func (s *ContractService) MarkSigned(actor Actor, bookingID uuid.UUID) (*models.Booking, error) {
	var booking *models.Booking
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		booking, err = loadBooking(tx, bookingID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			if err := checkParticipant(booking, actor); err != nil {
				return err
			}
			if actor.Role == models.RoleManager {
				if err := ensureManagerRepresents(tx, booking.ArtistID, actor.UserID); err != nil {
					return err
				}
			}
		}

		var doc models.ContractDocument
		if err := tx.Where("booking_id = ?", bookingID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "contract document"}
			}
			return fmt.Errorf("failed to load contract document: %w", err)
		}

		prev := booking.Version
		if err := booking.TransitionTo(models.BookingStatusContractSigned); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.ContractDocument{}).
			Where("id = ?", doc.ID).
			Update("signed_at", now).Error; err != nil {
			return fmt.Errorf("failed to mark contract signed: %w", err)
		}

		if err := s.createMilestones(tx, booking); err != nil {
			return err
		}
		if _, err := s.settlement.FreezeSplit(tx, booking); err != nil {
			return err
		}

		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeContractSigned, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("booking_id", booking.ID).Info("Contract signed")
	return booking, nil
}

// GetContract returns the booking's contract document with a fresh download
// link when storage supports it.
func (s *ContractService) GetContract(actor Actor, bookingID uuid.UUID) (*models.ContractDocument, error) {
	booking, err := loadBooking(s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if err := checkStanding(s.db, booking, actor); err != nil {
			return nil, err
		}
	}

	var doc models.ContractDocument
	if err := s.db.Where("booking_id = ?", bookingID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "contract document"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if url, err := s.storage.GeneratePresignedURL(doc.StorageKey, 15*time.Minute); err == nil {
		doc.URL = url
	}
	return &doc, nil
}

// createMilestones lays out deposit and balance from the configured deposit
// share. A deposit share of 1 collapses everything into a single milestone.
func (s *ContractService) createMilestones(tx *gorm.DB, booking *models.Booking) error {
	deposit := math.Round(booking.TotalAmount*s.cfg.Booking.DepositPercent*100) / 100
	balance := booking.TotalAmount - deposit

	milestones := []models.PaymentMilestone{
		{
			BookingID: booking.ID,
			Kind:      models.MilestoneKindDeposit,
			Amount:    deposit,
			Currency:  booking.Currency,
			Status:    models.MilestoneStatusPending,
		},
	}
	if balance > 0 {
		milestones = append(milestones, models.PaymentMilestone{
			BookingID: booking.ID,
			Kind:      models.MilestoneKindBalance,
			Amount:    balance,
			Currency:  booking.Currency,
			Status:    models.MilestoneStatusPending,
		})
	}

	if err := tx.Create(&milestones).Error; err != nil {
		return fmt.Errorf("failed to create payment milestones: %w", err)
	}
	return nil
}

// renderContract produces the contract document body. Plain text standing in
// for a full PDF renderer; the storage and signing flow does not care about
// the format.
func renderContract(booking *models.Booking) []byte {
	counterpart := "venue"
	name := ""
	if booking.Promoter != nil {
		counterpart = "promoter"
		name = booking.Promoter.Username
	} else if booking.Venue != nil {
		name = booking.Venue.Username
	}

	body := fmt.Sprintf(
		"PERFORMANCE AGREEMENT\n\nBooking: %s\nArtist: %s\nEngaged by (%s): %s\nPerformance date: %s\nAgreed fee: %.2f %s\n\nGenerated: %s\n",
		booking.ID,
		booking.Artist.Username,
		counterpart,
		name,
		booking.StartDate.Format("2006-01-02"),
		booking.TotalAmount,
		booking.Currency,
		time.Now().Format(time.RFC3339),
	)
	return []byte(body)
}
