// internal/services/settlement_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/models"
)

// SplitInput are the parameters of a fee split. ArtistFee is the accepted
// booking amount; the percentages are fractions of 1.
type SplitInput struct {
	ArtistFee            float64
	ArtimeCommissionPct  float64
	ManagerInvolved      bool
	ManagerCommissionPct float64
	PaymentCosts         float64
}

// SplitResult is the computed breakdown. The platform commission and payment
// costs are charged on top of the fee; the manager commission comes out of
// the artist's share.
type SplitResult struct {
	ArtistFee         float64
	ArtimeCommission  float64
	ManagerCommission float64
	ArtistNetAmount   float64
	TotalPayable      float64
}

// CalculateSplit computes the fee breakdown for a booking. Pure arithmetic,
// no rounding; persistence rounds at the column.
func CalculateSplit(in SplitInput) SplitResult {
	artimeCommission := in.ArtistFee * in.ArtimeCommissionPct

	var managerCommission float64
	if in.ManagerInvolved {
		managerCommission = in.ArtistFee * in.ManagerCommissionPct
	}

	return SplitResult{
		ArtistFee:         in.ArtistFee,
		ArtimeCommission:  artimeCommission,
		ManagerCommission: managerCommission,
		ArtistNetAmount:   in.ArtistFee - managerCommission,
		TotalPayable:      in.ArtistFee + artimeCommission + in.PaymentCosts,
	}
}

type SettlementService struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *logrus.Logger
}

func NewSettlementService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *SettlementService {
	return &SettlementService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// FreezeSplit computes and persists the booking's fee breakdown once. A
// second freeze for the same booking fails; the recorded numbers never move
// even if commission settings change later.
func (s *SettlementService) FreezeSplit(tx *gorm.DB, booking *models.Booking) (*models.SplitSummary, error) {
	var existing models.SplitSummary
	if err := tx.Where("booking_id = ?", booking.ID).First(&existing).Error; err == nil {
		return nil, ErrSplitAlreadyFrozen
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check split summary: %w", err)
	}

	result := CalculateSplit(SplitInput{
		ArtistFee:            booking.TotalAmount,
		ArtimeCommissionPct:  s.cfg.Payment.ArtimeCommissionPct,
		ManagerInvolved:      booking.ManagerID != nil,
		ManagerCommissionPct: s.cfg.Payment.ManagerCommissionPct,
		PaymentCosts:         s.cfg.Payment.PaymentCosts,
	})

	summary := &models.SplitSummary{
		BookingID:         booking.ID,
		ArtistFee:         result.ArtistFee,
		ArtimeCommission:  result.ArtimeCommission,
		ManagerInvolved:   booking.ManagerID != nil,
		ManagerCommission: result.ManagerCommission,
		PaymentCosts:      s.cfg.Payment.PaymentCosts,
		ArtistNetAmount:   result.ArtistNetAmount,
		TotalPayable:      result.TotalPayable,
		Currency:          booking.Currency,
		FrozenAt:          time.Now(),
	}
	if err := tx.Create(summary).Error; err != nil {
		return nil, fmt.Errorf("failed to freeze split: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":    booking.ID,
		"total_payable": summary.TotalPayable,
	}).Info("Fee split frozen")
	return summary, nil
}

// GetSplit returns the frozen breakdown for a booking.
func (s *SettlementService) GetSplit(actor Actor, bookingID uuid.UUID) (*models.SplitSummary, error) {
	booking, err := loadBooking(s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if err := checkStanding(s.db, booking, actor); err != nil {
			return nil, err
		}
	}

	var summary models.SplitSummary
	if err := s.db.Where("booking_id = ?", bookingID).First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "split summary"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &summary, nil
}
