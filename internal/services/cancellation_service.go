// internal/services/cancellation_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/utils"
)

// PaymentProvider executes refunds against the external payment processor.
// A nil amount refunds the payment in full.
type PaymentProvider interface {
	RefundPayment(paymentReference string, amount *float64, currency string) (refundID string, err error)
}

type CancellationService struct {
	db       *gorm.DB
	provider PaymentProvider
	logger   *logrus.Logger
}

type CancelBookingRequest struct {
	Reason      string `json:"reason" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

type ResolveCaseRequest struct {
	ResolutionType models.ResolutionType `json:"resolution_type" validate:"required"`
	RefundAmount   float64               `json:"refund_amount"`
	Notes          string                `json:"notes,omitempty" validate:"max=2000"`
}

func NewCancellationService(db *gorm.DB, provider PaymentProvider, logger *logrus.Logger) *CancellationService {
	return &CancellationService{
		db:       db,
		provider: provider,
		logger:   logger,
	}
}

// CancelBooking withdraws a booking. When money or a signed contract is
// already in play the booking needs operator review, so a cancellation case
// is opened with a snapshot of where things stood; otherwise the booking is
// simply cancelled.
func (s *CancellationService) CancelBooking(actor Actor, bookingID uuid.UUID, req *CancelBookingRequest) (*models.Booking, *models.CancellationCase, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	var (
		booking *models.Booking
		cse     *models.CancellationCase
	)
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

		// The idempotency guard runs first: once a case exists the booking is
		// already in a cancelled state and would otherwise report the wrong
		// failure.
		var existing models.CancellationCase
		if err := tx.Where("booking_id = ?", bookingID).First(&existing).Error; err == nil {
			return ErrAlreadyCancelled
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check cancellation case: %w", err)
		}

		switch booking.Status {
		case models.BookingStatusFinalOfferSent,
			models.BookingStatusAccepted,
			models.BookingStatusContractSigned,
			models.BookingStatusPaidPartial,
			models.BookingStatusPaidFull:
		default:
			return ErrNotCancellable
		}

		statusAtCancellation := booking.Status
		needsReview := statusAtCancellation == models.BookingStatusContractSigned ||
			statusAtCancellation == models.BookingStatusPaidPartial ||
			statusAtCancellation == models.BookingStatusPaidFull

		target := models.BookingStatusCancelled
		// Partial and full payments park the booking for review; a signed but
		// unpaid contract still reviews the exposure, though the machine only
		// offers the plain cancelled edge from that state.
		if statusAtCancellation == models.BookingStatusPaidPartial ||
			statusAtCancellation == models.BookingStatusPaidFull {
			target = models.BookingStatusCancelledPendingReview
		}

		prev := booking.Version
		if err := booking.TransitionTo(target); err != nil {
			return err
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}

		if needsReview {
			cse = &models.CancellationCase{
				BookingID:                   bookingID,
				RequestedByRole:             actor.Role,
				RequestedByUserID:           actor.UserID,
				Reason:                      req.Reason,
				Description:                 req.Description,
				BookingStatusAtCancellation: statusAtCancellation,
				PaymentStatusAtCancellation: paymentSnapshotFor(statusAtCancellation),
				Status:                      models.CancellationCaseOpen,
			}
			if err := tx.Create(cse).Error; err != nil {
				return fmt.Errorf("failed to open cancellation case: %w", err)
			}
		}

		var caseID *uuid.UUID
		if cse != nil {
			caseID = &cse.ID
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeBookingCancelled, caseID)
	})
	if err != nil {
		return nil, nil, err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"status":     booking.Status,
	})
	if cse != nil {
		entry = entry.WithField("case_id", cse.ID)
	}
	entry.Info("Booking cancelled")

	return booking, cse, nil
}

// ResolveCase records the operator's economic decision on an open case. The
// resolution is immutable; a case resolves exactly once.
func (s *CancellationService) ResolveCase(actor Actor, caseID uuid.UUID, req *ResolveCaseRequest) (*models.CancellationResolution, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbiddenRole
	}

	var resolution *models.CancellationResolution
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		cse, err := loadCase(tx, caseID)
		if err != nil {
			return err
		}
		if cse.Status != models.CancellationCaseOpen {
			return ErrAlreadyResolved
		}

		principal, err := paidPrincipal(tx, cse.BookingID)
		if err != nil {
			return err
		}

		amount := req.RefundAmount
		switch req.ResolutionType {
		case models.ResolutionNoRefund:
			amount = 0
		case models.ResolutionFullRefund:
			amount = principal
		case models.ResolutionPartialRefund:
			if amount <= 0 || amount > principal {
				return ErrInvalidRefundAmount
			}
		default:
			return fmt.Errorf("unknown resolution type: %s", req.ResolutionType)
		}

		now := time.Now()
		resolution = &models.CancellationResolution{
			CancellationCaseID: cse.ID,
			ResolutionType:     req.ResolutionType,
			RefundAmount:       amount,
			ResolvedByUserID:   actor.UserID,
			ResolvedByRole:     actor.Role,
			Notes:              req.Notes,
			ResolvedAt:         now,
		}
		if err := tx.Create(resolution).Error; err != nil {
			return fmt.Errorf("failed to record resolution: %w", err)
		}

		prev := cse.Version
		cse.Status = models.CancellationCaseResolved
		cse.ResolvedAt = &now
		if err := updateCaseLocked(tx, cse, prev); err != nil {
			return err
		}

		booking, err := loadBooking(tx, cse.BookingID)
		if err != nil {
			return err
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeCaseResolved, &cse.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"case_id":       caseID,
		"resolution":    resolution.ResolutionType,
		"refund_amount": resolution.RefundAmount,
	}).Info("Cancellation case resolved")
	return resolution, nil
}

// ExecuteResolution carries out a resolved case's refund against the payment
// provider, exactly once. NO_REFUND resolutions have nothing to execute and
// never produce an execution record.
func (s *CancellationService) ExecuteResolution(actor Actor, caseID uuid.UUID) (*models.CancellationEconomicExecution, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbiddenRole
	}

	var execution *models.CancellationEconomicExecution
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		cse, err := loadCase(tx, caseID)
		if err != nil {
			return err
		}
		if cse.Status != models.CancellationCaseResolved {
			return ErrNotResolved
		}

		var resolution models.CancellationResolution
		if err := tx.Where("cancellation_case_id = ?", caseID).First(&resolution).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotResolved
			}
			return fmt.Errorf("failed to load resolution: %w", err)
		}

		var prior models.CancellationEconomicExecution
		if err := tx.Where("cancellation_case_id = ?", caseID).First(&prior).Error; err == nil {
			return ErrAlreadyExecuted
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check prior execution: %w", err)
		}

		if resolution.ResolutionType == models.ResolutionNoRefund {
			return ErrNothingToExecute
		}

		milestone, err := principalMilestone(tx, cse.BookingID)
		if err != nil {
			return err
		}

		var amount *float64
		if resolution.ResolutionType == models.ResolutionPartialRefund {
			amount = &resolution.RefundAmount
		}
		refundID, err := s.provider.RefundPayment(milestone.PaymentReference, amount, milestone.Currency)
		if err != nil {
			return &ProviderError{Op: "refund", Err: err}
		}

		execution = &models.CancellationEconomicExecution{
			CancellationCaseID: cse.ID,
			ExecutedByUserID:   actor.UserID,
			ExecutedByRole:     actor.Role,
			ProviderRefundID:   refundID,
			ExecutedAt:         time.Now(),
		}
		if err := tx.Create(execution).Error; err != nil {
			return fmt.Errorf("failed to record execution: %w", err)
		}

		booking, err := loadBooking(tx, cse.BookingID)
		if err != nil {
			return err
		}
		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeRefundExecuted, &cse.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"case_id":   caseID,
		"refund_id": execution.ProviderRefundID,
	}).Info("Cancellation refund executed")
	return execution, nil
}

func (s *CancellationService) GetCase(actor Actor, caseID uuid.UUID) (*models.CancellationCase, error) {
	var cse models.CancellationCase
	if err := s.db.Preload("Resolution").Preload("Execution").
		First(&cse, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "cancellation case"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		booking, err := loadBooking(s.db, cse.BookingID)
		if err != nil {
			return nil, err
		}
		if err := checkStanding(s.db, booking, actor); err != nil {
			return nil, err
		}
	}
	return &cse, nil
}

func (s *CancellationService) ListOpenCases(actor Actor, params utils.PaginationParams) (*utils.PaginationResult, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbiddenRole
	}

	query := s.db.Model(&models.CancellationCase{}).
		Where("status = ?", models.CancellationCaseOpen)
	if params.Search != "" {
		query = query.Where("reason ILIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}

	var cases []models.CancellationCase
	query = utils.ApplySort(query, params, []string{"created_at"})
	if err := utils.ApplyPagination(query, params).Find(&cases).Error; err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}

	result := utils.CreatePaginationResult(cases, total, params)
	return &result, nil
}

func loadCase(tx *gorm.DB, caseID uuid.UUID) (*models.CancellationCase, error) {
	var cse models.CancellationCase
	if err := tx.First(&cse, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "cancellation case"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &cse, nil
}

func updateCaseLocked(tx *gorm.DB, cse *models.CancellationCase, prevVersion int) error {
	res := tx.Model(&models.CancellationCase{}).
		Where("id = ? AND version = ?", cse.ID, prevVersion).
		Updates(map[string]interface{}{
			"status":      cse.Status,
			"resolved_at": cse.ResolvedAt,
			"version":     prevVersion + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update case: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	cse.Version = prevVersion + 1
	return nil
}

// paidPrincipal sums the milestones actually collected for a booking.
func paidPrincipal(tx *gorm.DB, bookingID uuid.UUID) (float64, error) {
	var total float64
	err := tx.Model(&models.PaymentMilestone{}).
		Where("booking_id = ? AND status = ?", bookingID, models.MilestoneStatusPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum paid milestones: %w", err)
	}
	return total, nil
}

// principalMilestone returns the first collected milestone, whose provider
// payment the refund is issued against.
func principalMilestone(tx *gorm.DB, bookingID uuid.UUID) (*models.PaymentMilestone, error) {
	var milestone models.PaymentMilestone
	err := tx.Where("booking_id = ? AND status = ? AND payment_reference <> ''",
		bookingID, models.MilestoneStatusPaid).
		Order("paid_at ASC").
		First(&milestone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNothingToExecute
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load principal payment: %w", err)
	}
	return &milestone, nil
}

func paymentSnapshotFor(status models.BookingStatus) models.PaymentSnapshotStatus {
	switch status {
	case models.BookingStatusPaidPartial:
		return models.PaymentSnapshotPartial
	case models.BookingStatusPaidFull:
		return models.PaymentSnapshotFull
	default:
		return models.PaymentSnapshotNone
	}
}
