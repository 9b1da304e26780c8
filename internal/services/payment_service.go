// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/events"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/utils"
)

// PaymentGateway abstracts the provider calls the milestone flow needs:
// opening a payment intent and verifying what the provider actually
// collected for it.
type PaymentGateway interface {
	CreateIntent(amount float64, currency string, metadata map[string]string) (*PaymentIntentResponse, error)
	VerifyIntent(intentID string) (*IntentStatus, error)
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

// IntentStatus is the provider's view of a payment intent.
type IntentStatus struct {
	ID        string
	Amount    float64
	Currency  string
	Succeeded bool
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
	MilestoneID     uuid.UUID `json:"milestone_id" validate:"required"`
}

type PaymentService struct {
	db      *gorm.DB
	gateway PaymentGateway
	logger  *logrus.Logger
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		db:      db,
		gateway: gateway,
		logger:  logger,
	}
}

// CreateMilestoneIntent opens a provider payment intent for a pending
// milestone. Only the paying (venue) side can do it, and only while the
// booking is payable.
func (s *PaymentService) CreateMilestoneIntent(actor Actor, milestoneID uuid.UUID) (*PaymentIntentResponse, error) {
	milestone, err := s.loadMilestone(milestoneID)
	if err != nil {
		return nil, err
	}

	booking, err := loadBooking(s.db, milestone.BookingID)
	if err != nil {
		return nil, err
	}
	if err := checkParticipant(booking, actor); err != nil {
		return nil, err
	}
	if !actor.Role.IsVenueSide() {
		return nil, ErrForbiddenRole
	}

	if booking.Status != models.BookingStatusContractSigned &&
		booking.Status != models.BookingStatusPaidPartial {
		return nil, ErrNotPayable
	}
	if milestone.Status != models.MilestoneStatusPending {
		return nil, ErrNotPayable
	}

	resp, err := s.gateway.CreateIntent(milestone.Amount, milestone.Currency, map[string]string{
		"booking_id":   booking.ID.String(),
		"milestone_id": milestone.ID.String(),
		"kind":         string(milestone.Kind),
	})
	if err != nil {
		return nil, &ProviderError{Op: "create_intent", Err: err}
	}

	if err := s.db.Model(&models.PaymentMilestone{}).
		Where("id = ?", milestone.ID).
		Update("payment_reference", resp.PaymentID).Error; err != nil {
		return nil, fmt.Errorf("failed to store payment reference: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"milestone_id": milestone.ID,
		"intent_id":    resp.PaymentID,
	}).Info("Payment intent created")

	return resp, nil
}

// ConfirmMilestonePaid verifies a payment intent with the provider and, on a
// matching successful charge, marks the milestone paid and advances the
// booking. Confirming an already paid milestone is a no-op.
func (s *PaymentService) ConfirmMilestonePaid(actor Actor, req *ConfirmPaymentRequest) (*models.PaymentMilestone, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Standing is settled before anything else happens: an outsider must not
	// learn milestone state or drive provider lookups.
	pre, err := s.loadMilestone(req.MilestoneID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		preBooking, err := loadBooking(s.db, pre.BookingID)
		if err != nil {
			return nil, err
		}
		if err := checkStanding(s.db, preBooking, actor); err != nil {
			return nil, err
		}
	}

	status, err := s.gateway.VerifyIntent(req.PaymentIntentID)
	if err != nil {
		return nil, &ProviderError{Op: "verify_intent", Err: err}
	}

	var milestone *models.PaymentMilestone
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		milestone, err = s.loadMilestoneTx(tx, req.MilestoneID)
		if err != nil {
			return err
		}
		if milestone.Status == models.MilestoneStatusPaid {
			return nil
		}

		booking, err := loadBooking(tx, milestone.BookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingStatusContractSigned &&
			booking.Status != models.BookingStatusPaidPartial {
			return ErrNotPayable
		}
		if !status.Succeeded {
			return &ProviderError{Op: "verify_intent", Err: errors.New("payment not completed")}
		}
		// Compare in cents to dodge float drift on the decimal column.
		if int64(math.Round(status.Amount*100)) != int64(math.Round(milestone.Amount*100)) {
			return ErrAmountMismatch
		}

		now := time.Now()
		if err := tx.Model(&models.PaymentMilestone{}).
			Where("id = ? AND status = ?", milestone.ID, models.MilestoneStatusPending).
			Updates(map[string]interface{}{
				"status":            models.MilestoneStatusPaid,
				"payment_reference": status.ID,
				"paid_at":           now,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark milestone paid: %w", err)
		}
		milestone.Status = models.MilestoneStatusPaid
		milestone.PaymentReference = status.ID
		milestone.PaidAt = &now

		prev := booking.Version
		if booking.Status == models.BookingStatusContractSigned {
			if err := booking.TransitionTo(models.BookingStatusPaidPartial); err != nil {
				return err
			}
		}

		var unpaid int64
		if err := tx.Model(&models.PaymentMilestone{}).
			Where("booking_id = ? AND status = ?", booking.ID, models.MilestoneStatusPending).
			Count(&unpaid).Error; err != nil {
			return fmt.Errorf("failed to count unpaid milestones: %w", err)
		}
		if unpaid == 0 {
			if err := booking.TransitionTo(models.BookingStatusPaidFull); err != nil {
				return err
			}
		}
		if err := updateBookingLocked(tx, booking, prev); err != nil {
			return err
		}

		return notifyCounterpart(tx, s.logger, booking, actor, events.TypeMilestonePaid, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"milestone_id": milestone.ID,
		"booking_id":   milestone.BookingID,
		"status":       milestone.Status,
	}).Info("Milestone payment confirmed")

	return milestone, nil
}

func (s *PaymentService) ListMilestones(actor Actor, bookingID uuid.UUID) ([]models.PaymentMilestone, error) {
	booking, err := loadBooking(s.db, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		if err := checkStanding(s.db, booking, actor); err != nil {
			return nil, err
		}
	}

	var milestones []models.PaymentMilestone
	if err := s.db.Where("booking_id = ?", bookingID).
		Order("created_at ASC").Find(&milestones).Error; err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

func (s *PaymentService) loadMilestone(milestoneID uuid.UUID) (*models.PaymentMilestone, error) {
	return s.loadMilestoneTx(s.db, milestoneID)
}

func (s *PaymentService) loadMilestoneTx(tx *gorm.DB, milestoneID uuid.UUID) (*models.PaymentMilestone, error) {
	var milestone models.PaymentMilestone
	if err := tx.First(&milestone, "id = ?", milestoneID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "milestone"}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &milestone, nil
}

// StripeGateway backs PaymentGateway and PaymentProvider with Stripe.
type StripeGateway struct{}

func NewStripeGateway(cfg *config.Config) *StripeGateway {
	stripe.Key = cfg.Payment.StripeSecretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(amount float64, currency string, metadata map[string]string) (*PaymentIntentResponse, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(math.Round(amount * 100))),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

func (g *StripeGateway) VerifyIntent(intentID string) (*IntentStatus, error) {
	pi, err := paymentintent.Get(intentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &IntentStatus{
		ID:        pi.ID,
		Amount:    float64(pi.Amount) / 100,
		Currency:  string(pi.Currency),
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
	}, nil
}

// RefundPayment issues a refund against the payment intent a milestone was
// collected through. A nil amount lets Stripe refund the full charge.
func (g *StripeGateway) RefundPayment(paymentReference string, amount *float64, currency string) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentReference),
		Reason:        stripe.String("requested_by_customer"),
	}
	if amount != nil {
		params.Amount = stripe.Int64(int64(math.Round(*amount * 100)))
	}

	r, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to process refund: %w", err)
	}
	return r.ID, nil
}
