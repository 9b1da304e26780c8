package services

import (
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/artime/artime-backend/internal/config"
	"github.com/artime/artime-backend/internal/database"
	"github.com/artime/artime-backend/internal/models"
	"github.com/artime/artime-backend/internal/outbox"
)

// fakeGateway is an in-memory PaymentGateway. Every created intent succeeds
// at the amount it was opened for.
type fakeGateway struct {
	intents     map[string]*IntentStatus
	verifyCalls int
	createCalls int
}

func (g *fakeGateway) CreateIntent(amount float64, currency string, metadata map[string]string) (*PaymentIntentResponse, error) {
	g.createCalls++
	id := "pi_" + uuid.New().String()[:8]
	g.intents[id] = &IntentStatus{ID: id, Amount: amount, Currency: currency, Succeeded: true}
	return &PaymentIntentResponse{ClientSecret: id + "_secret", PaymentID: id, Status: "requires_confirmation"}, nil
}

func (g *fakeGateway) VerifyIntent(intentID string) (*IntentStatus, error) {
	g.verifyCalls++
	status, ok := g.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such intent: %s", intentID)
	}
	return status, nil
}

type refundCall struct {
	Reference string
	Amount    *float64
	Currency  string
}

// fakeProvider records refund requests instead of talking to a processor.
type fakeProvider struct {
	refunds []refundCall
}

func (p *fakeProvider) RefundPayment(paymentReference string, amount *float64, currency string) (string, error) {
	p.refunds = append(p.refunds, refundCall{Reference: paymentReference, Amount: amount, Currency: currency})
	return "re_" + uuid.New().String()[:8], nil
}

// WorkflowSuite runs the booking lifecycle against a real Postgres database.
// It is skipped unless TEST_DATABASE_URL points at one.
type WorkflowSuite struct {
	suite.Suite
	db       *gorm.DB
	gateway  *fakeGateway
	provider *fakeProvider

	bookings     *BookingService
	negotiation  *NegotiationService
	contracts    *ContractService
	payments     *PaymentService
	cancellation *CancellationService
}

func TestWorkflowSuite(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) SetupSuite() {
	db, err := gorm.Open(postgres.Open(os.Getenv("TEST_DATABASE_URL")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(database.RunMigrations(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sqlDB, err := db.DB()
	s.Require().NoError(err)
	s.Require().NoError(outbox.InitSchema(sqlDB, logger))

	cfg := &config.Config{
		Payment: config.PaymentConfig{
			ArtimeCommissionPct:  0.10,
			ManagerCommissionPct: 0.15,
		},
		Booking: config.BookingConfig{DepositPercent: 0.5},
	}
	storage, err := NewStorageService(cfg)
	s.Require().NoError(err)

	s.db = db
	s.gateway = &fakeGateway{intents: map[string]*IntentStatus{}}
	s.provider = &fakeProvider{}

	settlement := NewSettlementService(db, cfg, logger)
	s.bookings = NewBookingService(db, cfg, logger)
	s.negotiation = NewNegotiationService(db, logger)
	s.contracts = NewContractService(db, cfg, storage, settlement, logger)
	s.payments = NewPaymentService(db, s.gateway, logger)
	s.cancellation = NewCancellationService(db, s.provider, logger)
}

func (s *WorkflowSuite) createUser(userType models.UserType) *models.User {
	tag := uuid.New().String()[:8]
	user := &models.User{
		Username: "wf_" + tag,
		Email:    "wf_" + tag + "@example.com",
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	s.Require().NoError(user.SetPassword("Wf!Pass1234"))
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *WorkflowSuite) actor(userType models.UserType) Actor {
	user := s.createUser(userType)
	role, ok := models.RoleForUserType(userType)
	s.Require().True(ok)
	return Actor{UserID: user.ID, Role: role}
}

// newBooking opens a PENDING booking from the venue side for 2000 USD.
func (s *WorkflowSuite) newBooking() (artist, venue Actor, booking *models.Booking) {
	artistUser := s.createUser(models.UserTypeArtist)
	venueUser := s.createUser(models.UserTypeVenue)
	artist = Actor{UserID: artistUser.ID, Role: models.RoleArtist}
	venue = Actor{UserID: venueUser.ID, Role: models.RoleVenue}

	venueID := venueUser.ID
	var err error
	booking, err = s.bookings.CreateBooking(venue, &CreateBookingRequest{
		ArtistID:    artistUser.ID,
		VenueID:     &venueID,
		Currency:    "USD",
		TotalAmount: 2000,
		StartDate:   time.Now().Add(45 * 24 * time.Hour),
		Message:     "Headline slot, one hour set.",
	})
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusPending, booking.Status)
	return artist, venue, booking
}

func (s *WorkflowSuite) signedBooking() (artist, venue Actor, booking *models.Booking) {
	artist, venue, booking = s.newBooking()

	accepted, err := s.negotiation.AcceptBooking(artist, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusAccepted, accepted.Status)

	_, err = s.contracts.Generate(booking.ID)
	s.Require().NoError(err)

	booking, err = s.contracts.MarkSigned(venue, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusContractSigned, booking.Status)
	return artist, venue, booking
}

func (s *WorkflowSuite) milestoneByKind(actor Actor, bookingID uuid.UUID, kind models.MilestoneKind) *models.PaymentMilestone {
	milestones, err := s.payments.ListMilestones(actor, bookingID)
	s.Require().NoError(err)
	for i := range milestones {
		if milestones[i].Kind == kind {
			return &milestones[i]
		}
	}
	s.Require().FailNow("milestone not found", "kind %s", kind)
	return nil
}

func (s *WorkflowSuite) payMilestone(venue Actor, milestone *models.PaymentMilestone) *models.PaymentMilestone {
	intent, err := s.payments.CreateMilestoneIntent(venue, milestone.ID)
	s.Require().NoError(err)

	paid, err := s.payments.ConfirmMilestonePaid(venue, &ConfirmPaymentRequest{
		PaymentIntentID: intent.PaymentID,
		MilestoneID:     milestone.ID,
	})
	s.Require().NoError(err)
	s.Require().Equal(models.MilestoneStatusPaid, paid.Status)
	return paid
}

// paidPartialBooking signs a booking and pays the deposit milestone only.
func (s *WorkflowSuite) paidPartialBooking() (artist, venue Actor, booking *models.Booking, deposit *models.PaymentMilestone) {
	artist, venue, booking = s.signedBooking()
	deposit = s.milestoneByKind(venue, booking.ID, models.MilestoneKindDeposit)
	deposit = s.payMilestone(venue, deposit)

	booking, err := s.bookings.GetBooking(venue, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusPaidPartial, booking.Status)
	return artist, venue, booking, deposit
}

func (s *WorkflowSuite) backdateStart(bookingID uuid.UUID) {
	err := s.db.Model(&models.Booking{}).Where("id = ?", bookingID).
		Update("start_date", time.Now().Add(-48*time.Hour)).Error
	s.Require().NoError(err)
}

func (s *WorkflowSuite) TestNegotiationToCompletion() {
	artist, venue, booking := s.newBooking()

	counter := 1800.0
	_, err := s.negotiation.SendMessage(artist, booking.ID, &SendMessageRequest{
		Message:     "Fee is too low for a headline set.",
		ProposedFee: &counter,
	})
	s.Require().NoError(err)

	// Two messages in a row from the same side break alternation.
	_, err = s.negotiation.SendMessage(artist, booking.ID, &SendMessageRequest{
		Message: "One more thing.",
	})
	s.Require().ErrorIs(err, ErrNotYourTurn)

	offer, err := s.negotiation.SendFinalOffer(venue, booking.ID, &FinalOfferRequest{
		Message:     "Final: 1900, load-in at 4pm.",
		ProposedFee: 1900,
	})
	s.Require().NoError(err)
	s.Require().True(offer.IsFinalOffer)

	accepted, err := s.negotiation.AcceptBooking(artist, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusAccepted, accepted.Status)
	s.Require().InDelta(1900, accepted.TotalAmount, 0.001)

	_, err = s.contracts.Generate(booking.ID)
	s.Require().NoError(err)
	signed, err := s.contracts.MarkSigned(artist, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusContractSigned, signed.Status)

	deposit := s.milestoneByKind(venue, booking.ID, models.MilestoneKindDeposit)
	balance := s.milestoneByKind(venue, booking.ID, models.MilestoneKindBalance)
	s.Require().InDelta(950, deposit.Amount, 0.001)
	s.Require().InDelta(950, balance.Amount, 0.001)

	s.payMilestone(venue, deposit)
	s.payMilestone(venue, balance)

	full, err := s.bookings.GetBooking(venue, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusPaidFull, full.Status)

	// The event date is still ahead, so the booking cannot close out yet.
	_, err = s.bookings.CompleteBooking(venue, booking.ID)
	s.Require().ErrorIs(err, ErrNotCompletable)

	s.backdateStart(booking.ID)
	completed, err := s.bookings.CompleteBooking(venue, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusCompleted, completed.Status)
}

func (s *WorkflowSuite) TestFinalOfferFromPendingIsArtistSideOnly() {
	_, venue, booking := s.newBooking()

	_, err := s.negotiation.SendFinalOffer(venue, booking.ID, &FinalOfferRequest{
		Message:     "Take it or leave it.",
		ProposedFee: 1500,
	})
	s.Require().ErrorIs(err, ErrNotYourTurn)

	fresh, err := s.bookings.GetBooking(venue, booking.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusPending, fresh.Status)

	var offers int64
	err = s.db.Model(&models.NegotiationMessage{}).
		Where("booking_id = ? AND is_final_offer = true", booking.ID).
		Count(&offers).Error
	s.Require().NoError(err)
	s.Require().Zero(offers)
}

func (s *WorkflowSuite) TestSingleActiveFinalOffer() {
	artist, venue, booking := s.newBooking()

	_, err := s.negotiation.SendFinalOffer(artist, booking.ID, &FinalOfferRequest{
		Message:     "Final terms from our side.",
		ProposedFee: 2100,
	})
	s.Require().NoError(err)

	_, err = s.negotiation.SendFinalOffer(venue, booking.ID, &FinalOfferRequest{
		Message:     "Our final terms instead.",
		ProposedFee: 1700,
	})
	s.Require().ErrorIs(err, ErrFinalOfferAlreadyExists)
}

func (s *WorkflowSuite) TestCancellationIdempotency() {
	artist, _, booking, _ := s.paidPartialBooking()

	cancelled, cse, err := s.cancellation.CancelBooking(artist, booking.ID, &CancelBookingRequest{
		Reason: "Tour leg dropped",
	})
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusCancelledPendingReview, cancelled.Status)
	s.Require().NotNil(cse)
	s.Require().Equal(models.CancellationCaseOpen, cse.Status)

	// The second attempt must report the existing case, not a status error.
	_, _, err = s.cancellation.CancelBooking(artist, booking.ID, &CancelBookingRequest{
		Reason: "Tour leg dropped",
	})
	s.Require().ErrorIs(err, ErrAlreadyCancelled)
}

func (s *WorkflowSuite) TestCancellationWithoutExposureClosesDirectly() {
	artist, venue, booking := s.newBooking()
	_, err := s.negotiation.AcceptBooking(artist, booking.ID)
	s.Require().NoError(err)

	cancelled, cse, err := s.cancellation.CancelBooking(venue, booking.ID, &CancelBookingRequest{
		Reason: "Venue double-booked",
	})
	s.Require().NoError(err)
	s.Require().Equal(models.BookingStatusCancelled, cancelled.Status)
	s.Require().Nil(cse)

	_, _, err = s.cancellation.CancelBooking(venue, booking.ID, &CancelBookingRequest{
		Reason: "Venue double-booked",
	})
	s.Require().ErrorIs(err, ErrNotCancellable)
}

func (s *WorkflowSuite) TestResolutionExactlyOnce() {
	artist, _, booking, _ := s.paidPartialBooking()
	admin := s.actor(models.UserTypeAdmin)

	_, cse, err := s.cancellation.CancelBooking(artist, booking.ID, &CancelBookingRequest{
		Reason: "Illness",
	})
	s.Require().NoError(err)
	s.Require().NotNil(cse)

	// Only an admin may resolve.
	_, err = s.cancellation.ResolveCase(artist, cse.ID, &ResolveCaseRequest{
		ResolutionType: models.ResolutionFullRefund,
	})
	s.Require().ErrorIs(err, ErrForbiddenRole)

	// A partial refund above the paid principal is out of bounds.
	_, err = s.cancellation.ResolveCase(admin, cse.ID, &ResolveCaseRequest{
		ResolutionType: models.ResolutionPartialRefund,
		RefundAmount:   5000,
	})
	s.Require().ErrorIs(err, ErrInvalidRefundAmount)

	resolution, err := s.cancellation.ResolveCase(admin, cse.ID, &ResolveCaseRequest{
		ResolutionType: models.ResolutionPartialRefund,
		RefundAmount:   500,
		Notes:          "Split the deposit.",
	})
	s.Require().NoError(err)
	s.Require().InDelta(500, resolution.RefundAmount, 0.001)

	_, err = s.cancellation.ResolveCase(admin, cse.ID, &ResolveCaseRequest{
		ResolutionType: models.ResolutionNoRefund,
	})
	s.Require().ErrorIs(err, ErrAlreadyResolved)
}

func (s *WorkflowSuite) TestExecutionExactlyOnce() {
	artist, _, booking, deposit := s.paidPartialBooking()
	admin := s.actor(models.UserTypeAdmin)

	_, cse, err := s.cancellation.CancelBooking(artist, booking.ID, &CancelBookingRequest{
		Reason: "Illness",
	})
	s.Require().NoError(err)
	s.Require().NotNil(cse)

	// Execution is meaningless before a resolution exists.
	_, err = s.cancellation.ExecuteResolution(admin, cse.ID)
	s.Require().ErrorIs(err, ErrNotResolved)

	_, err = s.cancellation.ResolveCase(admin, cse.ID, &ResolveCaseRequest{
		ResolutionType: models.ResolutionPartialRefund,
		RefundAmount:   500,
	})
	s.Require().NoError(err)

	refundsBefore := len(s.provider.refunds)
	execution, err := s.cancellation.ExecuteResolution(admin, cse.ID)
	s.Require().NoError(err)
	s.Require().NotEmpty(execution.ProviderRefundID)

	s.Require().Len(s.provider.refunds, refundsBefore+1)
	call := s.provider.refunds[len(s.provider.refunds)-1]
	s.Require().Equal(deposit.PaymentReference, call.Reference)
	s.Require().NotNil(call.Amount)
	s.Require().InDelta(500, *call.Amount, 0.001)

	_, err = s.cancellation.ExecuteResolution(admin, cse.ID)
	s.Require().ErrorIs(err, ErrAlreadyExecuted)
	s.Require().Len(s.provider.refunds, refundsBefore+1)
}

func (s *WorkflowSuite) TestNoRefundHasNothingToExecute() {
	artist, _, booking, _ := s.paidPartialBooking()
	admin := s.actor(models.UserTypeAdmin)

	_, cse, err := s.cancellation.CancelBooking(artist, booking.ID, &CancelBookingRequest{
		Reason: "Force majeure",
	})
	s.Require().NoError(err)
	s.Require().NotNil(cse)

	_, err = s.cancellation.ResolveCase(admin, cse.ID, &ResolveCaseRequest{
		ResolutionType: models.ResolutionNoRefund,
	})
	s.Require().NoError(err)

	refundsBefore := len(s.provider.refunds)
	_, err = s.cancellation.ExecuteResolution(admin, cse.ID)
	s.Require().ErrorIs(err, ErrNothingToExecute)
	s.Require().Len(s.provider.refunds, refundsBefore)
}

func (s *WorkflowSuite) TestConfirmPaymentRequiresStanding() {
	_, venue, booking := s.signedBooking()
	deposit := s.milestoneByKind(venue, booking.ID, models.MilestoneKindDeposit)

	intent, err := s.payments.CreateMilestoneIntent(venue, deposit.ID)
	s.Require().NoError(err)

	// An unrelated venue must be turned away before any provider lookup.
	stranger := s.actor(models.UserTypeVenue)
	verifiesBefore := s.gateway.verifyCalls
	_, err = s.payments.ConfirmMilestonePaid(stranger, &ConfirmPaymentRequest{
		PaymentIntentID: intent.PaymentID,
		MilestoneID:     deposit.ID,
	})
	s.Require().ErrorIs(err, ErrNotParticipant)
	s.Require().Equal(verifiesBefore, s.gateway.verifyCalls)

	fresh := s.milestoneByKind(venue, booking.ID, models.MilestoneKindDeposit)
	s.Require().Equal(models.MilestoneStatusPending, fresh.Status)
}
