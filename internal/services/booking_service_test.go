// internal/services/booking_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/artime/artime-backend/internal/models"
)

func TestCounterpartUserID(t *testing.T) {
	artistID := uuid.New()
	venueID := uuid.New()
	promoterID := uuid.New()
	managerID := uuid.New()

	t.Run("artist side notifies the venue", func(t *testing.T) {
		b := &models.Booking{ArtistID: artistID, VenueID: &venueID}
		actor := Actor{UserID: artistID, Role: models.RoleArtist}
		assert.Equal(t, venueID, counterpartUserID(b, actor))
	})

	t.Run("artist side prefers the promoter when set", func(t *testing.T) {
		b := &models.Booking{ArtistID: artistID, PromoterID: &promoterID}
		actor := Actor{UserID: artistID, Role: models.RoleManager}
		assert.Equal(t, promoterID, counterpartUserID(b, actor))
	})

	t.Run("venue side notifies the handler when claimed", func(t *testing.T) {
		b := &models.Booking{ArtistID: artistID, VenueID: &venueID, HandlerUserID: &managerID}
		actor := Actor{UserID: venueID, Role: models.RoleVenue}
		assert.Equal(t, managerID, counterpartUserID(b, actor))
	})

	t.Run("venue side falls back to the artist", func(t *testing.T) {
		b := &models.Booking{ArtistID: artistID, VenueID: &venueID}
		actor := Actor{UserID: venueID, Role: models.RoleVenue}
		assert.Equal(t, artistID, counterpartUserID(b, actor))
	})
}

func TestPaymentSnapshotFor(t *testing.T) {
	assert.Equal(t, models.PaymentSnapshotPartial, paymentSnapshotFor(models.BookingStatusPaidPartial))
	assert.Equal(t, models.PaymentSnapshotFull, paymentSnapshotFor(models.BookingStatusPaidFull))
	assert.Equal(t, models.PaymentSnapshotNone, paymentSnapshotFor(models.BookingStatusContractSigned))
	assert.Equal(t, models.PaymentSnapshotNone, paymentSnapshotFor(models.BookingStatusFinalOfferSent))
}
