// internal/models/transitions_test.go
package models

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func allStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusDraft,
		BookingStatusPending,
		BookingStatusNegotiating,
		BookingStatusFinalOfferSent,
		BookingStatusAccepted,
		BookingStatusContractSigned,
		BookingStatusPaidPartial,
		BookingStatusPaidFull,
		BookingStatusCompleted,
		BookingStatusRejected,
		BookingStatusCancelled,
		BookingStatusCancelledPendingReview,
	}
}

func TestTransitionClosure(t *testing.T) {
	for _, from := range allStatuses() {
		allowed := map[BookingStatus]bool{}
		for _, to := range BookingTransitions[from] {
			allowed[to] = true
		}

		for _, to := range allStatuses() {
			err := ValidateTransition(from, to)
			if allowed[to] {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
			} else {
				assert.Error(t, err, "%s -> %s should be rejected", from, to)

				var invalid *InvalidTransitionError
				assert.True(t, errors.As(err, &invalid))
				assert.Equal(t, from, invalid.From)
				assert.Equal(t, to, invalid.To)
			}
		}
	}
}

func TestTerminalStatesHaveNoOutgoingTransitions(t *testing.T) {
	terminals := []BookingStatus{
		BookingStatusCompleted,
		BookingStatusRejected,
		BookingStatusCancelled,
		BookingStatusCancelledPendingReview,
	}

	for _, s := range terminals {
		assert.True(t, IsTerminal(s), "%s should be terminal", s)
		for _, to := range allStatuses() {
			assert.False(t, CanTransition(s, to), "%s -> %s must be rejected", s, to)
		}
	}
}

func TestBookingTransitionTo(t *testing.T) {
	b := &Booking{Status: BookingStatusPending}

	assert.NoError(t, b.TransitionTo(BookingStatusNegotiating))
	assert.Equal(t, BookingStatusNegotiating, b.Status)

	err := b.TransitionTo(BookingStatusContractSigned)
	assert.Error(t, err)
	assert.Equal(t, BookingStatusNegotiating, b.Status, "failed transition must not mutate status")
}

func TestSidePredicates(t *testing.T) {
	assert.True(t, RoleArtist.IsArtistSide())
	assert.True(t, RoleManager.IsArtistSide())
	assert.False(t, RoleVenue.IsArtistSide())

	assert.True(t, RoleVenue.IsVenueSide())
	assert.True(t, RolePromoter.IsVenueSide())
	assert.False(t, RoleManager.IsVenueSide())

	assert.False(t, RoleAdmin.IsArtistSide())
	assert.False(t, RoleAdmin.IsVenueSide())

	assert.True(t, SameSide(RoleArtist, RoleManager))
	assert.True(t, SameSide(RoleVenue, RolePromoter))
	assert.False(t, SameSide(RoleArtist, RolePromoter))
	assert.False(t, SameSide(RoleAdmin, RoleAdmin))
}

func TestCounterpartyRole(t *testing.T) {
	venueID := uuid.New()
	promoterID := uuid.New()

	withVenue := &Booking{VenueID: &venueID}
	assert.Equal(t, RoleVenue, withVenue.CounterpartyRole())

	withPromoter := &Booking{PromoterID: &promoterID}
	assert.Equal(t, RolePromoter, withPromoter.CounterpartyRole())
}
