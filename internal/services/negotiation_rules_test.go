// internal/services/negotiation_rules_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/artime/artime-backend/internal/models"
)

func TestCheckTurnAlternation(t *testing.T) {
	lastFromVenue := &models.NegotiationMessage{SenderRole: models.RoleVenue}
	lastFromArtist := &models.NegotiationMessage{SenderRole: models.RoleArtist}

	// No history: anyone may open.
	assert.NoError(t, checkTurn(nil, models.RoleVenue, false))
	assert.NoError(t, checkTurn(nil, models.RoleArtist, false))

	// The other side may reply.
	assert.NoError(t, checkTurn(lastFromVenue, models.RoleArtist, false))
	assert.NoError(t, checkTurn(lastFromArtist, models.RolePromoter, false))

	// The same side may not send twice in a row.
	assert.ErrorIs(t, checkTurn(lastFromVenue, models.RoleVenue, false), ErrNotYourTurn)
	assert.ErrorIs(t, checkTurn(lastFromVenue, models.RolePromoter, false), ErrNotYourTurn)
	assert.ErrorIs(t, checkTurn(lastFromArtist, models.RoleManager, false), ErrNotYourTurn)
}

func TestCheckTurnFinalOfferBypassesAlternation(t *testing.T) {
	last := &models.NegotiationMessage{SenderRole: models.RoleArtist}
	assert.NoError(t, checkTurn(last, models.RoleArtist, true))
	assert.NoError(t, checkTurn(last, models.RoleManager, true))
}

func TestClaimHandlerFirstArtistSideActorWins(t *testing.T) {
	artistID := uuid.New()
	managerID := uuid.New()
	now := time.Now()

	b := &models.Booking{ArtistID: artistID}

	manager := Actor{UserID: managerID, Role: models.RoleManager}
	assert.NoError(t, claimHandler(b, manager, now))
	assert.Equal(t, models.RoleManager, *b.HandlerRole)
	assert.Equal(t, managerID, *b.HandlerUserID)
	assert.Equal(t, now, *b.HandlerAssignedAt)

	// The manager becomes the booking's manager of record.
	assert.Equal(t, managerID, *b.ManagerID)

	// The artist can no longer act on this booking.
	artist := Actor{UserID: artistID, Role: models.RoleArtist}
	assert.ErrorIs(t, claimHandler(b, artist, now), ErrHandledByOtherParty)

	// The holder can keep acting.
	assert.NoError(t, claimHandler(b, manager, now.Add(time.Hour)))
}

func TestClaimHandlerArtistDoesNotSetManager(t *testing.T) {
	artistID := uuid.New()
	b := &models.Booking{ArtistID: artistID}

	artist := Actor{UserID: artistID, Role: models.RoleArtist}
	assert.NoError(t, claimHandler(b, artist, time.Now()))
	assert.Equal(t, models.RoleArtist, *b.HandlerRole)
	assert.Nil(t, b.ManagerID)
}

func TestClaimHandlerIgnoresVenueSide(t *testing.T) {
	b := &models.Booking{ArtistID: uuid.New()}
	venue := Actor{UserID: uuid.New(), Role: models.RoleVenue}

	assert.NoError(t, claimHandler(b, venue, time.Now()))
	assert.Nil(t, b.HandlerUserID)
}

func TestCheckParticipant(t *testing.T) {
	artistID := uuid.New()
	venueID := uuid.New()
	stranger := uuid.New()

	b := &models.Booking{ArtistID: artistID, VenueID: &venueID}

	assert.NoError(t, checkParticipant(b, Actor{UserID: artistID, Role: models.RoleArtist}))
	assert.NoError(t, checkParticipant(b, Actor{UserID: venueID, Role: models.RoleVenue}))

	assert.ErrorIs(t,
		checkParticipant(b, Actor{UserID: stranger, Role: models.RoleArtist}),
		ErrNotParticipant)
	assert.ErrorIs(t,
		checkParticipant(b, Actor{UserID: stranger, Role: models.RoleVenue}),
		ErrNotParticipant)

	// No promoter on this booking at all.
	assert.ErrorIs(t,
		checkParticipant(b, Actor{UserID: stranger, Role: models.RolePromoter}),
		ErrNotParticipant)

	// Managers pass here; their standing is checked against the
	// representation table.
	assert.NoError(t, checkParticipant(b, Actor{UserID: stranger, Role: models.RoleManager}))

	assert.ErrorIs(t,
		checkParticipant(b, Actor{UserID: artistID, Role: models.RoleAdmin}),
		ErrForbiddenRole)
}

func TestCheckStanding(t *testing.T) {
	artistID := uuid.New()
	venueID := uuid.New()
	managerID := uuid.New()

	b := &models.Booking{ArtistID: artistID, VenueID: &venueID, ManagerID: &managerID}

	// Direct parties never touch the representation table.
	assert.NoError(t, checkStanding(nil, b, Actor{UserID: artistID, Role: models.RoleArtist}))
	assert.NoError(t, checkStanding(nil, b, Actor{UserID: venueID, Role: models.RoleVenue}))

	// The attached manager has standing without a lookup.
	assert.NoError(t, checkStanding(nil, b, Actor{UserID: managerID, Role: models.RoleManager}))

	assert.ErrorIs(t,
		checkStanding(nil, b, Actor{UserID: uuid.New(), Role: models.RoleVenue}),
		ErrNotParticipant)
}

func TestBookingIsParty(t *testing.T) {
	artistID := uuid.New()
	promoterID := uuid.New()

	b := &models.Booking{ArtistID: artistID, PromoterID: &promoterID}

	assert.True(t, b.IsParty(artistID))
	assert.True(t, b.IsParty(promoterID))
	assert.False(t, b.IsParty(uuid.New()))
}
