// internal/services/errors_test.go
package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artime/artime-backend/internal/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{ErrNoAmountToClose, KindValidation},
		{ErrInvalidRefundAmount, KindValidation},
		{ErrNotCancellable, KindValidation},
		{ErrAmountMismatch, KindValidation},
		{ErrNotPayable, KindValidation},
		{ErrNotCompletable, KindValidation},
		{ErrNotResolved, KindValidation},
		{ErrNothingToExecute, KindValidation},
		{ErrCounterpartyMissing, KindValidation},
		{&models.InvalidTransitionError{From: models.BookingStatusPending, To: models.BookingStatusPaidFull}, KindValidation},

		{ErrNotYourTurn, KindAuthorization},
		{ErrHandledByOtherParty, KindAuthorization},
		{ErrManagerNotRepresenting, KindAuthorization},
		{ErrForbiddenRole, KindAuthorization},
		{ErrNotParticipant, KindAuthorization},
		{ErrCannotRejectOwnOffer, KindAuthorization},

		{ErrFinalOfferAlreadyExists, KindConflict},
		{ErrAlreadyCancelled, KindConflict},
		{ErrAlreadyResolved, KindConflict},
		{ErrAlreadyExecuted, KindConflict},
		{ErrSplitAlreadyFrozen, KindConflict},
		{ErrConcurrentUpdate, KindConflict},
		{ErrUserExists, KindConflict},

		{&NotFoundError{Resource: "booking"}, KindNotFound},
		{&ProviderError{Op: "refund", Err: errors.New("card declined")}, KindExternal},

		{errors.New("disk full"), KindInternal},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.kind, Classify(tc.err), "wrong kind for %v", tc.err)
	}
}

func TestClassifyUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("sending final offer: %w", ErrFinalOfferAlreadyExists)
	assert.Equal(t, KindConflict, Classify(wrapped))

	wrappedProvider := fmt.Errorf("executing resolution: %w",
		&ProviderError{Op: "refund", Err: errors.New("timeout")})
	assert.Equal(t, KindExternal, Classify(wrappedProvider))
}

func TestProviderErrorUnwrap(t *testing.T) {
	inner := errors.New("stripe unavailable")
	err := &ProviderError{Op: "refund", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "refund")
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := &NotFoundError{Resource: "cancellation case"}
	assert.Equal(t, "cancellation case not found", err.Error())
}
