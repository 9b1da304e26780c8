// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/artime/artime-backend/internal/models"
)

// Typed errors raised by the booking core. Handlers map kinds to HTTP status;
// services never swallow these.
var (
	// Validation: input or current state fails a precondition.
	ErrNoAmountToClose     = errors.New("no positive amount resolvable to close the booking")
	ErrInvalidRefundAmount = errors.New("refund amount is invalid for the resolution type")
	ErrNotCancellable      = errors.New("booking is not in a cancellable status")
	ErrAmountMismatch      = errors.New("reported amount does not match the milestone amount")
	ErrNotPayable          = errors.New("booking is not in a payable status")
	ErrNotCompletable      = errors.New("booking cannot be completed before its start date")
	ErrNotResolved         = errors.New("cancellation case has no resolution yet")
	ErrNothingToExecute    = errors.New("resolution carries no refund to execute")
	ErrCounterpartyMissing = errors.New("exactly one of venue or promoter must be set")
	ErrUserExists          = errors.New("an account with this email or username already exists")

	// Authorization: the actor lacks standing.
	ErrNotYourTurn            = errors.New("it is not your side's turn to respond")
	ErrHandledByOtherParty    = errors.New("booking is handled by another representative of the artist side")
	ErrManagerNotRepresenting = errors.New("manager has no active representation for this artist")
	ErrForbiddenRole          = errors.New("role is not allowed to perform this action")
	ErrNotParticipant         = errors.New("user is not a party to this booking")
	ErrCannotRejectOwnOffer   = errors.New("cannot reject your own proposal")

	// Conflict and idempotency guards: first successful writer wins.
	ErrFinalOfferAlreadyExists = errors.New("a final offer already exists for this booking")
	ErrAlreadyCancelled        = errors.New("an active cancellation already exists for this booking")
	ErrAlreadyResolved         = errors.New("cancellation case is already resolved")
	ErrAlreadyExecuted         = errors.New("economic execution already recorded for this case")
	ErrSplitAlreadyFrozen      = errors.New("split summary already frozen for this booking")
	ErrConcurrentUpdate        = errors.New("booking was modified concurrently, retry")
)

// NotFoundError marks a lookup miss for a named resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ProviderError wraps a payment-provider failure. It is propagated unmodified
// so the operation can be retried; nothing is persisted when it occurs.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthorization
	KindConflict
	KindNotFound
	KindExternal
)

// Classify maps a core error to its taxonomy kind for HTTP status mapping.
func Classify(err error) ErrorKind {
	var invalidTransition *models.InvalidTransitionError
	var providerErr *ProviderError
	var notFound *NotFoundError

	switch {
	case errors.As(err, &invalidTransition),
		errors.Is(err, ErrNoAmountToClose),
		errors.Is(err, ErrInvalidRefundAmount),
		errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ErrNotPayable),
		errors.Is(err, ErrNotCompletable),
		errors.Is(err, ErrNotResolved),
		errors.Is(err, ErrNothingToExecute),
		errors.Is(err, ErrCounterpartyMissing):
		return KindValidation

	case errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrHandledByOtherParty),
		errors.Is(err, ErrManagerNotRepresenting),
		errors.Is(err, ErrForbiddenRole),
		errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrCannotRejectOwnOffer):
		return KindAuthorization

	case errors.Is(err, ErrFinalOfferAlreadyExists),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyResolved),
		errors.Is(err, ErrAlreadyExecuted),
		errors.Is(err, ErrSplitAlreadyFrozen),
		errors.Is(err, ErrConcurrentUpdate),
		errors.Is(err, ErrUserExists):
		return KindConflict

	case errors.As(err, &notFound):
		return KindNotFound

	case errors.As(err, &providerErr):
		return KindExternal
	}

	return KindInternal
}
