// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserNotFound       = "auth.user_not_found"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthPasswordResetSent  = "auth.password_reset_sent"
	KeyAuthPasswordResetDone  = "auth.password_reset_done"

	// User Management
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"
	KeyUserSuspended      = "user.suspended"

	// Bookings
	KeyBookingCreated           = "booking.created"
	KeyBookingPublished         = "booking.published"
	KeyBookingNotFound          = "booking.not_found"
	KeyBookingAccepted          = "booking.accepted"
	KeyBookingRejected          = "booking.rejected"
	KeyBookingCancelled         = "booking.cancelled"
	KeyBookingCompleted         = "booking.completed"
	KeyBookingInvalidTransition = "booking.invalid_transition"

	// Negotiation
	KeyNegotiationMessageSent    = "negotiation.message_sent"
	KeyNegotiationNotYourTurn    = "negotiation.not_your_turn"
	KeyNegotiationHandledByOther = "negotiation.handled_by_other"
	KeyNegotiationFinalOfferSent = "negotiation.final_offer_sent"
	KeyNegotiationFinalOfferDup  = "negotiation.final_offer_exists"

	// Cancellations
	KeyCancellationOpened   = "cancellation.opened"
	KeyCancellationResolved = "cancellation.resolved"
	KeyCancellationExecuted = "cancellation.executed"
	KeyCancellationNotFound = "cancellation.not_found"

	// Contracts
	KeyContractGenerated = "contract.generated"
	KeyContractSigned    = "contract.signed"
	KeyContractNotFound  = "contract.not_found"

	// Payments
	KeyPaymentSuccess       = "payment.success"
	KeyPaymentFailed        = "payment.failed"
	KeyPaymentPending       = "payment.pending"
	KeyPaymentRefunded      = "payment.refunded"
	KeyPaymentInvalidAmount = "payment.invalid_amount"
	KeyMilestoneNotFound    = "milestone.not_found"

	// Admin
	KeyAdminActionSuccess = "admin.action_success"
	KeyAdminAccessDenied  = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyValidationTooShort = "validation.too_short"
	KeyValidationTooLong  = "validation.too_long"
	KeyValidationEmail    = "validation.invalid_email"
	KeyValidationPassword = "validation.invalid_password"

	// Notifications
	KeyNotificationSent   = "notification.sent"
	KeyNotificationFailed = "notification.failed"
)
