package domain

import "errors"

var (
	ErrNotFound              = errors.New("payment_not_found")
	ErrInvalidAttempt        = errors.New("invalid_payment_attempt")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrDuplicateCallback     = errors.New("duplicate_callback")
	ErrInvalidTransition     = errors.New("invalid_transition")
	ErrOverpaymentRejected   = errors.New("overpayment_rejected")
	ErrManualOnlyDeletion    = errors.New("manual_only_deletion")
	ErrRegistrationExpired   = errors.New("registration_expired")
	ErrReopenNotAllowed      = errors.New("reopen_not_allowed")
	ErrPaymentLimitReached   = errors.New("payment_limit_reached")
	ErrReferenceMismatch     = errors.New("reference_mismatch")
	ErrCancellationPending   = errors.New("cancellation_pending")
	ErrEmptyNote             = errors.New("empty_note")
	ErrInvalidProvider       = errors.New("invalid_provider")
	ErrProviderNotFound      = errors.New("provider_not_found")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrGatewayNotConfigured  = errors.New("gateway_not_configured")
)
