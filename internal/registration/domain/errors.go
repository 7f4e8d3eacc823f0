package domain

import "errors"

var (
	ErrNotFound           = errors.New("registration_not_found")
	ErrInvalidOrderCode   = errors.New("invalid_order_code")
	ErrInvalidPricing     = errors.New("invalid_pricing")
	ErrAlreadyOpen        = errors.New("registration_already_open")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrRegistrationClosed = errors.New("registration_closed")
)
