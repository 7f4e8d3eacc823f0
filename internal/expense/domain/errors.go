package domain

import "errors"

var (
	ErrNotFound           = errors.New("expense_not_found")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidMethod      = errors.New("invalid_payment_method")
	ErrInvalidDate        = errors.New("invalid_expense_date")
)
