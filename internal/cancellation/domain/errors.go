package domain

import "errors"

var (
	ErrRefundFailed          = errors.New("refund_failed")
	ErrNotCancelling         = errors.New("cancellation_not_pending")
	ErrAlreadyCancelling     = errors.New("cancellation_already_pending")
	ErrNothingToRetry        = errors.New("nothing_to_retry")
	ErrPaymentNotOutstanding = errors.New("payment_not_outstanding")
)
