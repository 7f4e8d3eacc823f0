package guard

import (
	"fmt"

	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
)

// TransitionError names the current and requested payment states.
type TransitionError struct {
	From paymentdomain.Status
	To   paymentdomain.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: payment %s -> %s", paymentdomain.ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return paymentdomain.ErrInvalidTransition }

var allowed = map[paymentdomain.Status][]paymentdomain.Status{
	paymentdomain.StatusPending:   {paymentdomain.StatusConfirmed, paymentdomain.StatusDenied},
	paymentdomain.StatusConfirmed: {paymentdomain.StatusRefunded},
}

// EnsureTransition accepts only pending->confirmed, pending->denied and
// confirmed->refunded. A repeat of the current status is a duplicate.
func EnsureTransition(from, to paymentdomain.Status) error {
	if from == to {
		return paymentdomain.ErrDuplicateCallback
	}
	for _, next := range allowed[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// EnsureInsertStatus limits the status a new entry may start in.
func EnsureInsertStatus(channel paymentdomain.Channel, status paymentdomain.Status) error {
	switch status {
	case paymentdomain.StatusPending, paymentdomain.StatusConfirmed:
		return nil
	case paymentdomain.StatusDenied:
		if channel == paymentdomain.ChannelOnline {
			return nil
		}
	}
	return &TransitionError{From: "", To: status}
}

// EnsureDeletable allows removing only pending offline entries.
func EnsureDeletable(p paymentdomain.Payment) error {
	if p.Channel != paymentdomain.ChannelOffline || p.Status != paymentdomain.StatusPending {
		return fmt.Errorf("%w: %s payment is %s", paymentdomain.ErrManualOnlyDeletion, p.Channel, p.Status)
	}
	return nil
}
