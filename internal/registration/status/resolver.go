package status

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/registration/domain"
)

var ErrInvalidTransition = domain.ErrInvalidTransition

// Attempts counts ledger entries by payment status.
type Attempts struct {
	Pending   int
	Confirmed int
	Denied    int
	Refunded  int
}

func (a Attempts) Total() int {
	return a.Pending + a.Confirmed + a.Denied + a.Refunded
}

// Snapshot is everything the projection depends on.
type Snapshot struct {
	Current    domain.Status
	Mode       domain.PaymentMode
	FinalPrice decimal.Decimal
	MinDeposit *decimal.Decimal
	PaidTotal  decimal.Decimal
	Attempts   Attempts
	// Reopen lets an expired registration leave expired.
	Reopen bool
}

// Resolve derives the registration status. It is a pure function of the
// snapshot: terminal statuses are kept, expired is kept unless Reopen is set.
func Resolve(s Snapshot) domain.Status {
	if s.Current.Terminal() {
		return s.Current
	}
	if s.Current == domain.StatusExpired && !s.Reopen {
		return domain.StatusExpired
	}

	paid := s.PaidTotal
	if !paid.IsPositive() {
		if !s.FinalPrice.IsPositive() && s.Attempts.Total() == 0 {
			return domain.StatusConfirmed
		}
		if s.Attempts.Denied > 0 && s.Attempts.Denied == s.Attempts.Total() {
			return domain.StatusDenied
		}
		return domain.StatusPending
	}

	if paid.GreaterThanOrEqual(s.FinalPrice) {
		return domain.StatusConfirmed
	}
	if s.Mode != domain.PaymentModeBalanceDue {
		return domain.StatusPending
	}

	threshold := s.FinalPrice
	if s.MinDeposit != nil {
		threshold = *s.MinDeposit
	}
	if paid.GreaterThanOrEqual(threshold) {
		return domain.StatusPartial
	}
	return domain.StatusPending
}

// TransitionError names the current and requested states of a rejected change.
type TransitionError struct {
	From domain.Status
	To   domain.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: registration %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// EnsureCanMarkTerminal guards the only direct status setter.
func EnsureCanMarkTerminal(current, target domain.Status) error {
	if !target.Terminal() {
		return &TransitionError{From: current, To: target}
	}
	if current.Terminal() {
		return &TransitionError{From: current, To: target}
	}
	return nil
}

// EnsureOpen rejects ledger writes on a closed registration.
func EnsureOpen(current domain.Status) error {
	if current.Terminal() {
		return domain.ErrRegistrationClosed
	}
	return nil
}

func IsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
