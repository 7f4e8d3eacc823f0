package domain

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/registration/status"
)

// Tally folds a ledger into the inputs of the status projection.
// PaidTotal only counts confirmed entries.
func Tally(payments []Payment) (decimal.Decimal, status.Attempts) {
	paid := decimal.Zero
	var attempts status.Attempts
	for _, p := range payments {
		switch p.Status {
		case StatusPending:
			attempts.Pending++
		case StatusConfirmed:
			attempts.Confirmed++
			paid = paid.Add(p.Amount)
		case StatusDenied:
			attempts.Denied++
		case StatusRefunded:
			attempts.Refunded++
		}
	}
	return paid, attempts
}

// AcceptedCount is the number of entries that count against maxPaymentCount.
func AcceptedCount(payments []Payment) int {
	n := 0
	for _, p := range payments {
		if p.Status != StatusDenied {
			n++
		}
	}
	return n
}
