package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
)

// Evaluate splits the confirmed money on a registration into what the
// gateway can refund and what needs reconciling by hand.
func Evaluate(reg *regdomain.Registration, payments []paymentdomain.Payment) Plan {
	plan := Plan{
		RegistrationID:  reg.ID,
		RefundableTotal: decimal.Zero,
		RetainedTotal:   decimal.Zero,
	}
	for _, p := range payments {
		if p.Status != paymentdomain.StatusConfirmed || !p.Amount.IsPositive() {
			continue
		}
		if Refundable(p) {
			plan.RefundablePayments = append(plan.RefundablePayments, p)
			plan.RefundableTotal = plan.RefundableTotal.Add(p.Amount)
			continue
		}
		plan.RetainedPayments = append(plan.RetainedPayments, p)
		plan.RetainedTotal = plan.RetainedTotal.Add(p.Amount)
	}
	plan.NeedsRefund = len(plan.RefundablePayments) > 0
	plan.NonRefundableNote = retainedNote(plan.RetainedPayments, plan.RetainedTotal)
	return plan
}

// Refundable reports whether the gateway can return this payment.
func Refundable(p paymentdomain.Payment) bool {
	return p.Status == paymentdomain.StatusConfirmed && p.Amount.IsPositive() && p.GatewayMediated()
}

// Outstanding reports whether a payment still blocks finalization.
func Outstanding(p paymentdomain.Payment) bool {
	return Refundable(p) && p.RefundState != paymentdomain.RefundStateManualFollowUp
}

func retainedNote(retained []paymentdomain.Payment, total decimal.Decimal) string {
	if len(retained) == 0 {
		return ""
	}
	seen := map[string]struct{}{}
	methods := make([]string, 0, len(retained))
	for _, p := range retained {
		m := string(p.Method)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		methods = append(methods, m)
	}
	sort.Strings(methods)

	noun := "payment"
	if len(retained) > 1 {
		noun = "payments"
	}
	return fmt.Sprintf("%d offline %s totaling %s (%s) must be reconciled manually",
		len(retained), noun, total.StringFixed(2), strings.Join(methods, ", "))
}
