// Package fee prices the gateway processing fee of a payment against a
// pinned rate snapshot. Everything here is pure.
package fee

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/pkg/money"
)

var ErrMisconfiguredRate = errors.New("misconfigured_rate")

const (
	MethodPix        = "pix"
	MethodCreditCard = "credit_card"
)

const (
	IssuePixRateMissing      = "pix_rate_missing"
	IssueCardRateMissing     = "card_rate_missing"
	IssueMinimumExceedsGross = "minimum_exceeds_gross"
	IssueFeeExceedsGross     = "fee_exceeds_gross"
)

type Input struct {
	Gross        decimal.Decimal
	Method       string
	Brand        string
	Installments int
}

// Breakdown is the priced result for one payment.
type Breakdown struct {
	Gross          decimal.Decimal `json:"gross_amount"`
	PercentApplied decimal.Decimal `json:"fee_percent_applied"`
	FixedApplied   decimal.Decimal `json:"fixed_fee_applied"`
	MinimumApplied bool            `json:"minimum_applied"`
	Fee            decimal.Decimal `json:"fee_amount"`
	Net            decimal.Decimal `json:"net_amount"`
	RateVersion    int64           `json:"rate_version"`
	Misconfigured  bool            `json:"misconfigured"`
	Issue          string          `json:"issue,omitempty"`
}

// Err reports the misconfiguration, if any, as ErrMisconfiguredRate.
func (b Breakdown) Err() error {
	if !b.Misconfigured {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMisconfiguredRate, b.Issue)
}

// Compute applies the rate table to a single payment:
//
//	pix:          round2(gross*pct/100) + fixed
//	credit_card:  max(round2(gross*(mdr+rr)/100), minimum)
//	other:        0
//
// The fee never exceeds gross, so Net+Fee == Gross always holds.
func Compute(in Input, rates feeratedomain.RateTable) Breakdown {
	out := Breakdown{
		Gross:          in.Gross,
		PercentApplied: decimal.Zero,
		FixedApplied:   decimal.Zero,
		Fee:            decimal.Zero,
		Net:            in.Gross,
	}
	if !in.Gross.IsPositive() {
		return out
	}

	switch in.Method {
	case MethodPix:
		computePix(&out, rates)
	case MethodCreditCard:
		computeCard(&out, in, rates)
	default:
		return out
	}

	if out.Fee.GreaterThan(in.Gross) {
		if !out.Misconfigured {
			out.Misconfigured = true
			if out.MinimumApplied {
				out.Issue = IssueMinimumExceedsGross
			} else {
				out.Issue = IssueFeeExceedsGross
			}
		}
		out.Fee = in.Gross
	}
	out.Net = in.Gross.Sub(out.Fee)
	return out
}

func computePix(out *Breakdown, rates feeratedomain.RateTable) {
	if rates.Pix == nil {
		out.Misconfigured = true
		out.Issue = IssuePixRateMissing
		return
	}
	out.PercentApplied = rates.Pix.Percent
	out.FixedApplied = rates.Pix.FixedFee
	out.Fee = money.Percent(out.Gross, rates.Pix.Percent).Add(rates.Pix.FixedFee)
}

func computeCard(out *Breakdown, in Input, rates feeratedomain.RateTable) {
	installments := in.Installments
	if installments < 1 {
		installments = 1
	}
	brand, hasBrand := rates.Brand(feeratedomain.NormalizeBrand(in.Brand))

	mdr, ok := resolveMDR(brand, hasBrand, installments, rates)
	if !ok {
		out.Misconfigured = true
		out.Issue = IssueCardRateMissing
	}
	rr, _ := rates.RR(installments)
	combined := mdr.Add(rr)
	computed := money.Percent(out.Gross, combined)

	minimum := decimal.Zero
	switch {
	case hasBrand && brand.MinimumFee != nil:
		minimum = *brand.MinimumFee
	case rates.CreditCardDefault != nil:
		minimum = rates.CreditCardDefault.MinimumFee
	}

	out.PercentApplied = combined
	out.Fee = computed
	if minimum.GreaterThan(computed) {
		out.Fee = minimum
		out.FixedApplied = minimum
		out.MinimumApplied = true
	}
}

// resolveMDR walks brand installment rate, brand default, global default.
func resolveMDR(brand feeratedomain.BrandRate, hasBrand bool, installments int, rates feeratedomain.RateTable) (decimal.Decimal, bool) {
	if hasBrand {
		if pct, ok := brand.Installment(installments); ok {
			return pct, true
		}
		if brand.DefaultPercent != nil {
			return *brand.DefaultPercent, true
		}
	}
	if rates.CreditCardDefault != nil {
		return rates.CreditCardDefault.Percent, true
	}
	return decimal.Zero, false
}

// Calculator pins one rate snapshot for the duration of a report or
// cancellation.
type Calculator struct {
	snapshot *feeratedomain.Snapshot
}

func NewCalculator(snapshot *feeratedomain.Snapshot) Calculator {
	return Calculator{snapshot: snapshot}
}

func (c Calculator) Version() int64 {
	if c.snapshot == nil {
		return 0
	}
	return c.snapshot.Version
}

func (c Calculator) Compute(in Input) Breakdown {
	var table feeratedomain.RateTable
	if c.snapshot != nil {
		table = c.snapshot.Table
	}
	out := Compute(in, table)
	out.RateVersion = c.Version()
	return out
}
