package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for stored amounts.
const Scale = 2

var (
	hundred = decimal.NewFromInt(100)

	ErrInvalidAmount = errors.New("invalid_amount")
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// Percent applies pct (expressed as 12.5 for 12.5%) to amount and rounds once.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// Parse reads a decimal amount, rejecting blanks and values with more than two fractional digits.
func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !v.Equal(Round2(v)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return v, nil
}

// Sum folds amounts without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// Format renders an amount with exactly two decimals.
func Format(v decimal.Decimal) string {
	return v.StringFixed(Scale)
}
