package domain

import "fmt"

// Validate checks catalog pricing before it is copied onto a registration.
func (p Pricing) Validate() error {
	if p.FinalPrice.IsNegative() {
		return fmt.Errorf("%w: final price %s is negative", ErrInvalidPricing, p.FinalPrice.StringFixed(2))
	}
	if !p.FinalPrice.Equal(p.FinalPrice.Round(2)) {
		return fmt.Errorf("%w: final price has more than two decimals", ErrInvalidPricing)
	}
	if !p.PaymentMode.Valid() {
		return fmt.Errorf("%w: payment mode %q", ErrInvalidPricing, p.PaymentMode)
	}
	if p.MinDepositAmount != nil {
		if p.MinDepositAmount.IsNegative() || p.MinDepositAmount.GreaterThan(p.FinalPrice) {
			return fmt.Errorf("%w: min deposit %s outside 0..%s", ErrInvalidPricing,
				p.MinDepositAmount.StringFixed(2), p.FinalPrice.StringFixed(2))
		}
	}
	if p.MaxPaymentCount != nil && *p.MaxPaymentCount < 1 {
		return fmt.Errorf("%w: max payment count %d", ErrInvalidPricing, *p.MaxPaymentCount)
	}
	return nil
}
