package fee

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func testRates() feeratedomain.RateTable {
	return feeratedomain.RateTable{
		Pix: &feeratedomain.PixRate{Percent: d("0.99"), FixedFee: d("0.10")},
		CreditCardDefault: &feeratedomain.CardRate{
			Percent:    d("3.49"),
			MinimumFee: d("0.50"),
		},
		PerInstallment: map[int]decimal.Decimal{
			2: d("0.8"),
			3: d("1.0"),
		},
		PerBrand: map[feeratedomain.BrandKey]feeratedomain.BrandRate{
			"visa": {
				DefaultPercent:     dp("2.2"),
				MinimumFee:         dp("3.00"),
				InstallmentPercent: map[int]decimal.Decimal{3: d("2.5")},
			},
			"elo": {
				InstallmentPercent: map[int]decimal.Decimal{2: d("3.1")},
			},
		},
	}
}

func TestComputeCreditCardBrandInstallmentPlusRR(t *testing.T) {
	out := Compute(Input{Gross: d("150.00"), Method: MethodCreditCard, Brand: "Visa", Installments: 3}, testRates())

	assert.True(t, d("3.5").Equal(out.PercentApplied), "combined percent %s", out.PercentApplied)
	assert.True(t, d("5.25").Equal(out.Fee), "fee %s", out.Fee)
	assert.True(t, d("144.75").Equal(out.Net), "net %s", out.Net)
	assert.False(t, out.MinimumApplied)
	assert.False(t, out.Misconfigured)
	assert.NoError(t, out.Err())
}

func TestComputeCreditCardFallbackChain(t *testing.T) {
	rates := testRates()

	tests := []struct {
		name         string
		brand        string
		installments int
		wantPercent  string
	}{
		{name: "brand default when installment missing", brand: "visa", installments: 1, wantPercent: "2.2"},
		{name: "brand default plus rr", brand: "VISA", installments: 2, wantPercent: "3.0"},
		{name: "global default when brand has only other installments", brand: "elo", installments: 1, wantPercent: "3.49"},
		{name: "brand installment", brand: "Elo", installments: 2, wantPercent: "3.9"},
		{name: "unknown brand uses global default", brand: "hipercard", installments: 3, wantPercent: "4.49"},
		{name: "no brand", brand: "", installments: 1, wantPercent: "3.49"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Compute(Input{Gross: d("1000.00"), Method: MethodCreditCard, Brand: tt.brand, Installments: tt.installments}, rates)
			assert.True(t, d(tt.wantPercent).Equal(out.PercentApplied), "percent %s", out.PercentApplied)
			assert.True(t, out.Net.Add(out.Fee).Equal(out.Gross))
		})
	}
}

func TestComputeCreditCardMinimumFee(t *testing.T) {
	// 2.2% of 50.00 is 1.10, below the visa minimum of 3.00
	out := Compute(Input{Gross: d("50.00"), Method: MethodCreditCard, Brand: "visa", Installments: 1}, testRates())
	assert.True(t, d("3.00").Equal(out.Fee))
	assert.True(t, d("47.00").Equal(out.Net))
	assert.True(t, out.MinimumApplied)

	// elo has no minimum, so the global one applies
	out = Compute(Input{Gross: d("10.00"), Method: MethodCreditCard, Brand: "elo", Installments: 1}, testRates())
	assert.True(t, d("0.50").Equal(out.Fee), "fee %s", out.Fee)
}

func TestComputePix(t *testing.T) {
	out := Compute(Input{Gross: d("123.45"), Method: MethodPix}, testRates())
	// round2(123.45 * 0.99 / 100) = round2(1.222155) = 1.22, plus 0.10
	assert.True(t, d("1.32").Equal(out.Fee), "fee %s", out.Fee)
	assert.True(t, d("122.13").Equal(out.Net))
	assert.True(t, d("0.10").Equal(out.FixedApplied))
}

func TestComputeOtherMethodsHaveNoFee(t *testing.T) {
	for _, method := range []string{"cash", "pos", "transfer", "manual", "boleto"} {
		out := Compute(Input{Gross: d("100.00"), Method: method}, testRates())
		assert.True(t, out.Fee.IsZero(), method)
		assert.True(t, d("100.00").Equal(out.Net), method)
	}
}

func TestComputeClampsWhenMinimumExceedsGross(t *testing.T) {
	out := Compute(Input{Gross: d("2.00"), Method: MethodCreditCard, Brand: "visa", Installments: 1}, testRates())

	assert.True(t, out.Misconfigured)
	assert.Equal(t, IssueMinimumExceedsGross, out.Issue)
	assert.True(t, out.Net.IsZero())
	assert.True(t, d("2.00").Equal(out.Fee))
	assert.True(t, errors.Is(out.Err(), ErrMisconfiguredRate))
}

func TestComputeFlagsMissingRates(t *testing.T) {
	out := Compute(Input{Gross: d("100.00"), Method: MethodPix}, feeratedomain.RateTable{})
	assert.True(t, out.Misconfigured)
	assert.Equal(t, IssuePixRateMissing, out.Issue)
	assert.True(t, out.Fee.IsZero())

	out = Compute(Input{Gross: d("100.00"), Method: MethodCreditCard, Brand: "visa", Installments: 1}, feeratedomain.RateTable{})
	assert.True(t, out.Misconfigured)
	assert.Equal(t, IssueCardRateMissing, out.Issue)
	assert.True(t, d("100.00").Equal(out.Net))
}

func TestComputeIsDeterministicAndExact(t *testing.T) {
	rates := testRates()
	grosses := []string{"0.01", "0.99", "10.00", "33.33", "99.99", "150.00", "1234.56", "100000.01"}
	for _, g := range grosses {
		for _, installments := range []int{1, 2, 3, 12} {
			in := Input{Gross: d(g), Method: MethodCreditCard, Brand: "visa", Installments: installments}
			first := Compute(in, rates)
			second := Compute(in, rates)
			require.True(t, first.Fee.Equal(second.Fee))
			require.True(t, first.Net.Equal(second.Net))
			require.True(t, first.Net.Add(first.Fee).Equal(first.Gross), "gross %s installments %d", g, installments)
			require.False(t, first.Net.IsNegative())
			require.True(t, first.Fee.Equal(first.Fee.Round(2)))
		}
	}
}

func TestCalculatorPinsSnapshotVersion(t *testing.T) {
	snap := &feeratedomain.Snapshot{Version: 7, Table: testRates()}
	calc := NewCalculator(snap)

	out := calc.Compute(Input{Gross: d("150.00"), Method: MethodCreditCard, Brand: "visa", Installments: 3})
	assert.Equal(t, int64(7), out.RateVersion)
	assert.True(t, d("5.25").Equal(out.Fee))

	empty := NewCalculator(nil)
	out = empty.Compute(Input{Gross: d("10.00"), Method: "cash"})
	assert.Equal(t, int64(0), out.RateVersion)
	assert.True(t, out.Fee.IsZero())
}
