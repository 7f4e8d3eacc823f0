package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
pix:
  percent: 0.99
  fixedFee: 0
creditCard:
  default:
    percent: 3.49
    minimumFee: 0.50
  installmentPercent:
    2: 0.8
    3: 1.0
  brandRates:
    Visa:
      defaultPercent: 2.2
      minimumFee: 3.00
      installmentPercent:
        3: 2.5
    American Express:
      defaultPercent: 3.9
`

func TestDecodeYAMLBuildsTypedTable(t *testing.T) {
	table, err := DecodeYAML([]byte(sampleYAML))
	require.NoError(t, err)

	require.NotNil(t, table.Pix)
	assert.True(t, decimal.RequireFromString("0.99").Equal(table.Pix.Percent))
	require.NotNil(t, table.CreditCardDefault)
	assert.True(t, decimal.RequireFromString("0.50").Equal(table.CreditCardDefault.MinimumFee))

	rr, ok := table.RR(3)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("1.0").Equal(rr))

	visa, ok := table.Brand(NormalizeBrand("VISA"))
	require.True(t, ok)
	pct, ok := visa.Installment(3)
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("2.5").Equal(pct))

	_, ok = table.Brand("american-express")
	assert.True(t, ok)
	assert.Equal(t, []BrandKey{"american-express", "visa"}, table.BrandKeys())
}

func TestDecodeYAMLRejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"negative pix":         "pix: {percent: -1, fixedFee: 0}",
		"zero installments":    "creditCard: {installmentPercent: {0: 1.0}}",
		"unknown field":        "pix: {percent: 1, fixed: 0}",
		"duplicate brand":      "creditCard: {brandRates: {visa: {defaultPercent: 1}, VISA: {defaultPercent: 2}}}",
		"negative brand floor": "creditCard: {brandRates: {visa: {minimumFee: -3}}}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRateTable), err.Error())
		})
	}
}

func TestJSONRoundTripKeepsChecksum(t *testing.T) {
	table, err := DecodeYAML([]byte(sampleYAML))
	require.NoError(t, err)

	raw, err := EncodeJSON(table)
	require.NoError(t, err)
	decoded, err := DecodeJSON(raw)
	require.NoError(t, err)

	before, err := Checksum(table)
	require.NoError(t, err)
	after, err := Checksum(decoded)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCloneDoesNotShareMaps(t *testing.T) {
	table, err := DecodeYAML([]byte(sampleYAML))
	require.NoError(t, err)

	clone := table.Clone()
	clone.PerInstallment[3] = decimal.RequireFromString("9")
	*clone.PerBrand["visa"].DefaultPercent = decimal.RequireFromString("9")

	rr, _ := table.RR(3)
	assert.True(t, decimal.RequireFromString("1.0").Equal(rr))
	assert.True(t, decimal.RequireFromString("2.2").Equal(*table.PerBrand["visa"].DefaultPercent))
}

func TestNormalizeBrand(t *testing.T) {
	assert.Equal(t, BrandKey("visa"), NormalizeBrand(" Visa "))
	assert.Equal(t, BrandKey("american-express"), NormalizeBrand("American Express"))
	assert.Equal(t, BrandKey(""), NormalizeBrand("  "))
}
