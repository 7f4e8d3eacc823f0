package catalog

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSQLCatalogReadsPricing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:catalog_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&PricingRecord{}))

	deposit := decimal.RequireFromString("50")
	require.NoError(t, db.Create(&PricingRecord{
		OrderCode:        "EV-1",
		EventID:          7,
		FinalPrice:       decimal.RequireFromString("300"),
		PaymentMode:      "balance_due",
		MinDepositAmount: &deposit,
	}).Error)

	c := NewSQL(db)
	pricing, err := c.GetRegistrationPricing(context.Background(), " EV-1 ")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentModeBalanceDue, pricing.PaymentMode)
	assert.True(t, pricing.FinalPrice.Equal(decimal.RequireFromString("300")))
	require.NotNil(t, pricing.MinDepositAmount)
	assert.True(t, pricing.MinDepositAmount.Equal(deposit))
	assert.Nil(t, pricing.MaxPaymentCount)

	_, err = c.GetRegistrationPricing(context.Background(), "EV-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
