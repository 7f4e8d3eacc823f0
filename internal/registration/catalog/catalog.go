package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/registration/domain"
	"gorm.io/gorm"
)

// PricingRecord is the catalog's read model for one checkout.
type PricingRecord struct {
	OrderCode        string           `gorm:"primaryKey;type:text"`
	EventID          snowflake.ID     `gorm:"not null"`
	FinalPrice       decimal.Decimal  `gorm:"type:numeric(12,2);not null"`
	PaymentMode      string           `gorm:"type:text;not null"`
	MinDepositAmount *decimal.Decimal `gorm:"type:numeric(12,2)"`
	MaxPaymentCount  *int
}

func (PricingRecord) TableName() string { return "registration_pricing" }

// SQL reads pricing the event catalog publishes into registration_pricing.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) domain.PricingCatalog {
	return &SQL{db: db}
}

func (c *SQL) GetRegistrationPricing(ctx context.Context, orderCode string) (domain.Pricing, error) {
	var row PricingRecord
	err := c.db.WithContext(ctx).Raw(
		`SELECT order_code, event_id, final_price, payment_mode, min_deposit_amount, max_payment_count
		 FROM registration_pricing
		 WHERE order_code = ?`,
		strings.TrimSpace(orderCode),
	).Scan(&row).Error
	if err != nil {
		return domain.Pricing{}, err
	}
	if row.OrderCode == "" {
		return domain.Pricing{}, domain.ErrNotFound
	}
	return domain.Pricing{
		EventID:          row.EventID,
		FinalPrice:       row.FinalPrice,
		PaymentMode:      domain.PaymentMode(strings.ToUpper(row.PaymentMode)),
		MinDepositAmount: row.MinDepositAmount,
		MaxPaymentCount:  row.MaxPaymentCount,
	}, nil
}

// Static serves fixed pricing, used by tests and local runs.
type Static struct {
	mu     sync.RWMutex
	prices map[string]domain.Pricing
}

func NewStatic() *Static {
	return &Static{prices: map[string]domain.Pricing{}}
}

func (c *Static) Set(orderCode string, pricing domain.Pricing) {
	c.mu.Lock()
	c.prices[orderCode] = pricing
	c.mu.Unlock()
}

func (c *Static) GetRegistrationPricing(_ context.Context, orderCode string) (domain.Pricing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pricing, ok := c.prices[orderCode]
	if !ok {
		return domain.Pricing{}, domain.ErrNotFound
	}
	return pricing, nil
}
