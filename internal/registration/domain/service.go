package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingCatalog is the read-only event catalog.
type PricingCatalog interface {
	GetRegistrationPricing(ctx context.Context, orderCode string) (Pricing, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reg *Registration) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Registration, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Registration, error)
	FindByOrderCode(ctx context.Context, db *gorm.DB, orderCode string) (*Registration, error)
	UpdateProjection(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, paidTotal decimal.Decimal, now time.Time) error
	UpdatePricing(ctx context.Context, db *gorm.DB, id snowflake.ID, pricing Pricing, now time.Time) error
	UpdateCancellationState(ctx context.Context, db *gorm.DB, id snowflake.ID, state CancellationState, now time.Time) error
	MarkTerminal(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now time.Time) error
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
	ListExpirable(ctx context.Context, db *gorm.DB, createdBefore time.Time, limit int) ([]snowflake.ID, error)
}

type Service interface {
	Open(ctx context.Context, req OpenRequest) (*Registration, error)
	Get(ctx context.Context, id snowflake.ID) (*Registration, error)
	GetByOrderCode(ctx context.Context, orderCode string) (*Registration, error)
}
