package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"gorm.io/gorm"
)

// Totals splits the filtered expenses by settlement.
type Totals struct {
	Settled decimal.Decimal
	Pending decimal.Decimal
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Expense, error)
	List(ctx context.Context, db *gorm.DB, f filter.Filter, page pagination.Page) ([]Expense, error)
	Count(ctx context.Context, db *gorm.DB, f filter.Filter) (int64, error)
	Totals(ctx context.Context, db *gorm.DB, f filter.Filter) (Totals, error)
	MarkSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)
}

type CreateExpenseRequest struct {
	EventID       snowflake.ID
	Description   string
	Amount        decimal.Decimal
	PaymentMethod string
	ExpenseDate   time.Time
	Actor         string
}

type ListExpenseResponse struct {
	Expenses []Expense `json:"expenses"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

type Service interface {
	Create(ctx context.Context, req CreateExpenseRequest) (*Expense, error)
	Get(ctx context.Context, id snowflake.ID) (*Expense, error)
	List(ctx context.Context, f filter.Filter, page pagination.Page) (ListExpenseResponse, error)
	// Settle is one-way. Settling a settled expense returns it unchanged.
	Settle(ctx context.Context, id snowflake.ID, actor string) (*Expense, error)
	Totals(ctx context.Context, f filter.Filter) (Totals, error)
}
