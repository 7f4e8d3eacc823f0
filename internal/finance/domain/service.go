package domain

import (
	"context"

	expensedomain "github.com/smallbiznis/eventledger/internal/expense/domain"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	ListEntries(ctx context.Context, db *gorm.DB, f filter.Filter, page *pagination.Page) ([]EntryRow, error)
	CountEntries(ctx context.Context, db *gorm.DB, f filter.Filter) (int64, error)
	// EachEntry streams every matching row in ledger order.
	EachEntry(ctx context.Context, db *gorm.DB, f filter.Filter, fn func(EntryRow) error) error
}

// Aggregator is read-only over the ledger and expenses.
type Aggregator interface {
	Summarize(ctx context.Context, q Query) (*Summary, error)
	ListEntries(ctx context.Context, q Query) (*EntryPage, error)
	ListExpenses(ctx context.Context, q Query) (expensedomain.ListExpenseResponse, error)
}
