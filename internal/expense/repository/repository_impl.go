package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/expense/domain"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"gorm.io/gorm"
)

const expenseColumns = `e.id, e.event_id, e.description, e.amount, e.payment_method, e.is_settled,
	 e.expense_date, e.settled_at, e.created_by, e.created_at, e.updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO expenses (
			id, event_id, description, amount, payment_method, is_settled,
			expense_date, settled_at, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.EventID,
		expense.Description,
		expense.Amount,
		expense.PaymentMethod,
		expense.IsSettled,
		expense.ExpenseDate,
		expense.SettledAt,
		expense.CreatedBy,
		expense.CreatedAt,
		expense.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Expense, error) {
	var item domain.Expense
	err := db.WithContext(ctx).Raw(
		`SELECT `+expenseColumns+` FROM expenses e WHERE e.id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) scope(ctx context.Context, db *gorm.DB, f filter.Filter) *gorm.DB {
	return f.Apply(db.WithContext(ctx).Table("expenses AS e"), filter.ExpenseColumns)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, f filter.Filter, page pagination.Page) ([]domain.Expense, error) {
	var items []domain.Expense
	err := r.scope(ctx, db, f).
		Select(expenseColumns).
		Order("e.expense_date DESC, e.id DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, f filter.Filter) (int64, error) {
	var total int64
	if err := r.scope(ctx, db, f).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Totals sums amounts in decimal rather than in SQL.
func (r *repo) Totals(ctx context.Context, db *gorm.DB, f filter.Filter) (domain.Totals, error) {
	totals := domain.Totals{Settled: decimal.Zero, Pending: decimal.Zero}
	rows, err := r.scope(ctx, db, f).Select("e.amount, e.is_settled").Rows()
	if err != nil {
		return totals, err
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			Amount    decimal.Decimal
			IsSettled bool
		}
		if err := db.ScanRows(rows, &row); err != nil {
			return totals, err
		}
		if row.IsSettled {
			totals.Settled = totals.Settled.Add(row.Amount)
		} else {
			totals.Pending = totals.Pending.Add(row.Amount)
		}
	}
	return totals, rows.Err()
}

// MarkSettled returns false when the expense was already settled.
func (r *repo) MarkSettled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE expenses SET is_settled = ?, settled_at = ?, updated_at = ? WHERE id = ? AND is_settled = ?`,
		true,
		now,
		now,
		id,
		false,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
