package repository

import (
	"context"

	"github.com/smallbiznis/eventledger/internal/finance/domain"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"gorm.io/gorm"
)

const entryColumns = `p.id AS payment_id, p.registration_id, r.order_code, r.event_id,
	 p.channel, p.method, p.card_brand, p.installments, p.amount, p.confirmed_at, p.created_at`

var entryOrder = filter.EntryDate + " ASC, p.id ASC"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// scope selects confirmed, non-zero ledger rows. Refunded payments are out.
func (r *repo) scope(ctx context.Context, db *gorm.DB, f filter.Filter) *gorm.DB {
	stmt := db.WithContext(ctx).
		Table("payments AS p").
		Joins("JOIN registrations AS r ON r.id = p.registration_id").
		Where("p.status = ?", paymentdomain.StatusConfirmed).
		Where("p.amount > ?", 0)
	return f.Apply(stmt, filter.EntryColumns)
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, f filter.Filter, page *pagination.Page) ([]domain.EntryRow, error) {
	stmt := r.scope(ctx, db, f).
		Select(entryColumns).
		Order(entryOrder)
	if page != nil {
		stmt = stmt.Limit(page.Limit()).Offset(page.Offset())
	}

	var rows []domain.EntryRow
	if err := stmt.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountEntries(ctx context.Context, db *gorm.DB, f filter.Filter) (int64, error) {
	var total int64
	if err := r.scope(ctx, db, f).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) EachEntry(ctx context.Context, db *gorm.DB, f filter.Filter, fn func(domain.EntryRow) error) error {
	rows, err := r.scope(ctx, db, f).
		Select(entryColumns).
		Order(entryOrder).
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.EntryRow
		if err := db.ScanRows(rows, &row); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}
