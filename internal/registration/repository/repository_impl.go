package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/smallbiznis/eventledger/pkg/db"
	"gorm.io/gorm"
)

const registrationColumns = `id, order_code, event_id, payment_mode, final_price, min_deposit_amount,
	 max_payment_count, status, paid_total, cancellation_state, created_at, updated_at,
	 expired_at, closed_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert returns false when the order code is already registered.
func (r *repo) Insert(ctx context.Context, conn *gorm.DB, reg *domain.Registration) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`INSERT INTO registrations (
			id, order_code, event_id, payment_mode, final_price, min_deposit_amount,
			max_payment_count, status, paid_total, cancellation_state, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_code) DO NOTHING`,
		reg.ID,
		reg.OrderCode,
		reg.EventID,
		reg.PaymentMode,
		reg.FinalPrice,
		reg.MinDepositAmount,
		reg.MaxPaymentCount,
		reg.Status,
		reg.PaidTotal,
		reg.CancellationState,
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Registration, error) {
	return r.findOne(ctx, conn, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Registration, error) {
	return r.findOne(ctx, tx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`+db.ForUpdate(tx), id)
}

func (r *repo) FindByOrderCode(ctx context.Context, conn *gorm.DB, orderCode string) (*domain.Registration, error) {
	return r.findOne(ctx, conn, `SELECT `+registrationColumns+` FROM registrations WHERE order_code = ?`, orderCode)
}

func (r *repo) findOne(ctx context.Context, conn *gorm.DB, query string, args ...any) (*domain.Registration, error) {
	var reg domain.Registration
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&reg).Error; err != nil {
		return nil, err
	}
	if reg.ID == 0 {
		return nil, nil
	}
	return &reg, nil
}

func (r *repo) UpdateProjection(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.Status, paidTotal decimal.Decimal, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE registrations
		 SET status = ?, paid_total = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ?`,
		status,
		paidTotal,
		now,
		id,
		[]domain.Status{domain.StatusCancelled, domain.StatusRefunded},
	).Error
}

func (r *repo) UpdatePricing(ctx context.Context, conn *gorm.DB, id snowflake.ID, pricing domain.Pricing, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE registrations
		 SET final_price = ?, payment_mode = ?, min_deposit_amount = ?, max_payment_count = ?, updated_at = ?
		 WHERE id = ?`,
		pricing.FinalPrice,
		pricing.PaymentMode,
		pricing.MinDepositAmount,
		pricing.MaxPaymentCount,
		now,
		id,
	).Error
}

func (r *repo) UpdateCancellationState(ctx context.Context, conn *gorm.DB, id snowflake.ID, state domain.CancellationState, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE registrations SET cancellation_state = ?, updated_at = ? WHERE id = ?`,
		state,
		now,
		id,
	).Error
}

func (r *repo) MarkTerminal(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.Status, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE registrations
		 SET status = ?, cancellation_state = ?, closed_at = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		domain.CancellationNone,
		now,
		now,
		id,
	).Error
}

// MarkExpired only moves a registration that is still pending with nothing paid.
func (r *repo) MarkExpired(ctx context.Context, conn *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE registrations
		 SET status = ?, expired_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ? AND paid_total = 0`,
		domain.StatusExpired,
		now,
		now,
		id,
		[]domain.Status{domain.StatusPending, domain.StatusDenied},
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListExpirable(ctx context.Context, conn *gorm.DB, createdBefore time.Time, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []snowflake.ID
	err := conn.WithContext(ctx).Raw(
		`SELECT id FROM registrations
		 WHERE status IN ? AND paid_total = 0 AND created_at < ?
		 ORDER BY id
		 LIMIT ?`,
		[]domain.Status{domain.StatusPending, domain.StatusDenied},
		createdBefore,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
