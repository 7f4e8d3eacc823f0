package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/eventledger/internal/cancellation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertAttempt(ctx context.Context, db *gorm.DB, attempt *domain.RefundAttempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO refund_attempts (
			id, registration_id, payment_id, correlation_id, amount, outcome,
			refund_id, error_code, actor, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.RegistrationID,
		attempt.PaymentID,
		attempt.CorrelationID,
		attempt.Amount,
		attempt.Outcome,
		attempt.RefundID,
		attempt.ErrorCode,
		attempt.Actor,
		attempt.Note,
		attempt.CreatedAt,
	).Error
}

func (r *repo) ListAttempts(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) ([]domain.RefundAttempt, error) {
	var items []domain.RefundAttempt
	err := db.WithContext(ctx).Raw(
		`SELECT id, registration_id, payment_id, correlation_id, amount, outcome,
		 refund_id, error_code, actor, note, created_at
		 FROM refund_attempts
		 WHERE registration_id = ?
		 ORDER BY created_at ASC, id ASC`,
		registrationID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
