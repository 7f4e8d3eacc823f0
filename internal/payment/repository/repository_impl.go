package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/eventledger/internal/payment/domain"
	"gorm.io/gorm"
)

const paymentColumns = `id, registration_id, channel, method, status, amount, installments, card_brand,
	 external_reference, refund_state, recorded_by, note, confirmed_at, refunded_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert returns false when the external reference is already recorded.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, registration_id, channel, method, status, amount, installments, card_brand,
			external_reference, refund_state, recorded_by, note, confirmed_at, refunded_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_reference) DO NOTHING`,
		p.ID,
		p.RegistrationID,
		p.Channel,
		p.Method,
		p.Status,
		p.Amount,
		p.Installments,
		p.CardBrand,
		p.ExternalReference,
		p.RefundState,
		p.RecordedBy,
		p.Note,
		p.ConfirmedAt,
		p.RefundedAt,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
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

func (r *repo) FindByExternalReference(ctx context.Context, db *gorm.DB, ref string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE external_reference = ? LIMIT 1`,
		ref,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByRegistration(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE registration_id = ?
		 ORDER BY created_at ASC, id ASC`,
		registrationID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateStatus moves a payment only if it is still in the from status.
// Reaching refunded clears any refund bookkeeping.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	var res *gorm.DB
	switch to {
	case domain.StatusConfirmed:
		res = db.WithContext(ctx).Exec(
			`UPDATE payments SET status = ?, confirmed_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, now, id, from,
		)
	case domain.StatusRefunded:
		res = db.WithContext(ctx).Exec(
			`UPDATE payments SET status = ?, refunded_at = ?, refund_state = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, domain.RefundStateNone, now, id, from,
		)
	default:
		res = db.WithContext(ctx).Exec(
			`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, now, id, from,
		)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateRefundState(ctx context.Context, db *gorm.DB, id snowflake.ID, state domain.RefundState, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET refund_state = ?, updated_at = ? WHERE id = ?`,
		state,
		now,
		id,
	).Error
}

func (r *repo) DeletePendingOffline(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE id = ? AND channel = ? AND status = ?`,
		id,
		domain.ChannelOffline,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertCallback(ctx context.Context, db *gorm.DB, record *domain.CallbackRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payment_callbacks (
			id, provider, provider_event_id, payload, headers, received_at, processed_at, outcome
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		record.ID,
		record.Provider,
		record.ProviderEventID,
		record.Payload,
		record.Headers,
		record.ReceivedAt,
		record.ProcessedAt,
		record.Outcome,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindCallback(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*domain.CallbackRecord, error) {
	var item domain.CallbackRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, payload, headers, received_at, processed_at, outcome
		 FROM payment_callbacks
		 WHERE provider = ? AND provider_event_id = ?
		 LIMIT 1`,
		provider,
		providerEventID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListUnprocessedCallbacks(ctx context.Context, db *gorm.DB, provider string, limit int) ([]domain.CallbackRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []domain.CallbackRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, provider, provider_event_id, payload, headers, received_at, processed_at, outcome
		 FROM payment_callbacks
		 WHERE provider = ? AND processed_at IS NULL
		 ORDER BY received_at ASC, id ASC
		 LIMIT ?`,
		provider,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkCallbackProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome string, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_callbacks
		 SET processed_at = ?, outcome = ?
		 WHERE id = ?`,
		processedAt,
		outcome,
		id,
	).Error
}
