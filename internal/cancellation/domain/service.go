package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertAttempt(ctx context.Context, db *gorm.DB, attempt *RefundAttempt) error
	ListAttempts(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) ([]RefundAttempt, error)
}

// Service cancels registrations. Confirm and RetryRefunds return a Result
// together with ErrRefundFailed when some refund is still unresolved.
type Service interface {
	Evaluate(ctx context.Context, registrationID snowflake.ID) (*Plan, error)
	Confirm(ctx context.Context, registrationID snowflake.ID, actor string) (*Result, error)
	RetryRefunds(ctx context.Context, registrationID snowflake.ID, actor string) (*Result, error)
	MarkManualFollowUp(ctx context.Context, paymentID snowflake.ID, actor, note string) (*Result, error)
	ListAttempts(ctx context.Context, registrationID snowflake.ID) ([]RefundAttempt, error)
}
