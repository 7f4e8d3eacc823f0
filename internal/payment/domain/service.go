package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByExternalReference(ctx context.Context, db *gorm.DB, ref string) (*Payment, error)
	ListByRegistration(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) ([]Payment, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)
	UpdateRefundState(ctx context.Context, db *gorm.DB, id snowflake.ID, state RefundState, now time.Time) error
	DeletePendingOffline(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)

	InsertCallback(ctx context.Context, db *gorm.DB, record *CallbackRecord) (bool, error)
	FindCallback(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*CallbackRecord, error)
	ListUnprocessedCallbacks(ctx context.Context, db *gorm.DB, provider string, limit int) ([]CallbackRecord, error)
	MarkCallbackProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, outcome string, processedAt time.Time) error
}

// Ledger owns every write to payments and the registration projection.
type Ledger interface {
	Record(ctx context.Context, attempt Attempt) (*RecordResult, error)
	Delete(ctx context.Context, paymentID snowflake.ID, actor string) error
	Recompute(ctx context.Context, registrationID snowflake.ID, reopen bool) (*RecordResult, error)
	Reprice(ctx context.Context, registrationID snowflake.ID) (*RecordResult, error)
	ExpireStale(ctx context.Context) (int, error)
	AddNote(ctx context.Context, paymentID snowflake.ID, actor, note string) error
	List(ctx context.Context, registrationID snowflake.ID) ([]Payment, error)
}

// Gateway is the payment provider boundary. A non-nil error from Refund
// means the outcome is unknown.
type Gateway interface {
	Provider() string
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	ParseCallback(ctx context.Context, payload []byte, headers http.Header) (*Callback, error)
}

type CallbackService interface {
	Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) (string, error)
	Replay(ctx context.Context, provider string, limit int) (int, error)
}
