package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
)

// Plan is what cancelling a registration would take.
type Plan struct {
	RegistrationID     snowflake.ID
	NeedsRefund        bool
	RefundablePayments []paymentdomain.Payment
	RetainedPayments   []paymentdomain.Payment
	RefundableTotal    decimal.Decimal
	RetainedTotal      decimal.Decimal
	NonRefundableNote  string
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeUnknown   Outcome = "unknown"
	OutcomeManual    Outcome = "manual"
)

// RefundAttempt records one gateway refund call, or an operator decision
// to settle a payment outside the gateway.
type RefundAttempt struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	RegistrationID snowflake.ID    `json:"registration_id" gorm:"not null;index"`
	PaymentID      snowflake.ID    `json:"payment_id" gorm:"not null;index"`
	CorrelationID  string          `json:"correlation_id" gorm:"type:text;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Outcome        Outcome         `json:"outcome" gorm:"type:text;not null"`
	RefundID       *string         `json:"refund_id,omitempty" gorm:"type:text"`
	ErrorCode      *string         `json:"error_code,omitempty" gorm:"type:text"`
	Actor          *string         `json:"actor,omitempty" gorm:"type:text"`
	Note           *string         `json:"note,omitempty" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
}

func (RefundAttempt) TableName() string { return "refund_attempts" }

// Result reports where a cancellation stands after a Confirm, RetryRefunds
// or MarkManualFollowUp call.
type Result struct {
	RegistrationID snowflake.ID
	CorrelationID  string
	// Status is the terminal status once finalized, otherwise
	// cancellation_pending.
	Status    string
	Finalized bool
	Refunded  []snowflake.ID
	Failed    []Failure
	PaidTotal decimal.Decimal
}

type Failure struct {
	PaymentID snowflake.ID
	Outcome   Outcome
	ErrorCode string
}

// PendingStatus is reported while refunds are unresolved.
const PendingStatus = string(regdomain.CancellationPending)
