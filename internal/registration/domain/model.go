package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PaymentMode string

const (
	PaymentModeSingle     PaymentMode = "SINGLE"
	PaymentModeBalanceDue PaymentMode = "BALANCE_DUE"
)

func (m PaymentMode) Valid() bool {
	return m == PaymentModeSingle || m == PaymentModeBalanceDue
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusConfirmed Status = "confirmed"
	StatusDenied    Status = "denied"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Terminal statuses are only reachable through cancellation.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// CancellationState tracks a cancellation whose refunds are not all resolved.
type CancellationState string

const (
	CancellationNone    CancellationState = ""
	CancellationPending CancellationState = "cancellation_pending"
)

// Registration is the payable unit. Status and PaidTotal are a projection
// of the payment ledger and are rewritten on every ledger mutation.
type Registration struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrderCode         string            `json:"order_code" gorm:"type:text;not null;uniqueIndex"`
	EventID           snowflake.ID      `json:"event_id" gorm:"not null;index"`
	PaymentMode       PaymentMode       `json:"payment_mode" gorm:"type:text;not null"`
	FinalPrice        decimal.Decimal   `json:"final_price" gorm:"type:numeric(12,2);not null"`
	MinDepositAmount  *decimal.Decimal  `json:"min_deposit_amount,omitempty" gorm:"type:numeric(12,2)"`
	MaxPaymentCount   *int              `json:"max_payment_count,omitempty"`
	Status            Status            `json:"status" gorm:"type:text;not null;index"`
	PaidTotal         decimal.Decimal   `json:"paid_total" gorm:"type:numeric(12,2);not null"`
	CancellationState CancellationState `json:"cancellation_state,omitempty" gorm:"type:text;not null;default:''"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
	ExpiredAt         *time.Time        `json:"expired_at,omitempty"`
	ClosedAt          *time.Time        `json:"closed_at,omitempty"`
}

func (Registration) TableName() string { return "registrations" }

// Pricing is what the catalog owes for a registration.
type Pricing struct {
	EventID          snowflake.ID
	FinalPrice       decimal.Decimal
	PaymentMode      PaymentMode
	MinDepositAmount *decimal.Decimal
	MaxPaymentCount  *int
}

type OpenRequest struct {
	OrderCode string
}
