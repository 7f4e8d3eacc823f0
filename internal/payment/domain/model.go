package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelOnline  Channel = "ONLINE"
	ChannelOffline Channel = "OFFLINE"
)

func (c Channel) Valid() bool {
	return c == ChannelOnline || c == ChannelOffline
}

type Method string

const (
	MethodPix        Method = "pix"
	MethodCreditCard Method = "credit_card"
	MethodDebitCard  Method = "debit_card"
	MethodCash       Method = "cash"
	MethodPOS        Method = "pos"
	MethodTransfer   Method = "transfer"
	MethodManual     Method = "manual"
	MethodBoleto     Method = "boleto"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDenied    Status = "denied"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDenied, StatusRefunded:
		return true
	}
	return false
}

// RefundState tracks refund execution for a confirmed payment under cancellation.
type RefundState string

const (
	RefundStateNone           RefundState = ""
	RefundStateInProgress     RefundState = "in_progress"
	RefundStateRetry          RefundState = "retry"
	RefundStateManualFollowUp RefundState = "manual_follow_up"
)

// Payment is one ledger entry. Amount never changes after insert; corrections
// are a new payment plus a note.
type Payment struct {
	ID                snowflake.ID    `json:"id" gorm:"primaryKey"`
	RegistrationID    snowflake.ID    `json:"registration_id" gorm:"not null;index"`
	Channel           Channel         `json:"channel" gorm:"type:text;not null"`
	Method            Method          `json:"method" gorm:"type:text;not null"`
	Status            Status          `json:"status" gorm:"type:text;not null"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Installments      int             `json:"installments" gorm:"not null;default:1"`
	CardBrand         *string         `json:"card_brand,omitempty" gorm:"type:text"`
	ExternalReference *string         `json:"external_reference,omitempty" gorm:"type:text;uniqueIndex"`
	RefundState       RefundState     `json:"refund_state,omitempty" gorm:"type:text;not null;default:''"`
	RecordedBy        *string         `json:"recorded_by,omitempty" gorm:"type:text"`
	Note              *string         `json:"note,omitempty" gorm:"type:text"`
	ConfirmedAt       *time.Time      `json:"confirmed_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// GatewayMediated reports whether money moved through the gateway and can be
// refunded there.
func (p Payment) GatewayMediated() bool {
	return p.Channel == ChannelOnline && p.ExternalReference != nil && *p.ExternalReference != ""
}

// Attempt is a request to record or update a ledger entry.
type Attempt struct {
	RegistrationID    snowflake.ID
	Channel           Channel
	Method            Method
	Status            Status
	Amount            decimal.Decimal
	Installments      int
	CardBrand         string
	ExternalReference string
	Actor             string
	Note              string
	// Reopen asks to move an expired registration back into the ledger flow.
	Reopen bool
}

// RecordResult is the outcome of Ledger.Record. Duplicate is set when the
// attempt carried no new information and nothing was written.
type RecordResult struct {
	Payment            *Payment
	Created            bool
	Duplicate          bool
	RefundRequired     bool
	RegistrationStatus string
	PaidTotal          decimal.Decimal
}

// CallbackRecord is a raw gateway notification, stored once per provider event.
type CallbackRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_callbacks_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_callbacks_provider_event"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	Headers         datatypes.JSON `json:"headers,omitempty" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
	Outcome         *string        `json:"outcome,omitempty" gorm:"type:text"`
}

func (CallbackRecord) TableName() string { return "payment_callbacks" }

const (
	CallbackOutcomeRecorded  = "recorded"
	CallbackOutcomeDuplicate = "duplicate"
	CallbackOutcomeIgnored   = "ignored"
	CallbackOutcomeRejected  = "rejected"

	// CallbackOutcomeRefundRequired marks money captured after the
	// registration was cancelled; it is on the ledger awaiting refund.
	CallbackOutcomeRefundRequired = "refund_required"
)

// Callback is the canonical gateway outcome parsed from a notification.
type Callback struct {
	Provider          string
	ProviderEventID   string
	ExternalReference string
	OrderReference    string
	Status            Status
	Method            Method
	Amount            decimal.Decimal
	Installments      int
	CardBrand         string
}

type RefundRequest struct {
	ExternalReference string
	Amount            decimal.Decimal
	// Full refunds the whole captured amount.
	Full bool
}

type RefundResult struct {
	Success   bool
	RefundID  string
	ErrorCode string
}
