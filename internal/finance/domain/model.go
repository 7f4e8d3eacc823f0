package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
)

// EntryRow is a confirmed payment as read from the ledger.
type EntryRow struct {
	PaymentID      snowflake.ID
	RegistrationID snowflake.ID
	OrderCode      string
	EventID        snowflake.ID
	Channel        string
	Method         string
	CardBrand      *string
	Installments   int
	Amount         decimal.Decimal
	ConfirmedAt    *time.Time
	CreatedAt      time.Time
}

// Date is the confirmation time, or the recording time when none is set.
func (r EntryRow) Date() time.Time {
	if r.ConfirmedAt != nil {
		return *r.ConfirmedAt
	}
	return r.CreatedAt
}

// Entry is one ledger row priced against the pinned rate version.
type Entry struct {
	PaymentID      snowflake.ID    `json:"payment_id"`
	RegistrationID snowflake.ID    `json:"registration_id"`
	OrderCode      string          `json:"order_code"`
	EventID        snowflake.ID    `json:"event_id"`
	Channel        string          `json:"channel"`
	Method         string          `json:"method"`
	CardBrand      string          `json:"card_brand,omitempty"`
	Installments   int             `json:"installments"`
	Gross          decimal.Decimal `json:"gross_amount"`
	PercentApplied decimal.Decimal `json:"fee_percent_applied"`
	FixedApplied   decimal.Decimal `json:"fixed_fee_applied"`
	Fee            decimal.Decimal `json:"fee_amount"`
	Net            decimal.Decimal `json:"net_amount"`
	Misconfigured  bool            `json:"misconfigured,omitempty"`
	Issue          string          `json:"issue,omitempty"`
	EntryDate      time.Time       `json:"entry_date"`
	CreatedAt      time.Time       `json:"created_at"`
}

type Summary struct {
	TicketGross        decimal.Decimal `json:"ticket_gross"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	TicketNet          decimal.Decimal `json:"ticket_net"`
	ExpensesSettled    decimal.Decimal `json:"expenses_settled"`
	ExpensesPending    decimal.Decimal `json:"expenses_pending"`
	Balance            decimal.Decimal `json:"balance"`
	EntryCount         int             `json:"entry_count"`
	MisconfiguredCount int             `json:"misconfigured_count"`
	RateVersion        int64           `json:"rate_version"`
	Filter             filter.Filter   `json:"-"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

type EntryPage struct {
	Entries     []Entry `json:"entries"`
	Total       int64   `json:"total"`
	Page        int     `json:"page"`
	PageSize    int     `json:"page_size"`
	RateVersion int64   `json:"rate_version"`
}

// Query is a reporting read. RateVersion 0 prices against the current rates.
type Query struct {
	Filter      filter.Filter
	Page        pagination.Page
	RateVersion int64
}
