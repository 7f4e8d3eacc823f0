// Package filter is the one place reporting filters become SQL, so the
// entry listing, the summary and the expense listing always agree.
package filter

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrInvalidRange = errors.New("invalid_date_range")

// Filter narrows reporting reads. From is inclusive, To is exclusive.
type Filter struct {
	EventID snowflake.ID
	Method  string
	From    *time.Time
	To      *time.Time
}

// Columns names the filtered columns of one source table.
type Columns struct {
	Event  string
	Method string
	Date   string
}

// EntryDate dates a ledger entry by when its money was confirmed. Rows
// without a confirmation time fall back to when they were recorded.
const EntryDate = "COALESCE(p.confirmed_at, p.created_at)"

var (
	EntryColumns   = Columns{Event: "r.event_id", Method: "p.method", Date: EntryDate}
	ExpenseColumns = Columns{Event: "e.event_id", Method: "e.payment_method", Date: "e.expense_date"}
)

func (f Filter) Normalize() (Filter, error) {
	f.Method = strings.ToLower(strings.TrimSpace(f.Method))
	if f.From != nil {
		from := f.From.UTC()
		f.From = &from
	}
	if f.To != nil {
		to := f.To.UTC()
		f.To = &to
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return Filter{}, ErrInvalidRange
	}
	return f, nil
}

func (f Filter) Apply(stmt *gorm.DB, cols Columns) *gorm.DB {
	if f.EventID != 0 {
		stmt = stmt.Where(cols.Event+" = ?", f.EventID)
	}
	if f.Method != "" {
		stmt = stmt.Where(cols.Method+" = ?", f.Method)
	}
	if f.From != nil {
		stmt = stmt.Where(cols.Date+" >= ?", *f.From)
	}
	if f.To != nil {
		stmt = stmt.Where(cols.Date+" < ?", *f.To)
	}
	return stmt
}
