// Package report renders the financial summary as a PDF for the reporting
// consumer.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/finance/domain"
	"github.com/smallbiznis/eventledger/pkg/money"
)

var ErrEmptySummary = errors.New("empty_summary")

const timeLayout = "2006-01-02 15:04 MST"

// Report is what gets rendered. Entries are optional; when present they are
// listed under the totals.
type Report struct {
	Title   string
	Summary *domain.Summary
	Entries []domain.Entry
}

type Renderer interface {
	Render(ctx context.Context, r Report) (io.Reader, error)
}

type PDFRenderer struct{}

func New() Renderer {
	return &PDFRenderer{}
}

func (p *PDFRenderer) Render(ctx context.Context, r Report) (io.Reader, error) {
	if r.Summary == nil {
		return nil, ErrEmptySummary
	}
	s := r.Summary

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = "Financial summary"
	}
	m.AddRow(12,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(20,
		col.New(8).Add(
			text.New("Generated: "+s.GeneratedAt.UTC().Format(timeLayout), props.Text{Size: 9}),
			text.New("Period: "+period(s), props.Text{Size: 9, Top: 4}),
			text.New(fmt.Sprintf("Rate version: %d", s.RateVersion), props.Text{Size: 9, Top: 8}),
			text.New(fmt.Sprintf("Ledger entries: %d", s.EntryCount), props.Text{Size: 9, Top: 12}),
		),
		col.New(4),
	)

	totals := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Ticket gross", s.TicketGross, false},
		{"Processing fees", s.TotalFees, false},
		{"Ticket net", s.TicketNet, true},
		{"Expenses settled", s.ExpensesSettled, false},
		{"Expenses pending", s.ExpensesPending, false},
		{"Balance", s.Balance, true},
	}
	for _, t := range totals {
		style := fontstyle.Normal
		if t.bold {
			style = fontstyle.Bold
		}
		m.AddRow(8,
			col.New(6),
			text.NewCol(3, t.label, props.Text{Size: 10, Style: style}),
			text.NewCol(3, money.Format(t.value), props.Text{Size: 10, Style: style, Align: align.Right}),
		)
	}

	if s.MisconfiguredCount > 0 {
		m.AddRow(10,
			text.NewCol(12, fmt.Sprintf("%d entries were priced with a misconfigured rate table.", s.MisconfiguredCount), props.Text{
				Size:  9,
				Style: fontstyle.Italic,
				Top:   3,
			}),
		)
	}

	if len(r.Entries) > 0 {
		m.AddRow(10,
			text.NewCol(3, "Order", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(3, "Method", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Gross", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Fee", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Net", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, e := range r.Entries {
			m.AddRow(7,
				text.NewCol(3, e.OrderCode, props.Text{Size: 8}),
				text.NewCol(3, method(e), props.Text{Size: 8}),
				text.NewCol(2, money.Format(e.Gross), props.Text{Size: 8, Align: align.Right}),
				text.NewCol(2, money.Format(e.Fee), props.Text{Size: 8, Align: align.Right}),
				text.NewCol(2, money.Format(e.Net), props.Text{Size: 8, Align: align.Right}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func period(s *domain.Summary) string {
	from, to := "start", "now"
	if s.Filter.From != nil {
		from = s.Filter.From.Format("2006-01-02")
	}
	if s.Filter.To != nil {
		to = s.Filter.To.Format("2006-01-02")
	}
	return from + " to " + to
}

func method(e domain.Entry) string {
	if e.CardBrand == "" {
		return e.Method
	}
	return fmt.Sprintf("%s %s %dx", e.Method, e.CardBrand, e.Installments)
}
