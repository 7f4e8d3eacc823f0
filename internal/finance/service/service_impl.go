package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/eventledger/internal/clock"
	expensedomain "github.com/smallbiznis/eventledger/internal/expense/domain"
	"github.com/smallbiznis/eventledger/internal/fee"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/internal/finance/domain"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	"github.com/smallbiznis/eventledger/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Rates      feeratedomain.Source
	Expenses   expensedomain.Service
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service derives every figure from the ledger on each call; nothing is
// cached between reads.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	rates      feeratedomain.Source
	expenses   expensedomain.Service
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Aggregator {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("finance.service"),
		repo:       p.Repo,
		rates:      p.Rates,
		expenses:   p.Expenses,
		clock:      clk,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Summarize(ctx context.Context, q domain.Query) (summary *domain.Summary, err error) {
	ctx, span := tracing.Start(ctx, "finance.summarize", attribute.Int64("rate_version", q.RateVersion))
	defer func() { tracing.End(span, err) }()

	f, err := q.Filter.Normalize()
	if err != nil {
		return nil, err
	}
	calc, err := s.calculator(ctx, q.RateVersion)
	if err != nil {
		return nil, err
	}

	out := &domain.Summary{
		TicketGross: decimal.Zero,
		TotalFees:   decimal.Zero,
		RateVersion: calc.Version(),
		Filter:      f,
		GeneratedAt: s.clock.Now(),
	}
	err = s.repo.EachEntry(ctx, s.db, f, func(row domain.EntryRow) error {
		entry := s.price(ctx, calc, row)
		out.TicketGross = out.TicketGross.Add(entry.Gross)
		out.TotalFees = out.TotalFees.Add(entry.Fee)
		out.EntryCount++
		if entry.Misconfigured {
			out.MisconfiguredCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	totals, err := s.expenses.Totals(ctx, f)
	if err != nil {
		return nil, err
	}

	out.TicketNet = out.TicketGross.Sub(out.TotalFees)
	out.ExpensesSettled = totals.Settled
	out.ExpensesPending = totals.Pending
	out.Balance = out.TicketNet.Sub(out.ExpensesSettled)

	if out.MisconfiguredCount > 0 {
		s.log.Warn("summary priced with misconfigured rates",
			zap.Int("entries", out.MisconfiguredCount),
			zap.Int64("rate_version", out.RateVersion),
		)
	}
	return out, nil
}

func (s *Service) ListEntries(ctx context.Context, q domain.Query) (*domain.EntryPage, error) {
	f, err := q.Filter.Normalize()
	if err != nil {
		return nil, err
	}
	page := q.Page.Normalize()
	calc, err := s.calculator(ctx, q.RateVersion)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListEntries(ctx, s.db, f, &page)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountEntries(ctx, s.db, f)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, s.price(ctx, calc, row))
	}
	return &domain.EntryPage{
		Entries:     entries,
		Total:       total,
		Page:        page.Number,
		PageSize:    page.Size,
		RateVersion: calc.Version(),
	}, nil
}

func (s *Service) ListExpenses(ctx context.Context, q domain.Query) (expensedomain.ListExpenseResponse, error) {
	return s.expenses.List(ctx, q.Filter, q.Page)
}

// calculator pins one snapshot for the whole read. With no published
// rates every card and pix entry comes back flagged as misconfigured.
func (s *Service) calculator(ctx context.Context, version int64) (fee.Calculator, error) {
	snap, err := s.rates.Resolve(ctx, version)
	if errors.Is(err, feeratedomain.ErrNoRatesPublished) {
		s.log.Warn("no fee rates published; pricing without rates")
		return fee.NewCalculator(nil), nil
	}
	if err != nil {
		return fee.Calculator{}, err
	}
	return fee.NewCalculator(snap), nil
}

func (s *Service) price(ctx context.Context, calc fee.Calculator, row domain.EntryRow) domain.Entry {
	brand := ""
	if row.CardBrand != nil {
		brand = *row.CardBrand
	}
	b := calc.Compute(fee.Input{
		Gross:        row.Amount,
		Method:       row.Method,
		Brand:        brand,
		Installments: row.Installments,
	})
	if b.Misconfigured {
		s.obsMetrics.RecordMisconfiguredRate(ctx, row.Method, b.Issue)
		s.log.Warn("misconfigured fee rate",
			zap.String("payment_id", row.PaymentID.String()),
			zap.String("method", row.Method),
			zap.String("issue", b.Issue),
		)
	}
	return domain.Entry{
		PaymentID:      row.PaymentID,
		RegistrationID: row.RegistrationID,
		OrderCode:      row.OrderCode,
		EventID:        row.EventID,
		Channel:        row.Channel,
		Method:         row.Method,
		CardBrand:      brand,
		Installments:   row.Installments,
		Gross:          b.Gross,
		PercentApplied: b.PercentApplied,
		FixedApplied:   b.FixedApplied,
		Fee:            b.Fee,
		Net:            b.Net,
		Misconfigured:  b.Misconfigured,
		Issue:          b.Issue,
		EntryDate:      row.Date(),
		CreatedAt:      row.CreatedAt,
	}
}
