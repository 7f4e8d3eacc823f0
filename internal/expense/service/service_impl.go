package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/expense/domain"
	"github.com/smallbiznis/eventledger/internal/finance/filter"
	"github.com/smallbiznis/eventledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
	clock    clock.Clock
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("expense.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		clock:    clk,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateExpenseRequest) (*domain.Expense, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, domain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		return nil, domain.ErrInvalidMethod
	}
	if req.ExpenseDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}

	now := s.clock.Now()
	expense := &domain.Expense{
		ID:            s.genID.Generate(),
		Description:   description,
		Amount:        req.Amount,
		PaymentMethod: method,
		ExpenseDate:   req.ExpenseDate.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.EventID != 0 {
		eventID := req.EventID
		expense.EventID = &eventID
	}
	if actor := strings.TrimSpace(req.Actor); actor != "" {
		expense.CreatedBy = &actor
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, expense); err != nil {
			return err
		}
		return s.audit(ctx, tx, req.Actor, "expense.created", expense.ID, map[string]any{
			"amount":         expense.Amount.StringFixed(2),
			"payment_method": method,
		})
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Expense, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, f filter.Filter, page pagination.Page) (domain.ListExpenseResponse, error) {
	f, err := f.Normalize()
	if err != nil {
		return domain.ListExpenseResponse{}, err
	}
	page = page.Normalize()

	items, err := s.repo.List(ctx, s.db, f, page)
	if err != nil {
		return domain.ListExpenseResponse{}, err
	}
	total, err := s.repo.Count(ctx, s.db, f)
	if err != nil {
		return domain.ListExpenseResponse{}, err
	}
	if items == nil {
		items = []domain.Expense{}
	}
	return domain.ListExpenseResponse{
		Expenses: items,
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}

func (s *Service) Settle(ctx context.Context, id snowflake.ID, actor string) (*domain.Expense, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		moved, err := s.repo.MarkSettled(ctx, tx, id, s.clock.Now())
		if err != nil || !moved {
			return err
		}
		return s.audit(ctx, tx, actor, "expense.settled", id, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Totals(ctx context.Context, f filter.Filter) (domain.Totals, error) {
	f, err := f.Normalize()
	if err != nil {
		return domain.Totals{}, err
	}
	return s.repo.Totals(ctx, s.db, f)
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, actor, action string, id snowflake.ID, metadata map[string]any) error {
	entry := auditdomain.Entry{
		ActorID:    strings.TrimSpace(actor),
		Action:     action,
		TargetType: auditdomain.TargetExpense,
		TargetID:   id.String(),
		Metadata:   metadata,
	}
	if entry.ActorID != "" {
		entry.ActorType = auditdomain.ActorTypeStaff
	}
	if err := s.auditSvc.AuditLog(ctx, tx, entry); err != nil {
		s.log.Warn("expense audit failed", zap.String("expense_id", id.String()), zap.Error(err))
		return err
	}
	return nil
}
