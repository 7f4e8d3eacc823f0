package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/smallbiznis/eventledger/internal/registration/status"
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
	Catalog  domain.PricingCatalog
	AuditSvc auditdomain.Service
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	catalog  domain.PricingCatalog
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
		log:      p.Log.Named("registration.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		catalog:  p.Catalog,
		auditSvc: p.AuditSvc,
		clock:    clk,
	}
}

// Open creates the registration when checkout completes. Pricing is read
// from the catalog once; opening an existing order code returns it unchanged.
func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (*domain.Registration, error) {
	orderCode := strings.TrimSpace(req.OrderCode)
	if orderCode == "" {
		return nil, domain.ErrInvalidOrderCode
	}

	if existing, err := s.repo.FindByOrderCode(ctx, s.db, orderCode); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	pricing, err := s.catalog.GetRegistrationPricing(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if err := pricing.Validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	reg := &domain.Registration{
		ID:               s.genID.Generate(),
		OrderCode:        orderCode,
		EventID:          pricing.EventID,
		PaymentMode:      pricing.PaymentMode,
		FinalPrice:       pricing.FinalPrice,
		MinDepositAmount: pricing.MinDepositAmount,
		MaxPaymentCount:  pricing.MaxPaymentCount,
		PaidTotal:        decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	reg.Status = status.Resolve(status.Snapshot{
		Current:    domain.StatusPending,
		Mode:       reg.PaymentMode,
		FinalPrice: reg.FinalPrice,
		MinDeposit: reg.MinDepositAmount,
		PaidTotal:  reg.PaidTotal,
	})

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.Insert(ctx, tx, reg)
		if err != nil {
			return err
		}
		if !inserted {
			return domain.ErrAlreadyOpen
		}
		return s.auditSvc.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     "registration.opened",
			TargetType: auditdomain.TargetRegistration,
			TargetID:   reg.ID.String(),
			Metadata: map[string]any{
				"order_code":   orderCode,
				"final_price":  reg.FinalPrice.StringFixed(2),
				"payment_mode": string(reg.PaymentMode),
			},
		})
	})
	if errors.Is(err, domain.ErrAlreadyOpen) {
		return s.repo.FindByOrderCode(ctx, s.db, orderCode)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("registration opened",
		zap.String("registration_id", reg.ID.String()),
		zap.String("order_code", orderCode),
		zap.String("status", string(reg.Status)),
	)
	return reg, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Registration, error) {
	reg, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, domain.ErrNotFound
	}
	return reg, nil
}

func (s *Service) GetByOrderCode(ctx context.Context, orderCode string) (*domain.Registration, error) {
	orderCode = strings.TrimSpace(orderCode)
	if orderCode == "" {
		return nil, domain.ErrInvalidOrderCode
	}
	reg, err := s.repo.FindByOrderCode(ctx, s.db, orderCode)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, domain.ErrNotFound
	}
	return reg, nil
}
