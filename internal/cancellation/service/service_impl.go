package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/cancellation/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/lock"
	"github.com/smallbiznis/eventledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	"github.com/smallbiznis/eventledger/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/smallbiznis/eventledger/internal/registration/status"
	"github.com/smallbiznis/eventledger/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRefundTimeout = 15 * time.Second

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Cfg         config.Config
	Repo        domain.Repository
	PaymentRepo paymentdomain.Repository
	RegRepo     regdomain.Repository
	Gateway     paymentdomain.Gateway
	AuditSvc    auditdomain.Service
	Locker      lock.Locker
	Clock       clock.Clock         `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

// Service runs cancellations in three steps: mark the refunds in progress
// under the registration lock, call the gateway with the lock released,
// then reconcile the answers under the lock again.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	refundTimeout time.Duration
	repo          domain.Repository
	paymentRepo   paymentdomain.Repository
	regRepo       regdomain.Repository
	gateway       paymentdomain.Gateway
	auditSvc      auditdomain.Service
	locker        lock.Locker
	clock         clock.Clock
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	locker := p.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	timeout := p.Cfg.Gateway.RefundTimeout
	if timeout <= 0 {
		timeout = defaultRefundTimeout
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("cancellation.service"),
		genID:         p.GenID,
		refundTimeout: timeout,
		repo:          p.Repo,
		paymentRepo:   p.PaymentRepo,
		regRepo:       p.RegRepo,
		gateway:       p.Gateway,
		auditSvc:      p.AuditSvc,
		locker:        locker,
		clock:         clk,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Evaluate(ctx context.Context, registrationID snowflake.ID) (*domain.Plan, error) {
	reg, err := s.regRepo.FindByID(ctx, s.db, registrationID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, regdomain.ErrNotFound
	}
	if err := status.EnsureOpen(reg.Status); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.ListByRegistration(ctx, s.db, reg.ID)
	if err != nil {
		return nil, err
	}
	plan := domain.Evaluate(reg, payments)
	return &plan, nil
}

func (s *Service) Confirm(ctx context.Context, registrationID snowflake.ID, actor string) (result *domain.Result, err error) {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	ctx, span := tracing.Start(ctx, "cancellation.confirm")
	defer func() { tracing.End(span, err) }()

	actor = strings.TrimSpace(actor)
	var targets []paymentdomain.Payment
	err = s.withRegistration(ctx, registrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		if err := status.EnsureOpen(reg.Status); err != nil {
			return err
		}
		if reg.CancellationState == regdomain.CancellationPending {
			return domain.ErrAlreadyCancelling
		}

		plan := domain.Evaluate(reg, payments)
		now := s.clock.Now()
		if err := s.regRepo.UpdateCancellationState(ctx, tx, reg.ID, regdomain.CancellationPending, now); err != nil {
			return err
		}
		reg.CancellationState = regdomain.CancellationPending

		for _, p := range plan.RefundablePayments {
			if err := s.paymentRepo.UpdateRefundState(ctx, tx, p.ID, paymentdomain.RefundStateInProgress, now); err != nil {
				return err
			}
			p.RefundState = paymentdomain.RefundStateInProgress
			targets = append(targets, p)
		}

		if err := s.audit(ctx, tx, actor, "registration.cancellation_requested", auditdomain.TargetRegistration, reg.ID, map[string]any{
			"refundable_count": len(plan.RefundablePayments),
			"refundable_total": plan.RefundableTotal.StringFixed(2),
			"retained_total":   plan.RetainedTotal.StringFixed(2),
			"note":             plan.NonRefundableNote,
		}); err != nil {
			return err
		}

		if plan.NeedsRefund {
			return nil
		}
		result, err = s.finalize(ctx, tx, reg, payments, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		result.CorrelationID = cid
		return result, nil
	}
	return s.execute(ctx, registrationID, targets, actor, cid)
}

// RetryRefunds re-issues refunds that failed or timed out, and refunds
// gateway payments confirmed after the cancellation started.
func (s *Service) RetryRefunds(ctx context.Context, registrationID snowflake.ID, actor string) (result *domain.Result, err error) {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	ctx, span := tracing.Start(ctx, "cancellation.retry")
	defer func() { tracing.End(span, err) }()

	actor = strings.TrimSpace(actor)
	var targets []paymentdomain.Payment
	err = s.withRegistration(ctx, registrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		if err := ensureSettling(reg); err != nil {
			return err
		}

		now := s.clock.Now()
		staleBefore := now.Add(-s.refundTimeout)
		outstanding, stale := 0, 0
		for _, p := range payments {
			if !domain.Outstanding(p) {
				continue
			}
			outstanding++
			switch p.RefundState {
			case paymentdomain.RefundStateNone, paymentdomain.RefundStateRetry:
			case paymentdomain.RefundStateInProgress:
				// A marker older than the gateway timeout outlived the run
				// that set it; its outcome is unknown.
				if p.UpdatedAt.After(staleBefore) {
					continue
				}
				stale++
				logger.WithContext(ctx, s.log).Warn("re-issuing stale in-progress refund",
					zap.String("payment_id", p.ID.String()),
					zap.Time("marked_at", p.UpdatedAt),
				)
			default:
				continue
			}
			if err := s.paymentRepo.UpdateRefundState(ctx, tx, p.ID, paymentdomain.RefundStateInProgress, now); err != nil {
				return err
			}
			p.RefundState = paymentdomain.RefundStateInProgress
			targets = append(targets, p)
		}

		if outstanding == 0 {
			if err := status.EnsureOpen(reg.Status); err != nil {
				return err
			}
			result, err = s.finalize(ctx, tx, reg, payments, actor)
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("%w: %d refund(s) still in progress", domain.ErrNothingToRetry, outstanding)
		}
		return s.audit(ctx, tx, actor, "registration.refund_retry", auditdomain.TargetRegistration, reg.ID, map[string]any{
			"payment_count": len(targets),
			"stale_count":   stale,
		})
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		result.CorrelationID = cid
		return result, nil
	}
	return s.execute(ctx, registrationID, targets, actor, cid)
}

// MarkManualFollowUp settles an unresolved refund outside the gateway so the
// cancellation can finalize.
func (s *Service) MarkManualFollowUp(ctx context.Context, paymentID snowflake.ID, actor, note string) (*domain.Result, error) {
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, paymentdomain.ErrEmptyNote
	}
	actor = strings.TrimSpace(actor)

	p, err := s.paymentRepo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, paymentdomain.ErrNotFound
	}

	var result *domain.Result
	err = s.withRegistration(ctx, p.RegistrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		if err := ensureSettling(reg); err != nil {
			return err
		}
		current := find(payments, paymentID)
		if current == nil {
			return paymentdomain.ErrNotFound
		}
		if !domain.Outstanding(*current) {
			return fmt.Errorf("%w: payment is %s", domain.ErrPaymentNotOutstanding, current.Status)
		}

		now := s.clock.Now()
		if err := s.paymentRepo.UpdateRefundState(ctx, tx, current.ID, paymentdomain.RefundStateManualFollowUp, now); err != nil {
			return err
		}
		current.RefundState = paymentdomain.RefundStateManualFollowUp

		if err := s.repo.InsertAttempt(ctx, tx, &domain.RefundAttempt{
			ID:             s.genID.Generate(),
			RegistrationID: reg.ID,
			PaymentID:      current.ID,
			CorrelationID:  cid,
			Amount:         current.Amount,
			Outcome:        domain.OutcomeManual,
			Actor:          optional(actor),
			Note:           optional(note),
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor, "payment.refund_manual_follow_up", auditdomain.TargetPayment, current.ID, map[string]any{
			"registration_id": reg.ID.String(),
			"amount":          current.Amount.StringFixed(2),
			"note":            note,
		}); err != nil {
			return err
		}
		s.recordRefund(ctx, domain.OutcomeManual)

		result, err = s.finalize(ctx, tx, reg, payments, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	result.CorrelationID = cid
	return result, nil
}

func (s *Service) ListAttempts(ctx context.Context, registrationID snowflake.ID) ([]domain.RefundAttempt, error) {
	return s.repo.ListAttempts(ctx, s.db, registrationID)
}

type refundOutcome struct {
	payment   paymentdomain.Payment
	outcome   domain.Outcome
	refundID  string
	errorCode string
}

// execute calls the gateway for each target, then reconciles. No lock is
// held while the gateway is called.
func (s *Service) execute(ctx context.Context, registrationID snowflake.ID, targets []paymentdomain.Payment, actor, cid string) (*domain.Result, error) {
	outcomes := make([]refundOutcome, 0, len(targets))
	for _, p := range targets {
		outcomes = append(outcomes, s.refund(ctx, p))
	}

	// The gateway has already acted; recording its outcome must not depend
	// on the caller still waiting.
	ctx = context.WithoutCancel(ctx)

	var result *domain.Result
	err := s.withRegistration(ctx, registrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		now := s.clock.Now()
		var refunded []snowflake.ID
		var failed []domain.Failure

		for _, o := range outcomes {
			current := find(payments, o.payment.ID)
			if current == nil {
				continue
			}
			if err := s.reconcile(ctx, tx, reg, current, o, now); err != nil {
				return err
			}
			if err := s.repo.InsertAttempt(ctx, tx, &domain.RefundAttempt{
				ID:             s.genID.Generate(),
				RegistrationID: reg.ID,
				PaymentID:      current.ID,
				CorrelationID:  cid,
				Amount:         current.Amount,
				Outcome:        o.outcome,
				RefundID:       optional(o.refundID),
				ErrorCode:      optional(o.errorCode),
				Actor:          optional(actor),
				CreatedAt:      now,
			}); err != nil {
				return err
			}
			if o.outcome == domain.OutcomeSucceeded {
				refunded = append(refunded, current.ID)
			} else {
				failed = append(failed, domain.Failure{PaymentID: current.ID, Outcome: o.outcome, ErrorCode: o.errorCode})
			}
			s.recordRefund(ctx, o.outcome)
		}

		var err error
		result, err = s.finalize(ctx, tx, reg, payments, actor)
		if err != nil {
			return err
		}
		result.Refunded = refunded
		result.Failed = failed
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.CorrelationID = cid

	if !result.Finalized {
		logger.WithContext(ctx, s.log).Warn("cancellation left pending",
			zap.String("registration_id", registrationID.String()),
			zap.Int("failed", len(result.Failed)),
		)
		return result, fmt.Errorf("%w: %d refund(s) unresolved", domain.ErrRefundFailed, len(result.Failed))
	}
	return result, nil
}

func (s *Service) refund(ctx context.Context, p paymentdomain.Payment) refundOutcome {
	out := refundOutcome{payment: p}
	log := logger.WithContext(ctx, s.log).With(zap.String("payment_id", p.ID.String()))

	ref := ""
	if p.ExternalReference != nil {
		ref = *p.ExternalReference
	}
	callCtx, cancel := context.WithTimeout(ctx, s.refundTimeout)
	defer cancel()

	callCtx, span := tracing.Start(callCtx, "cancellation.refund", attribute.String("provider", s.gateway.Provider()))
	res, err := s.gateway.Refund(callCtx, paymentdomain.RefundRequest{
		ExternalReference: ref,
		Amount:            p.Amount,
		Full:              true,
	})
	tracing.End(span, err)

	switch {
	case err != nil:
		out.outcome = domain.OutcomeUnknown
		out.errorCode = "gateway_error"
		if errors.Is(err, context.DeadlineExceeded) {
			out.errorCode = "timeout"
		}
		log.Warn("refund outcome unknown", zap.Error(err))
	case !res.Success:
		out.outcome = domain.OutcomeFailed
		out.refundID = res.RefundID
		out.errorCode = res.ErrorCode
		log.Warn("refund declined", zap.String("error_code", res.ErrorCode))
	default:
		out.outcome = domain.OutcomeSucceeded
		out.refundID = res.RefundID
		log.Info("refund issued", zap.String("refund_id", res.RefundID))
	}
	return out
}

// reconcile applies one gateway answer. A payment that is no longer
// confirmed was settled by a callback in the meantime and is left alone.
func (s *Service) reconcile(ctx context.Context, tx *gorm.DB, reg *regdomain.Registration, p *paymentdomain.Payment, o refundOutcome, now time.Time) error {
	if p.Status != paymentdomain.StatusConfirmed {
		return nil
	}

	if o.outcome == domain.OutcomeSucceeded {
		moved, err := s.paymentRepo.UpdateStatus(ctx, tx, p.ID, paymentdomain.StatusConfirmed, paymentdomain.StatusRefunded, now)
		if err != nil || !moved {
			return err
		}
		p.Status = paymentdomain.StatusRefunded
		p.RefundState = paymentdomain.RefundStateNone
		p.RefundedAt = &now
		return s.audit(ctx, tx, "", "payment.refunded", auditdomain.TargetPayment, p.ID, map[string]any{
			"registration_id": reg.ID.String(),
			"amount":          p.Amount.StringFixed(2),
			"refund_id":       o.refundID,
		})
	}

	if p.RefundState == paymentdomain.RefundStateManualFollowUp {
		return nil
	}
	if err := s.paymentRepo.UpdateRefundState(ctx, tx, p.ID, paymentdomain.RefundStateRetry, now); err != nil {
		return err
	}
	p.RefundState = paymentdomain.RefundStateRetry
	return s.audit(ctx, tx, "", "payment.refund_failed", auditdomain.TargetPayment, p.ID, map[string]any{
		"registration_id": reg.ID.String(),
		"outcome":         string(o.outcome),
		"error_code":      o.errorCode,
	})
}

// finalize closes the registration once no refund is outstanding. It ends
// refunded when every confirmed payment went back, cancelled otherwise.
func (s *Service) finalize(ctx context.Context, tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment, actor string) (*domain.Result, error) {
	paid, attempts := paymentdomain.Tally(payments)
	result := &domain.Result{
		RegistrationID: reg.ID,
		Status:         domain.PendingStatus,
		PaidTotal:      paid,
	}
	if reg.Status.Terminal() {
		result.Status = string(reg.Status)
		result.Finalized = !hasOutstanding(payments)
		return result, nil
	}

	now := s.clock.Now()
	if !paid.Equal(reg.PaidTotal) {
		if err := s.regRepo.UpdateProjection(ctx, tx, reg.ID, reg.Status, paid, now); err != nil {
			return nil, err
		}
	}

	if hasOutstanding(payments) {
		return result, nil
	}

	target := regdomain.StatusCancelled
	if attempts.Confirmed == 0 && attempts.Refunded > 0 {
		target = regdomain.StatusRefunded
	}
	if err := status.EnsureCanMarkTerminal(reg.Status, target); err != nil {
		return nil, err
	}
	if err := s.regRepo.MarkTerminal(ctx, tx, reg.ID, target, now); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, actor, "registration.cancelled", auditdomain.TargetRegistration, reg.ID, map[string]any{
		"from":       string(reg.Status),
		"to":         string(target),
		"paid_total": paid.StringFixed(2),
	}); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("registration cancelled",
		zap.String("registration_id", reg.ID.String()),
		zap.String("status", string(target)),
	)
	result.Status = string(target)
	result.Finalized = true
	return result, nil
}

// ensureSettling admits refund work on a registration being cancelled, or on
// a closed one that still holds gateway money captured after it closed.
func ensureSettling(reg *regdomain.Registration) error {
	if reg.Status.Terminal() {
		return nil
	}
	if reg.CancellationState != regdomain.CancellationPending {
		return domain.ErrNotCancelling
	}
	return nil
}

func hasOutstanding(payments []paymentdomain.Payment) bool {
	for _, p := range payments {
		if domain.Outstanding(p) {
			return true
		}
	}
	return false
}

func (s *Service) withRegistration(
	ctx context.Context,
	registrationID snowflake.ID,
	fn func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error,
) error {
	release, err := s.locker.Lock(ctx, lock.RegistrationKey(registrationID))
	if err != nil {
		return err
	}
	defer release()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reg, err := s.regRepo.FindByIDForUpdate(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if reg == nil {
			return regdomain.ErrNotFound
		}
		payments, err := s.paymentRepo.ListByRegistration(ctx, tx, reg.ID)
		if err != nil {
			return err
		}
		return fn(tx, reg, payments)
	})
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, actor, action, targetType string, targetID snowflake.ID, metadata map[string]any) error {
	entry := auditdomain.Entry{
		ActorID:    actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID.String(),
		Metadata:   metadata,
	}
	if actor != "" {
		entry.ActorType = auditdomain.ActorTypeStaff
	}
	return s.auditSvc.AuditLog(ctx, tx, entry)
}

func (s *Service) recordRefund(ctx context.Context, outcome domain.Outcome) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordRefund(ctx, string(outcome))
	}
}

func find(payments []paymentdomain.Payment, id snowflake.ID) *paymentdomain.Payment {
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i]
		}
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
