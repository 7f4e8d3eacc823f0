package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/lock"
	"github.com/smallbiznis/eventledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	"github.com/smallbiznis/eventledger/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/internal/payment/guard"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/smallbiznis/eventledger/internal/registration/status"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const expireBatchSize = 500

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Repo       paymentdomain.Repository
	RegRepo    regdomain.Repository
	Catalog    regdomain.PricingCatalog
	AuditSvc   auditdomain.Service
	Locker     lock.Locker
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service is the payment ledger. Every mutation takes the registration lock,
// then writes the entry and the status projection in one transaction.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	policy     config.LedgerConfig
	repo       paymentdomain.Repository
	regRepo    regdomain.Repository
	catalog    regdomain.PricingCatalog
	auditSvc   auditdomain.Service
	locker     lock.Locker
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	locker := p.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.ledger"),
		genID:      p.GenID,
		policy:     p.Cfg.Ledger,
		repo:       p.Repo,
		regRepo:    p.RegRepo,
		catalog:    p.Catalog,
		auditSvc:   p.AuditSvc,
		locker:     locker,
		clock:      clk,
		obsMetrics: p.ObsMetrics,
	}
}

var _ paymentdomain.Ledger = (*Service)(nil)

func (s *Service) Record(ctx context.Context, attempt paymentdomain.Attempt) (result *paymentdomain.RecordResult, err error) {
	ctx, span := tracing.Start(ctx, "ledger.record",
		attribute.String("channel", string(attempt.Channel)),
		attribute.String("method", string(attempt.Method)),
	)
	defer func() { tracing.End(span, err) }()

	if err := s.normalize(&attempt); err != nil {
		return nil, err
	}

	err = s.withRegistration(ctx, attempt.RegistrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		var existing *paymentdomain.Payment
		if attempt.Channel == paymentdomain.ChannelOnline {
			found, err := s.repo.FindByExternalReference(ctx, tx, attempt.ExternalReference)
			if err != nil {
				return err
			}
			if found != nil && found.RegistrationID != reg.ID {
				return fmt.Errorf("%w: %s belongs to another registration", paymentdomain.ErrReferenceMismatch, attempt.ExternalReference)
			}
			existing = found
		}

		var err error
		if existing != nil {
			result, err = s.transition(ctx, tx, reg, payments, existing, attempt)
		} else {
			result, err = s.insert(ctx, tx, reg, payments, attempt)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) normalize(a *paymentdomain.Attempt) error {
	if a.RegistrationID == 0 {
		return fmt.Errorf("%w: registration id is required", paymentdomain.ErrInvalidAttempt)
	}
	if !a.Channel.Valid() {
		return fmt.Errorf("%w: channel %q", paymentdomain.ErrInvalidAttempt, a.Channel)
	}
	a.Method = paymentdomain.Method(strings.ToLower(strings.TrimSpace(string(a.Method))))
	if a.Method == "" {
		return fmt.Errorf("%w: method is required", paymentdomain.ErrInvalidAttempt)
	}
	if !a.Amount.IsPositive() || !a.Amount.Equal(a.Amount.Round(2)) {
		return fmt.Errorf("%w: %s", paymentdomain.ErrInvalidAmount, a.Amount.String())
	}
	if a.Method == paymentdomain.MethodCreditCard {
		if a.Installments == 0 {
			a.Installments = 1
		}
		if a.Installments < 1 {
			return fmt.Errorf("%w: installments %d", paymentdomain.ErrInvalidAttempt, a.Installments)
		}
		a.CardBrand = strings.TrimSpace(a.CardBrand)
	} else {
		a.Installments = 1
		a.CardBrand = ""
	}
	a.ExternalReference = strings.TrimSpace(a.ExternalReference)
	a.Actor = strings.TrimSpace(a.Actor)
	a.Note = strings.TrimSpace(a.Note)

	switch a.Channel {
	case paymentdomain.ChannelOnline:
		if a.ExternalReference == "" {
			return fmt.Errorf("%w: online payments need an external reference", paymentdomain.ErrInvalidAttempt)
		}
		if !a.Status.Valid() {
			return fmt.Errorf("%w: status %q", paymentdomain.ErrInvalidAttempt, a.Status)
		}
	case paymentdomain.ChannelOffline:
		if a.ExternalReference != "" {
			return fmt.Errorf("%w: offline payments carry no external reference", paymentdomain.ErrInvalidAttempt)
		}
		if a.Status == "" {
			a.Status = s.offlineDefault()
		}
	}
	return nil
}

func (s *Service) offlineDefault() paymentdomain.Status {
	if paymentdomain.Status(s.policy.OfflineDefaultStatus) == paymentdomain.StatusPending {
		return paymentdomain.StatusPending
	}
	return paymentdomain.StatusConfirmed
}

func (s *Service) insert(
	ctx context.Context,
	tx *gorm.DB,
	reg *regdomain.Registration,
	payments []paymentdomain.Payment,
	a paymentdomain.Attempt,
) (*paymentdomain.RecordResult, error) {
	late := refundOnArrival(reg, a)
	if !late {
		if err := status.EnsureOpen(reg.Status); err != nil {
			return nil, err
		}
		if reg.CancellationState == regdomain.CancellationPending {
			return nil, paymentdomain.ErrCancellationPending
		}
	}
	if err := guard.EnsureInsertStatus(a.Channel, a.Status); err != nil {
		s.recordInvalidTransition(ctx, "", string(a.Status))
		return nil, err
	}

	reopen := false
	if reg.Status == regdomain.StatusExpired && a.Channel == paymentdomain.ChannelOffline {
		if !a.Reopen {
			return nil, paymentdomain.ErrRegistrationExpired
		}
		if !s.policy.AllowReopen {
			return nil, paymentdomain.ErrReopenNotAllowed
		}
		reopen = true
	}

	if !late && a.Status != paymentdomain.StatusDenied && reg.MaxPaymentCount != nil {
		if paymentdomain.AcceptedCount(payments) >= *reg.MaxPaymentCount {
			return nil, fmt.Errorf("%w: limit %d", paymentdomain.ErrPaymentLimitReached, *reg.MaxPaymentCount)
		}
	}
	if !late && a.Status == paymentdomain.StatusConfirmed {
		if err := ensureWithinPrice(reg, payments, a.Amount); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	p := paymentdomain.Payment{
		ID:             s.genID.Generate(),
		RegistrationID: reg.ID,
		Channel:        a.Channel,
		Method:         a.Method,
		Status:         a.Status,
		Amount:         a.Amount,
		Installments:   a.Installments,
		CardBrand:      optional(a.CardBrand),
		RecordedBy:     optional(a.Actor),
		Note:           optional(a.Note),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if a.Channel == paymentdomain.ChannelOnline {
		p.ExternalReference = optional(a.ExternalReference)
	}
	if p.Status == paymentdomain.StatusConfirmed {
		p.ConfirmedAt = &now
	}
	if late {
		p.RefundState = paymentdomain.RefundStateRetry
	}

	inserted, err := s.repo.Insert(ctx, tx, &p)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("%w: %s was recorded concurrently", paymentdomain.ErrReferenceMismatch, a.ExternalReference)
	}

	if err := s.audit(ctx, tx, a.Channel, a.Actor, "payment.recorded", p.ID, map[string]any{
		"registration_id": reg.ID.String(),
		"channel":         string(p.Channel),
		"method":          string(p.Method),
		"status":          string(p.Status),
		"amount":          p.Amount.StringFixed(2),
		"note":            a.Note,
		"refund_required": late,
	}); err != nil {
		return nil, err
	}

	result, err := s.projectUnlessClosed(ctx, tx, reg, append(payments, p), reopen)
	if err != nil {
		return nil, err
	}
	result.Payment = &p
	result.Created = true
	result.RefundRequired = late
	if late {
		logger.WithContext(ctx, s.log).Warn("gateway money arrived after cancellation, queued for refund",
			zap.String("registration_id", reg.ID.String()),
			zap.String("payment_id", p.ID.String()),
			zap.String("amount", p.Amount.StringFixed(2)),
		)
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPayment(ctx, string(p.Channel), string(p.Method), string(p.Status))
	}
	logger.WithContext(ctx, s.log).Info("payment recorded",
		zap.String("registration_id", reg.ID.String()),
		zap.String("payment_id", p.ID.String()),
		zap.String("channel", string(p.Channel)),
		zap.String("status", string(p.Status)),
		zap.String("registration_status", result.RegistrationStatus),
	)
	return result, nil
}

func (s *Service) transition(
	ctx context.Context,
	tx *gorm.DB,
	reg *regdomain.Registration,
	payments []paymentdomain.Payment,
	existing *paymentdomain.Payment,
	a paymentdomain.Attempt,
) (*paymentdomain.RecordResult, error) {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("registration_id", reg.ID.String()),
		zap.String("payment_id", existing.ID.String()),
	)

	if err := guard.EnsureTransition(existing.Status, a.Status); err != nil {
		if errors.Is(err, paymentdomain.ErrDuplicateCallback) {
			log.Debug("duplicate callback ignored", zap.String("status", string(a.Status)))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordDuplicateCallback(ctx, "ledger")
			}
			return &paymentdomain.RecordResult{
				Payment:            existing,
				Duplicate:          true,
				RegistrationStatus: string(reg.Status),
				PaidTotal:          reg.PaidTotal,
			}, nil
		}
		log.Warn("payment transition rejected",
			zap.String("from", string(existing.Status)),
			zap.String("to", string(a.Status)),
		)
		s.recordInvalidTransition(ctx, string(existing.Status), string(a.Status))
		return nil, err
	}

	late := refundOnArrival(reg, a)
	if a.Status == paymentdomain.StatusConfirmed && !late {
		if err := status.EnsureOpen(reg.Status); err != nil {
			return nil, err
		}
		if err := ensureWithinPrice(reg, payments, existing.Amount); err != nil {
			return nil, err
		}
	}
	if !a.Amount.Equal(existing.Amount) {
		log.Warn("callback amount differs from ledger entry",
			zap.String("ledger_amount", existing.Amount.StringFixed(2)),
			zap.String("callback_amount", a.Amount.StringFixed(2)),
		)
	}

	now := s.clock.Now()
	moved, err := s.repo.UpdateStatus(ctx, tx, existing.ID, existing.Status, a.Status, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, &guard.TransitionError{From: existing.Status, To: a.Status}
	}
	if late {
		if err := s.repo.UpdateRefundState(ctx, tx, existing.ID, paymentdomain.RefundStateRetry, now); err != nil {
			return nil, err
		}
		log.Warn("gateway confirmation arrived after cancellation, queued for refund")
	}

	if err := s.audit(ctx, tx, a.Channel, a.Actor, "payment.status_changed", existing.ID, map[string]any{
		"registration_id": reg.ID.String(),
		"from":            string(existing.Status),
		"to":              string(a.Status),
		"refund_required": late,
	}); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Status = a.Status
	updated.UpdatedAt = now
	switch a.Status {
	case paymentdomain.StatusConfirmed:
		updated.ConfirmedAt = &now
	case paymentdomain.StatusRefunded:
		updated.RefundedAt = &now
		updated.RefundState = paymentdomain.RefundStateNone
	}
	if late {
		updated.RefundState = paymentdomain.RefundStateRetry
	}
	next := replace(payments, updated)

	result, err := s.projectUnlessClosed(ctx, tx, reg, next, false)
	if err != nil {
		return nil, err
	}
	result.Payment = &updated
	result.RefundRequired = late

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPayment(ctx, string(updated.Channel), string(updated.Method), string(updated.Status))
	}
	log.Info("payment status updated",
		zap.String("from", string(existing.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("registration_status", result.RegistrationStatus),
	)
	return result, nil
}

func (s *Service) Delete(ctx context.Context, paymentID snowflake.ID, actor string) error {
	p, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return err
	}
	if p == nil {
		return paymentdomain.ErrNotFound
	}

	return s.withRegistration(ctx, p.RegistrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		current := find(payments, paymentID)
		if current == nil {
			return paymentdomain.ErrNotFound
		}
		if err := guard.EnsureDeletable(*current); err != nil {
			return err
		}
		deleted, err := s.repo.DeletePendingOffline(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if !deleted {
			return paymentdomain.ErrManualOnlyDeletion
		}
		if err := s.audit(ctx, tx, paymentdomain.ChannelOffline, actor, "payment.deleted", paymentID, map[string]any{
			"registration_id": reg.ID.String(),
			"method":          string(current.Method),
			"amount":          current.Amount.StringFixed(2),
		}); err != nil {
			return err
		}
		_, err = s.project(ctx, tx, reg, remove(payments, paymentID), false)
		return err
	})
}

// Recompute re-derives the registration status from its ledger. Running it
// again on an unchanged ledger writes nothing.
func (s *Service) Recompute(ctx context.Context, registrationID snowflake.ID, reopen bool) (*paymentdomain.RecordResult, error) {
	if reopen && !s.policy.AllowReopen {
		return nil, paymentdomain.ErrReopenNotAllowed
	}
	var result *paymentdomain.RecordResult
	err := s.withRegistration(ctx, registrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		var err error
		result, err = s.project(ctx, tx, reg, payments, reopen)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reprice is the explicit path for changing what a registration owes.
func (s *Service) Reprice(ctx context.Context, registrationID snowflake.ID) (*paymentdomain.RecordResult, error) {
	var result *paymentdomain.RecordResult
	err := s.withRegistration(ctx, registrationID, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
		if err := status.EnsureOpen(reg.Status); err != nil {
			return err
		}
		pricing, err := s.catalog.GetRegistrationPricing(ctx, reg.OrderCode)
		if err != nil {
			return err
		}
		if err := pricing.Validate(); err != nil {
			return err
		}
		paid, _ := paymentdomain.Tally(payments)
		if paid.GreaterThan(pricing.FinalPrice) {
			return fmt.Errorf("%w: paid %s exceeds new price %s", paymentdomain.ErrOverpaymentRejected,
				paid.StringFixed(2), pricing.FinalPrice.StringFixed(2))
		}

		now := s.clock.Now()
		if err := s.regRepo.UpdatePricing(ctx, tx, reg.ID, pricing, now); err != nil {
			return err
		}
		if err := s.auditSvc.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     "registration.repriced",
			TargetType: auditdomain.TargetRegistration,
			TargetID:   reg.ID.String(),
			Metadata: map[string]any{
				"previous_price": reg.FinalPrice.StringFixed(2),
				"final_price":    pricing.FinalPrice.StringFixed(2),
				"payment_mode":   string(pricing.PaymentMode),
			},
		}); err != nil {
			return err
		}

		reg.FinalPrice = pricing.FinalPrice
		reg.PaymentMode = pricing.PaymentMode
		reg.MinDepositAmount = pricing.MinDepositAmount
		reg.MaxPaymentCount = pricing.MaxPaymentCount
		result, err = s.project(ctx, tx, reg, payments, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireStale expires pending registrations whose checkout window elapsed
// with nothing paid and no online attempt still in flight.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.policy.CheckoutWindow)
	ids, err := s.regRepo.ListExpirable(ctx, s.db, cutoff, expireBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		err := s.withRegistration(ctx, id, func(tx *gorm.DB, reg *regdomain.Registration, payments []paymentdomain.Payment) error {
			if reg.CreatedAt.After(cutoff) {
				return nil
			}
			for _, p := range payments {
				if p.Channel == paymentdomain.ChannelOnline && p.Status == paymentdomain.StatusPending {
					return nil
				}
			}
			moved, err := s.regRepo.MarkExpired(ctx, tx, reg.ID, s.clock.Now())
			if err != nil || !moved {
				return err
			}
			expired++
			return s.auditSvc.AuditLog(ctx, tx, auditdomain.Entry{
				ActorType:  auditdomain.ActorTypeSystem,
				Action:     "registration.expired",
				TargetType: auditdomain.TargetRegistration,
				TargetID:   reg.ID.String(),
				Metadata:   map[string]any{"from": string(reg.Status)},
			})
		})
		if err != nil {
			s.log.Warn("expire registration failed", zap.String("registration_id", id.String()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return expired, errors.Join(errs...)
}

func (s *Service) AddNote(ctx context.Context, paymentID snowflake.ID, actor, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return paymentdomain.ErrEmptyNote
	}
	p, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return err
	}
	if p == nil {
		return paymentdomain.ErrNotFound
	}
	return s.audit(ctx, nil, paymentdomain.ChannelOffline, actor, "payment.note_added", p.ID, map[string]any{
		"registration_id": p.RegistrationID.String(),
		"note":            note,
	})
}

func (s *Service) List(ctx context.Context, registrationID snowflake.ID) ([]paymentdomain.Payment, error) {
	return s.repo.ListByRegistration(ctx, s.db, registrationID)
}

// withRegistration runs fn under the registration lock inside one
// transaction with the registration row locked and its ledger loaded.
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
		payments, err := s.repo.ListByRegistration(ctx, tx, reg.ID)
		if err != nil {
			return err
		}
		return fn(tx, reg, payments)
	})
}

// project writes the status and paid total derived from payments.
// refundOnArrival reports whether gateway money confirmed now can only go
// back to the payer because the registration is closed or being cancelled.
func refundOnArrival(reg *regdomain.Registration, a paymentdomain.Attempt) bool {
	return a.Channel == paymentdomain.ChannelOnline &&
		a.Status == paymentdomain.StatusConfirmed &&
		(reg.Status.Terminal() || reg.CancellationState == regdomain.CancellationPending)
}

// projectUnlessClosed leaves a closed registration's projection untouched.
func (s *Service) projectUnlessClosed(
	ctx context.Context,
	tx *gorm.DB,
	reg *regdomain.Registration,
	payments []paymentdomain.Payment,
	reopen bool,
) (*paymentdomain.RecordResult, error) {
	if reg.Status.Terminal() {
		return &paymentdomain.RecordResult{
			RegistrationStatus: string(reg.Status),
			PaidTotal:          reg.PaidTotal,
		}, nil
	}
	return s.project(ctx, tx, reg, payments, reopen)
}

func (s *Service) project(
	ctx context.Context,
	tx *gorm.DB,
	reg *regdomain.Registration,
	payments []paymentdomain.Payment,
	reopen bool,
) (*paymentdomain.RecordResult, error) {
	paid, attempts := paymentdomain.Tally(payments)
	next := status.Resolve(status.Snapshot{
		Current:    reg.Status,
		Mode:       reg.PaymentMode,
		FinalPrice: reg.FinalPrice,
		MinDeposit: reg.MinDepositAmount,
		PaidTotal:  paid,
		Attempts:   attempts,
		Reopen:     reopen,
	})

	statusChanged := next != reg.Status
	changed := statusChanged || !paid.Equal(reg.PaidTotal)
	if changed {
		if err := s.regRepo.UpdateProjection(ctx, tx, reg.ID, next, paid, s.clock.Now()); err != nil {
			return nil, err
		}
	}
	if statusChanged {
		if err := s.auditSvc.AuditLog(ctx, tx, auditdomain.Entry{
			Action:     "registration.status_changed",
			TargetType: auditdomain.TargetRegistration,
			TargetID:   reg.ID.String(),
			Metadata: map[string]any{
				"from":       string(reg.Status),
				"to":         string(next),
				"paid_total": paid.StringFixed(2),
				"reopen":     reopen,
			},
		}); err != nil {
			return nil, err
		}
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordStatusRecompute(ctx, string(next), changed)
	}
	return &paymentdomain.RecordResult{
		RegistrationStatus: string(next),
		PaidTotal:          paid,
	}, nil
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, channel paymentdomain.Channel, actor, action string, paymentID snowflake.ID, metadata map[string]any) error {
	entry := auditdomain.Entry{
		ActorID:    actor,
		Action:     action,
		TargetType: auditdomain.TargetPayment,
		TargetID:   paymentID.String(),
		Metadata:   metadata,
	}
	if actor != "" {
		entry.ActorType = auditdomain.ActorTypeStaff
	} else if channel == paymentdomain.ChannelOnline {
		entry.ActorType = auditdomain.ActorTypeGateway
	}
	return s.auditSvc.AuditLog(ctx, tx, entry)
}

func (s *Service) recordInvalidTransition(ctx context.Context, from, to string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordInvalidTransition(ctx, from, to)
	}
}

// ensureWithinPrice rejects a confirmation that would push paid above the price.
func ensureWithinPrice(reg *regdomain.Registration, payments []paymentdomain.Payment, amount decimal.Decimal) error {
	paid, _ := paymentdomain.Tally(payments)
	after := paid.Add(amount)
	if after.GreaterThan(reg.FinalPrice) {
		return fmt.Errorf("%w: paid %s + %s exceeds %s", paymentdomain.ErrOverpaymentRejected,
			paid.StringFixed(2), amount.StringFixed(2), reg.FinalPrice.StringFixed(2))
	}
	return nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func find(payments []paymentdomain.Payment, id snowflake.ID) *paymentdomain.Payment {
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i]
		}
	}
	return nil
}

func replace(payments []paymentdomain.Payment, updated paymentdomain.Payment) []paymentdomain.Payment {
	out := make([]paymentdomain.Payment, len(payments))
	copy(out, payments)
	for i := range out {
		if out[i].ID == updated.ID {
			out[i] = updated
		}
	}
	return out
}

func remove(payments []paymentdomain.Payment, id snowflake.ID) []paymentdomain.Payment {
	out := make([]paymentdomain.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
