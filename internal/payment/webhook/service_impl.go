package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/smallbiznis/eventledger/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	RegRepo    regdomain.Repository
	Ledger     paymentdomain.Ledger
	Gateway    paymentdomain.Gateway
	Clock      clock.Clock         `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Service turns gateway notifications into ledger attempts. Every verified
// notification is stored once per provider event before it is applied.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	regRepo    regdomain.Repository
	ledger     paymentdomain.Ledger
	gateway    paymentdomain.Gateway
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.CallbackService {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.webhook"),
		genID:      p.GenID,
		repo:       p.Repo,
		regRepo:    p.RegRepo,
		ledger:     p.Ledger,
		gateway:    p.Gateway,
		clock:      clk,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) (string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "", paymentdomain.ErrInvalidProvider
	}
	if s.gateway == nil || s.gateway.Provider() != provider {
		return "", paymentdomain.ErrProviderNotFound
	}
	if !json.Valid(payload) {
		return "", paymentdomain.ErrInvalidPayload
	}

	ctx, _ = correlation.EnsureCorrelationID(ctx)
	log := logger.WithContext(ctx, s.log).With(zap.String("provider", provider))

	if err := s.gateway.Verify(ctx, payload, headers); err != nil {
		log.Warn("callback verification failed", zap.Error(err))
		return "", err
	}

	cb, err := s.gateway.ParseCallback(ctx, payload, headers)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			return paymentdomain.CallbackOutcomeIgnored, nil
		}
		return "", err
	}

	rawHeaders, err := json.Marshal(pickHeaders(headers))
	if err != nil {
		return "", err
	}
	record := paymentdomain.CallbackRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: cb.ProviderEventID,
		Payload:         datatypes.JSON(payload),
		Headers:         datatypes.JSON(rawHeaders),
		ReceivedAt:      s.clock.Now(),
	}
	inserted, err := s.repo.InsertCallback(ctx, s.db, &record)
	if err != nil {
		return "", err
	}
	stored := &record
	if !inserted {
		stored, err = s.repo.FindCallback(ctx, s.db, provider, cb.ProviderEventID)
		if err != nil {
			return "", err
		}
		if stored == nil {
			return "", paymentdomain.ErrInvalidPayload
		}
		if stored.ProcessedAt != nil {
			log.Info("callback already processed", zap.String("provider_event_id", cb.ProviderEventID))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordDuplicateCallback(ctx, provider)
			}
			return paymentdomain.CallbackOutcomeDuplicate, nil
		}
	}

	return s.apply(ctx, stored, cb)
}

// Replay re-applies stored callbacks that never finished processing.
func (s *Service) Replay(ctx context.Context, provider string, limit int) (int, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	records, err := s.repo.ListUnprocessedCallbacks(ctx, s.db, provider, limit)
	if err != nil {
		return 0, err
	}

	done := 0
	var errs []error
	for i := range records {
		record := &records[i]
		var headers http.Header
		if len(record.Headers) > 0 {
			_ = json.Unmarshal(record.Headers, &headers)
		}
		cb, err := s.gateway.ParseCallback(ctx, record.Payload, headers)
		if err != nil {
			if errors.Is(err, paymentdomain.ErrEventIgnored) {
				if err := s.repo.MarkCallbackProcessed(ctx, s.db, record.ID, paymentdomain.CallbackOutcomeIgnored, s.clock.Now()); err != nil {
					errs = append(errs, err)
					continue
				}
				done++
				continue
			}
			errs = append(errs, err)
			continue
		}
		if _, err := s.apply(ctx, record, cb); err != nil && !isRejection(err) {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func (s *Service) apply(ctx context.Context, record *paymentdomain.CallbackRecord, cb *paymentdomain.Callback) (string, error) {
	log := logger.WithContext(ctx, s.log).With(
		zap.String("provider", record.Provider),
		zap.String("provider_event_id", record.ProviderEventID),
	)

	outcome, err := s.record(ctx, cb)
	if err != nil && !isRejection(err) {
		log.Error("callback processing failed", zap.Error(err))
		return "", err
	}
	if err != nil {
		log.Warn("callback rejected", zap.String("external_reference", cb.ExternalReference), zap.Error(err))
	}
	if markErr := s.repo.MarkCallbackProcessed(ctx, s.db, record.ID, outcome, s.clock.Now()); markErr != nil {
		return "", markErr
	}
	return outcome, err
}

func (s *Service) record(ctx context.Context, cb *paymentdomain.Callback) (string, error) {
	orderCode := strings.TrimSpace(cb.OrderReference)
	if orderCode == "" {
		return paymentdomain.CallbackOutcomeRejected, paymentdomain.ErrReferenceMismatch
	}
	reg, err := s.regRepo.FindByOrderCode(ctx, s.db, orderCode)
	if err != nil {
		return "", err
	}
	if reg == nil {
		return paymentdomain.CallbackOutcomeRejected, regdomain.ErrNotFound
	}

	result, err := s.ledger.Record(ctx, paymentdomain.Attempt{
		RegistrationID:    reg.ID,
		Channel:           paymentdomain.ChannelOnline,
		Method:            cb.Method,
		Status:            cb.Status,
		Amount:            cb.Amount,
		Installments:      cb.Installments,
		CardBrand:         cb.CardBrand,
		ExternalReference: cb.ExternalReference,
	})
	if err != nil {
		return paymentdomain.CallbackOutcomeRejected, err
	}
	if result.Duplicate {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordDuplicateCallback(ctx, cb.Provider)
		}
		return paymentdomain.CallbackOutcomeDuplicate, nil
	}
	if result.RefundRequired {
		return paymentdomain.CallbackOutcomeRefundRequired, nil
	}
	return paymentdomain.CallbackOutcomeRecorded, nil
}

// isRejection reports ledger decisions, as opposed to infrastructure
// failures that should be replayed.
func isRejection(err error) bool {
	for _, target := range []error{
		paymentdomain.ErrInvalidTransition,
		paymentdomain.ErrOverpaymentRejected,
		paymentdomain.ErrPaymentLimitReached,
		paymentdomain.ErrReferenceMismatch,
		paymentdomain.ErrCancellationPending,
		paymentdomain.ErrInvalidAttempt,
		paymentdomain.ErrInvalidAmount,
		regdomain.ErrNotFound,
		regdomain.ErrRegistrationClosed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func pickHeaders(headers http.Header) http.Header {
	out := http.Header{}
	for _, key := range []string{"x-signature", "x-request-id", "content-type"} {
		if value := headers.Get(key); value != "" {
			out.Set(key, value)
		}
	}
	return out
}
