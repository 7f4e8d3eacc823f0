package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log       *zap.Logger
	Ledger    paymentdomain.Ledger
	Callbacks paymentdomain.CallbackService
	Config    Config
	Clock     clock.Clock `optional:"true"`
}

// Scheduler runs the periodic ledger housekeeping: expiring abandoned
// checkouts and replaying gateway callbacks that were stored but not
// applied.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	ledger    paymentdomain.Ledger
	callbacks paymentdomain.CallbackService
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Ledger == nil || p.Callbacks == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler"),
		cfg:       p.Config.withDefaults(),
		clock:     clk,
		ledger:    p.Ledger,
		callbacks: p.Callbacks,
	}, nil
}

// runJob bounds fn by the job timeout and reports its counts. A timeout is
// logged and swallowed; the next tick picks up the remaining work.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = auditdomain.WithActor(ctx, auditdomain.ActorTypeSystem, "scheduler")
	ctx, cid := correlation.EnsureCorrelationID(ctx)
	log := s.log.With(zap.String("job", name), zap.String("correlation_id", cid))

	run := obsmetrics.NewJobRun(s.cfg.PushGatewayURL, name, s.cfg.Environment, log)
	defer run.Finish(context.Background())

	n, err := fn(ctx)
	run.Processed(n)
	if n > 0 {
		log.Info("job processed items", zap.Int("count", n), zap.Duration("took", s.clock.Now().Sub(start)))
	}
	if err == nil {
		return nil
	}

	run.Failed(1)
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job once and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	jobs := []struct {
		name string
		run  func(context.Context) (int, error)
	}{
		{JobExpireCheckouts, s.ledger.ExpireStale},
		{JobReplayCallbacks, func(ctx context.Context) (int, error) {
			return s.callbacks.Replay(ctx, s.cfg.Provider, s.cfg.ReplayLimit)
		}},
	}

	var err error
	for _, job := range jobs {
		if !s.cfg.enabled(job.name) {
			continue
		}
		if ctx.Err() != nil {
			return errors.Join(err, ctx.Err())
		}
		err = errors.Join(err, s.runJob(ctx, job.name, job.run))
	}
	return err
}

// RunForever ticks until ctx is cancelled. Job failures are logged and
// never stop the loop.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", s.cfg.RunInterval), zap.Strings("jobs", s.cfg.EnabledJobs))
	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("scheduler run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
