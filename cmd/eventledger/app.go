package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/eventledger/internal/audit"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/cancellation"
	cancellationdomain "github.com/smallbiznis/eventledger/internal/cancellation/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	"github.com/smallbiznis/eventledger/internal/config"
	"github.com/smallbiznis/eventledger/internal/expense"
	expensedomain "github.com/smallbiznis/eventledger/internal/expense/domain"
	"github.com/smallbiznis/eventledger/internal/feerate"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/internal/finance"
	financedomain "github.com/smallbiznis/eventledger/internal/finance/domain"
	"github.com/smallbiznis/eventledger/internal/finance/report"
	"github.com/smallbiznis/eventledger/internal/lock"
	"github.com/smallbiznis/eventledger/internal/observability"
	obsmetrics "github.com/smallbiznis/eventledger/internal/observability/metrics"
	"github.com/smallbiznis/eventledger/internal/payment"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/internal/registration"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/smallbiznis/eventledger/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 15 * time.Second
)

// services is everything a command may need from the container.
type services struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Registrations regdomain.Service
	Ledger        paymentdomain.Ledger
	Callbacks     paymentdomain.CallbackService
	Cancellations cancellationdomain.Service
	Rates         feeratedomain.Service
	Expenses      expensedomain.Service
	Finance       financedomain.Aggregator
	Reports       report.Renderer
	Audit         auditdomain.Service
}

func infraModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
		fx.Provide(newSnowflake),
	)
}

func domainModules() fx.Option {
	return fx.Options(
		lock.Module,
		audit.Module,
		registration.Module,
		payment.Module,
		cancellation.Module,
		feerate.Module,
		expense.Module,
		finance.Module,
	)
}

func newSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

// run starts a short-lived app, hands the resolved services to fn and
// stops the app again.
func run(cmd *cobra.Command, fn func(ctx context.Context, s services) error) error {
	var resolved services
	app := fx.New(
		fx.NopLogger,
		infraModules(),
		domainModules(),
		fx.Invoke(func(s services) { resolved = s }),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(cmd.Context(), startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(cmd.Context(), resolved)
}

// job wraps a batch run so its counts reach the push gateway.
func job(s services, name string, fn func(run *obsmetrics.JobRun) error) error {
	run := obsmetrics.NewJobRun(s.Cfg.PushGatewayURL, name, s.Cfg.Environment, s.Log)
	err := fn(run)
	if err != nil {
		run.Failed(1)
	}
	run.Finish(context.Background())
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(raw, what string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}

// parseTime accepts a date or an RFC 3339 timestamp. Dates are midnight UTC.
func parseTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q: use YYYY-MM-DD or RFC 3339", raw)
	}
	t = t.UTC()
	return &t, nil
}
