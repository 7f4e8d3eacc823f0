package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/clock"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/smallbiznis/eventledger/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLedger struct {
	paymentdomain.Ledger
	calls atomic.Int32
	n     int
	err   error
	seen  context.Context
}

func (f *fakeLedger) ExpireStale(ctx context.Context) (int, error) {
	f.calls.Add(1)
	f.seen = ctx
	return f.n, f.err
}

type fakeCallbacks struct {
	paymentdomain.CallbackService
	calls    atomic.Int32
	provider string
	limit    int
	block    bool
}

func (f *fakeCallbacks) Replay(ctx context.Context, provider string, limit int) (int, error) {
	f.calls.Add(1)
	f.provider, f.limit = provider, limit
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 0, nil
}

func newScheduler(t *testing.T, cfg Config, ledger *fakeLedger, callbacks *fakeCallbacks) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:       zap.NewNop(),
		Ledger:    ledger,
		Callbacks: callbacks,
		Config:    cfg,
		Clock:     clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresServices(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRunsEnabledJobs(t *testing.T) {
	ledger := &fakeLedger{n: 3}
	callbacks := &fakeCallbacks{}
	s := newScheduler(t, Config{Provider: "mercadopago", ReplayLimit: 10}, ledger, callbacks)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), ledger.calls.Load())
	assert.Equal(t, int32(1), callbacks.calls.Load())
	assert.Equal(t, "mercadopago", callbacks.provider)
	assert.Equal(t, 10, callbacks.limit)

	actorType, actorID := auditdomain.ActorFromContext(ledger.seen)
	assert.Equal(t, auditdomain.ActorTypeSystem, actorType)
	assert.Equal(t, "scheduler", actorID)
	assert.NotEmpty(t, correlation.ExtractCorrelationID(ledger.seen))
}

func TestRunOnceHonoursJobList(t *testing.T) {
	ledger := &fakeLedger{}
	callbacks := &fakeCallbacks{}
	s := newScheduler(t, Config{EnabledJobs: []string{JobReplayCallbacks}}, ledger, callbacks)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, ledger.calls.Load())
	assert.Equal(t, int32(1), callbacks.calls.Load())
}

func TestRunOnceWrapsJobErrors(t *testing.T) {
	boom := errors.New("db down")
	ledger := &fakeLedger{err: boom}
	callbacks := &fakeCallbacks{}
	s := newScheduler(t, Config{}, ledger, callbacks)

	err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobExpireCheckouts)
	assert.Equal(t, int32(1), callbacks.calls.Load(), "a failing job does not stop the others")
}

func TestJobTimeoutIsSoft(t *testing.T) {
	s := newScheduler(t, Config{JobTimeout: 10 * time.Millisecond}, &fakeLedger{}, &fakeCallbacks{block: true})
	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	ledger := &fakeLedger{}
	s := newScheduler(t, Config{RunInterval: 5 * time.Millisecond}, ledger, &fakeCallbacks{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ledger.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestEnabled(t *testing.T) {
	assert.True(t, Config{}.enabled(JobExpireCheckouts))
	assert.False(t, Config{EnabledJobs: []string{JobReplayCallbacks}}.enabled(JobExpireCheckouts))
}
