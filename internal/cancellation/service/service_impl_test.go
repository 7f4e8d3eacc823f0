package service_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/eventledger/internal/cancellation/domain"
	"github.com/smallbiznis/eventledger/internal/cancellation/repository"
	"github.com/smallbiznis/eventledger/internal/cancellation/service"
	"github.com/smallbiznis/eventledger/internal/ledgertest"
	"github.com/smallbiznis/eventledger/internal/lock"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Provider() string { return "mercadopago" }

func (m *mockGateway) Refund(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.RefundResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(paymentdomain.RefundResult), args.Error(1)
}

func (m *mockGateway) Verify(context.Context, []byte, http.Header) error { return nil }

func (m *mockGateway) ParseCallback(context.Context, []byte, http.Header) (*paymentdomain.Callback, error) {
	return nil, paymentdomain.ErrEventIgnored
}

func setup(t *testing.T) (*ledgertest.Fixture, *mockGateway, domain.Service) {
	t.Helper()
	f := ledgertest.New(t, ledgertest.DefaultConfig(), &domain.RefundAttempt{})
	gw := &mockGateway{}
	svc := service.NewService(service.Params{
		DB:          f.DB,
		Log:         zap.NewNop(),
		GenID:       f.Node,
		Cfg:         f.Cfg,
		Repo:        repository.Provide(),
		PaymentRepo: f.PaymentRepo,
		RegRepo:     f.RegRepo,
		Gateway:     gw,
		AuditSvc:    f.AuditSvc,
		Locker:      f.Locker,
		Clock:       f.Clock,
	})
	return f, gw, svc
}

func refundOf(ref string) any {
	return mock.MatchedBy(func(req paymentdomain.RefundRequest) bool {
		return req.ExternalReference == ref && req.Full
	})
}

func TestConfirmRefundFailureLeavesCancellationPending(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CE", ledgertest.Single("100"))
	rec, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "701", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)

	gw.On("Refund", mock.Anything, refundOf("701")).
		Return(paymentdomain.RefundResult{Success: false, ErrorCode: "rejected"}, nil).Once()

	res, err := svc.Confirm(ctx, reg.ID, "staff-9")
	assert.ErrorIs(t, err, domain.ErrRefundFailed)
	require.NotNil(t, res)
	assert.False(t, res.Finalized)
	assert.Equal(t, domain.PendingStatus, res.Status)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.OutcomeFailed, res.Failed[0].Outcome)
	assert.Equal(t, "rejected", res.Failed[0].ErrorCode)

	stored := f.Reload(t, reg.ID)
	assert.Equal(t, regdomain.StatusConfirmed, stored.Status)
	assert.Equal(t, regdomain.CancellationPending, stored.CancellationState)

	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, rec.Payment.ID, payments[0].ID)
	assert.Equal(t, paymentdomain.StatusConfirmed, payments[0].Status)
	assert.Equal(t, paymentdomain.RefundStateRetry, payments[0].RefundState)

	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "10"))
	assert.ErrorIs(t, err, paymentdomain.ErrCancellationPending)

	_, err = svc.Confirm(ctx, reg.ID, "staff-9")
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelling)
	gw.AssertExpectations(t)
}

func TestRetryRefundsFinalizesAsRefunded(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CR", ledgertest.BalanceDue("200", "50"))
	_, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "801", paymentdomain.StatusConfirmed, "80"))
	require.NoError(t, err)
	_, err = f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "802", paymentdomain.StatusConfirmed, "120"))
	require.NoError(t, err)

	gw.On("Refund", mock.Anything, refundOf("801")).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-1"}, nil).Once()
	gw.On("Refund", mock.Anything, refundOf("802")).
		Return(paymentdomain.RefundResult{}, context.DeadlineExceeded).Once()

	res, err := svc.Confirm(ctx, reg.ID, "staff-1")
	assert.ErrorIs(t, err, domain.ErrRefundFailed)
	require.NotNil(t, res)
	assert.Len(t, res.Refunded, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.OutcomeUnknown, res.Failed[0].Outcome)
	assert.Equal(t, "timeout", res.Failed[0].ErrorCode)
	assert.True(t, res.PaidTotal.Equal(ledgertest.Dec("120")))
	assert.True(t, f.Reload(t, reg.ID).PaidTotal.Equal(ledgertest.Dec("120")))

	gw.On("Refund", mock.Anything, refundOf("802")).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-2"}, nil).Once()

	f.Clock.Advance(time.Hour)
	res, err = svc.RetryRefunds(ctx, reg.ID, "staff-1")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, string(regdomain.StatusRefunded), res.Status)
	assert.True(t, res.PaidTotal.IsZero())

	stored := f.Reload(t, reg.ID)
	assert.Equal(t, regdomain.StatusRefunded, stored.Status)
	assert.Equal(t, regdomain.CancellationNone, stored.CancellationState)
	require.NotNil(t, stored.ClosedAt)

	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	for _, p := range payments {
		assert.Equal(t, paymentdomain.StatusRefunded, p.Status)
		assert.Equal(t, paymentdomain.RefundStateNone, p.RefundState)
	}

	attempts, err := svc.ListAttempts(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.Equal(t, attempts[0].CorrelationID, attempts[1].CorrelationID)
	assert.NotEqual(t, attempts[0].CorrelationID, attempts[2].CorrelationID)
	assert.Equal(t, domain.OutcomeSucceeded, attempts[2].Outcome)

	_, err = svc.RetryRefunds(ctx, reg.ID, "staff-1")
	assert.ErrorIs(t, err, regdomain.ErrRegistrationClosed)
	gw.AssertExpectations(t)
}

func TestConfirmKeepsOfflineMoneyAndEndsCancelled(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CO", ledgertest.Single("100"))
	_, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "50"))
	require.NoError(t, err)
	_, err = f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "901", paymentdomain.StatusConfirmed, "50"))
	require.NoError(t, err)

	plan, err := svc.Evaluate(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, plan.NeedsRefund)
	require.Len(t, plan.RefundablePayments, 1)
	assert.Equal(t, "1 offline payment totaling 50.00 (cash) must be reconciled manually", plan.NonRefundableNote)

	gw.On("Refund", mock.Anything, refundOf("901")).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-9"}, nil).Once()

	res, err := svc.Confirm(ctx, reg.ID, "staff-1")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, string(regdomain.StatusCancelled), res.Status)
	assert.True(t, res.PaidTotal.Equal(ledgertest.Dec("50")))

	_, err = svc.Evaluate(ctx, reg.ID)
	assert.ErrorIs(t, err, regdomain.ErrRegistrationClosed)
	gw.AssertExpectations(t)
}

func TestConfirmWithoutPaymentsCancelsImmediately(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CN", ledgertest.Single("100"))

	res, err := svc.Confirm(ctx, reg.ID, "")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, string(regdomain.StatusCancelled), res.Status)
	assert.NotEmpty(t, res.CorrelationID)

	_, err = svc.Confirm(ctx, reg.ID, "")
	assert.ErrorIs(t, err, regdomain.ErrRegistrationClosed)

	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	assert.ErrorIs(t, err, regdomain.ErrRegistrationClosed)
	gw.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}

func TestManualFollowUpFinalizes(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CM", ledgertest.Single("100"))
	rec, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "1001", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)

	_, err = svc.MarkManualFollowUp(ctx, rec.Payment.ID, "ops", "bank transfer back")
	assert.ErrorIs(t, err, domain.ErrNotCancelling)

	gw.On("Refund", mock.Anything, refundOf("1001")).
		Return(paymentdomain.RefundResult{Success: false, ErrorCode: "insufficient_funds"}, nil).Once()
	_, err = svc.Confirm(ctx, reg.ID, "ops")
	require.ErrorIs(t, err, domain.ErrRefundFailed)

	_, err = svc.MarkManualFollowUp(ctx, rec.Payment.ID, "ops", "  ")
	assert.ErrorIs(t, err, paymentdomain.ErrEmptyNote)

	res, err := svc.MarkManualFollowUp(ctx, rec.Payment.ID, "ops", "bank transfer back, ticket 88")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, string(regdomain.StatusCancelled), res.Status)

	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, paymentdomain.StatusConfirmed, payments[0].Status)
	assert.Equal(t, paymentdomain.RefundStateManualFollowUp, payments[0].RefundState)

	attempts, err := svc.ListAttempts(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, domain.OutcomeManual, attempts[1].Outcome)
	require.NotNil(t, attempts[1].Note)
	assert.Equal(t, "bank transfer back, ticket 88", *attempts[1].Note)
	gw.AssertExpectations(t)
}

func TestRetryWithoutCancellation(t *testing.T) {
	f, _, svc := setup(t)
	reg := f.Open(t, "EV-CX", ledgertest.Single("100"))

	_, err := svc.RetryRefunds(context.Background(), reg.ID, "ops")
	assert.ErrorIs(t, err, domain.ErrNotCancelling)
}

func TestGatewayCallRunsWithoutRegistrationLock(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CL", ledgertest.Single("100"))
	_, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "1101", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)

	gw.On("Refund", mock.Anything, refundOf("1101")).
		Run(func(mock.Arguments) {
			lockCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			release, err := f.Locker.Lock(lockCtx, lock.RegistrationKey(reg.ID))
			if assert.NoError(t, err) {
				release()
			}
		}).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-11"}, nil).Once()

	res, err := svc.Confirm(ctx, reg.ID, "ops")
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusRefunded), res.Status)
	gw.AssertExpectations(t)
}

func TestConfirmRecordsRefundAfterCallerGivesUp(t *testing.T) {
	f, gw, svc := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reg := f.Open(t, "EV-CG", ledgertest.Single("100"))
	rec, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "1201", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)

	gw.On("Refund", mock.Anything, refundOf("1201")).
		Run(func(mock.Arguments) { cancel() }).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-12"}, nil).Once()

	res, err := svc.Confirm(ctx, reg.ID, "ops")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, []snowflake.ID{rec.Payment.ID}, res.Refunded)

	stored := f.Reload(t, reg.ID)
	assert.Equal(t, regdomain.StatusRefunded, stored.Status)
	assert.Equal(t, regdomain.CancellationNone, stored.CancellationState)

	p, err := f.PaymentRepo.FindByID(context.Background(), f.DB, rec.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, p.Status)
	assert.Equal(t, paymentdomain.RefundStateNone, p.RefundState)
	gw.AssertExpectations(t)
}

func TestRetryReissuesStaleInProgressRefund(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CS", ledgertest.Single("100"))
	rec, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "1301", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)

	// A run that marked the refund and never reconciled it.
	require.NoError(t, f.RegRepo.UpdateCancellationState(ctx, f.DB, reg.ID, regdomain.CancellationPending, f.Clock.Now()))
	require.NoError(t, f.PaymentRepo.UpdateRefundState(ctx, f.DB, rec.Payment.ID, paymentdomain.RefundStateInProgress, f.Clock.Now()))

	_, err = svc.RetryRefunds(ctx, reg.ID, "ops")
	assert.ErrorIs(t, err, domain.ErrNothingToRetry)

	gw.On("Refund", mock.Anything, refundOf("1301")).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-13"}, nil).Once()

	f.Clock.Advance(time.Minute)
	res, err := svc.RetryRefunds(ctx, reg.ID, "ops")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, string(regdomain.StatusRefunded), res.Status)
	assert.Equal(t, regdomain.StatusRefunded, f.Reload(t, reg.ID).Status)
	gw.AssertExpectations(t)
}

func TestRetryRefundsLateCaptureOnClosedRegistration(t *testing.T) {
	f, gw, svc := setup(t)
	ctx := context.Background()
	reg := f.Open(t, "EV-CC", ledgertest.Single("100"))

	res, err := svc.Confirm(ctx, reg.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, string(regdomain.StatusCancelled), res.Status)

	rec, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "1401", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)
	assert.True(t, rec.RefundRequired)
	assert.Equal(t, paymentdomain.RefundStateRetry, rec.Payment.RefundState)

	gw.On("Refund", mock.Anything, refundOf("1401")).
		Return(paymentdomain.RefundResult{}, context.DeadlineExceeded).Once()
	res, err = svc.RetryRefunds(ctx, reg.ID, "ops")
	assert.ErrorIs(t, err, domain.ErrRefundFailed)
	require.NotNil(t, res)
	assert.False(t, res.Finalized)

	gw.On("Refund", mock.Anything, refundOf("1401")).
		Return(paymentdomain.RefundResult{Success: true, RefundID: "r-14"}, nil).Once()
	res, err = svc.RetryRefunds(ctx, reg.ID, "ops")
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, string(regdomain.StatusCancelled), res.Status)

	p, err := f.PaymentRepo.FindByID(ctx, f.DB, rec.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusRefunded, p.Status)

	_, err = svc.RetryRefunds(ctx, reg.ID, "ops")
	assert.ErrorIs(t, err, regdomain.ErrRegistrationClosed)
	gw.AssertExpectations(t)
}
