package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/eventledger/internal/audit/domain"
	"github.com/smallbiznis/eventledger/internal/fee"
	feeratedomain "github.com/smallbiznis/eventledger/internal/feerate/domain"
	"github.com/smallbiznis/eventledger/internal/ledgertest"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	regdomain "github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func countAudit(t *testing.T, f *ledgertest.Fixture, action, targetID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.DB.Model(&auditdomain.AuditLog{}).
		Where("action = ? AND target_id = ?", action, targetID).
		Count(&n).Error)
	return n
}

func TestRecordOfflineCashConfirmsSingle(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-A", ledgertest.Single("100.00"))

	res, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100.00"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Duplicate)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
	assert.True(t, res.PaidTotal.Equal(ledgertest.Dec("100")))
	assert.Equal(t, paymentdomain.StatusConfirmed, res.Payment.Status)
	assert.Nil(t, res.Payment.ExternalReference)

	stored := f.Reload(t, reg.ID)
	assert.Equal(t, regdomain.StatusConfirmed, stored.Status)
	assert.True(t, stored.PaidTotal.Equal(ledgertest.Dec("100")))

	// cash carries no processing fee
	b := fee.Compute(fee.Input{Gross: res.Payment.Amount, Method: string(res.Payment.Method)}, feeratedomain.RateTable{})
	assert.True(t, b.Fee.IsZero())
	assert.True(t, b.Net.Equal(ledgertest.Dec("100")))

	assert.EqualValues(t, 1, countAudit(t, f, "payment.recorded", res.Payment.ID.String()))
	assert.EqualValues(t, 1, countAudit(t, f, "registration.status_changed", reg.ID.String()))
}

func TestRecordBalanceDueDepositThenRemainder(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-B", ledgertest.BalanceDue("300", "50"))

	res, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodPix, "60"))
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusPartial), res.RegistrationStatus)

	res, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodTransfer, "240"))
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
	assert.True(t, res.PaidTotal.Equal(ledgertest.Dec("300")))

	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestRecordBelowDepositStaysPending(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	reg := f.Open(t, "EV-B2", ledgertest.BalanceDue("300", "50"))

	res, err := f.Ledger.Record(context.Background(), ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "20"))
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusPending), res.RegistrationStatus)
	assert.True(t, res.PaidTotal.Equal(ledgertest.Dec("20")))
}

func TestRecordSinglePartialAmountStaysPending(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	reg := f.Open(t, "EV-S", ledgertest.Single("100"))

	res, err := f.Ledger.Record(context.Background(), ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "40"))
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusPending), res.RegistrationStatus)
}

func TestRecordDuplicateOnlineCallbackIsIdempotent(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-D", ledgertest.Single("100"))

	attempt := ledgertest.Online(reg.ID, "mp-1001", paymentdomain.StatusConfirmed, "100")
	first, err := f.Ledger.Record(ctx, attempt)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, string(regdomain.StatusConfirmed), first.RegistrationStatus)

	second, err := f.Ledger.Record(ctx, attempt)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)
	assert.True(t, second.PaidTotal.Equal(ledgertest.Dec("100")))

	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestRecordOnlinePendingThenConfirmed(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-P", ledgertest.Single("150"))

	res, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-2", paymentdomain.StatusPending, "150"))
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusPending), res.RegistrationStatus)
	assert.Nil(t, res.Payment.ConfirmedAt)

	f.Clock.Advance(time.Minute)
	res, err = f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-2", paymentdomain.StatusConfirmed, "150"))
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, paymentdomain.StatusConfirmed, res.Payment.Status)
	require.NotNil(t, res.Payment.ConfirmedAt)
	assert.Equal(t, ledgertest.Start.Add(time.Minute), *res.Payment.ConfirmedAt)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
}

func TestRecordRejectsIllegalTransition(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-T", ledgertest.Single("100"))

	_, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-3", paymentdomain.StatusDenied, "100"))
	require.NoError(t, err)
	assert.Equal(t, regdomain.StatusDenied, f.Reload(t, reg.ID).Status)

	_, err = f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-3", paymentdomain.StatusConfirmed, "100"))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidTransition)
	assert.Equal(t, regdomain.StatusDenied, f.Reload(t, reg.ID).Status)
}

func TestRecordDeniedThenNewAttemptConfirms(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-R", ledgertest.Single("100"))

	_, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-4", paymentdomain.StatusDenied, "100"))
	require.NoError(t, err)

	res, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-5", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
}

func TestRecordRejectsOverpayment(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-O", ledgertest.BalanceDue("100", "20"))

	_, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "70"))
	require.NoError(t, err)

	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "30.01"))
	assert.ErrorIs(t, err, paymentdomain.ErrOverpaymentRejected)

	stored := f.Reload(t, reg.ID)
	assert.True(t, stored.PaidTotal.Equal(ledgertest.Dec("70")))
	assert.Equal(t, regdomain.StatusPartial, stored.Status)
}

func TestRecordRejectsConfirmingOverpaymentOnline(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-O2", ledgertest.Single("100"))

	_, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-6", paymentdomain.StatusPending, "100"))
	require.NoError(t, err)
	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	require.NoError(t, err)

	// the registration is confirmed, but not terminal, so the cap still applies
	_, err = f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-6", paymentdomain.StatusConfirmed, "100"))
	assert.ErrorIs(t, err, paymentdomain.ErrOverpaymentRejected)
}

func TestRecordValidatesAttempt(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-V", ledgertest.Single("100"))

	cases := []struct {
		name    string
		attempt paymentdomain.Attempt
		want    error
	}{
		{"zero amount", ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "0"), paymentdomain.ErrInvalidAmount},
		{"three decimals", ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "10.005"), paymentdomain.ErrInvalidAmount},
		{"online without reference", ledgertest.Online(reg.ID, "", paymentdomain.StatusConfirmed, "10"), paymentdomain.ErrInvalidAttempt},
		{"offline denied", func() paymentdomain.Attempt {
			a := ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "10")
			a.Status = paymentdomain.StatusDenied
			return a
		}(), paymentdomain.ErrInvalidTransition},
		{"online refunded insert", ledgertest.Online(reg.ID, "mp-x", paymentdomain.StatusRefunded, "10"), paymentdomain.ErrInvalidTransition},
		{"missing registration", ledgertest.Offline(0, paymentdomain.MethodCash, "10"), paymentdomain.ErrInvalidAttempt},
		{"unknown registration", ledgertest.Offline(99, paymentdomain.MethodCash, "10"), regdomain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Ledger.Record(ctx, tc.attempt)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestRecordOfflineDefaultStatusFollowsPolicy(t *testing.T) {
	cfg := ledgertest.DefaultConfig()
	cfg.Ledger.OfflineDefaultStatus = "pending"
	f := ledgertest.New(t, cfg)
	reg := f.Open(t, "EV-DEF", ledgertest.Single("100"))

	res, err := f.Ledger.Record(context.Background(), ledgertest.Offline(reg.ID, paymentdomain.MethodPOS, "100"))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPending, res.Payment.Status)
	assert.Equal(t, string(regdomain.StatusPending), res.RegistrationStatus)
	assert.True(t, res.PaidTotal.IsZero())
}

func TestRecordReferenceBelongsToOneRegistration(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	a := f.Open(t, "EV-M1", ledgertest.Single("100"))
	b := f.Open(t, "EV-M2", ledgertest.Single("100"))

	_, err := f.Ledger.Record(ctx, ledgertest.Online(a.ID, "mp-7", paymentdomain.StatusPending, "100"))
	require.NoError(t, err)

	_, err = f.Ledger.Record(ctx, ledgertest.Online(b.ID, "mp-7", paymentdomain.StatusConfirmed, "100"))
	assert.ErrorIs(t, err, paymentdomain.ErrReferenceMismatch)
	assert.Equal(t, regdomain.StatusPending, f.Reload(t, b.ID).Status)
}

func TestRecordHonoursPaymentLimit(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	pricing := ledgertest.BalanceDue("300", "50")
	pricing.MaxPaymentCount = intPtr(2)
	reg := f.Open(t, "EV-L", pricing)

	// denied attempts never count towards the limit
	_, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-8", paymentdomain.StatusDenied, "100"))
	require.NoError(t, err)
	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	require.NoError(t, err)
	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	require.NoError(t, err)

	_, err = f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentLimitReached)
}

func TestDeleteOnlyPendingOffline(t *testing.T) {
	cfg := ledgertest.DefaultConfig()
	cfg.Ledger.OfflineDefaultStatus = "pending"
	f := ledgertest.New(t, cfg)
	ctx := context.Background()
	reg := f.Open(t, "EV-DEL", ledgertest.Single("100"))

	pending, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "50"))
	require.NoError(t, err)

	confirmedAttempt := ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "50")
	confirmedAttempt.Status = paymentdomain.StatusConfirmed
	confirmed, err := f.Ledger.Record(ctx, confirmedAttempt)
	require.NoError(t, err)

	online, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-9", paymentdomain.StatusPending, "50"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.Ledger.Delete(ctx, confirmed.Payment.ID, "staff-1"), paymentdomain.ErrManualOnlyDeletion)
	assert.ErrorIs(t, f.Ledger.Delete(ctx, online.Payment.ID, "staff-1"), paymentdomain.ErrManualOnlyDeletion)
	assert.ErrorIs(t, f.Ledger.Delete(ctx, 12345, "staff-1"), paymentdomain.ErrNotFound)

	require.NoError(t, f.Ledger.Delete(ctx, pending.Payment.ID, "staff-1"))
	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
	assert.EqualValues(t, 1, countAudit(t, f, "payment.deleted", pending.Payment.ID.String()))
	assert.True(t, f.Reload(t, reg.ID).PaidTotal.Equal(ledgertest.Dec("50")))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-RC", ledgertest.BalanceDue("300", "50"))

	_, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "60"))
	require.NoError(t, err)
	before := f.Reload(t, reg.ID)

	f.Clock.Advance(time.Hour)
	for i := 0; i < 3; i++ {
		res, err := f.Ledger.Recompute(ctx, reg.ID, false)
		require.NoError(t, err)
		assert.Equal(t, string(regdomain.StatusPartial), res.RegistrationStatus)
	}

	after := f.Reload(t, reg.ID)
	assert.Equal(t, before.Status, after.Status)
	assert.True(t, before.PaidTotal.Equal(after.PaidTotal))
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.EqualValues(t, 1, countAudit(t, f, "registration.status_changed", reg.ID.String()))
}

func TestRecomputeRepairsDriftedProjection(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-DR", ledgertest.Single("100"))

	_, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	require.NoError(t, err)
	require.NoError(t, f.DB.Exec(`UPDATE registrations SET status = ?, paid_total = 0 WHERE id = ?`,
		regdomain.StatusPending, reg.ID).Error)

	res, err := f.Ledger.Recompute(ctx, reg.ID, false)
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
	assert.True(t, f.Reload(t, reg.ID).PaidTotal.Equal(ledgertest.Dec("100")))
}

func TestExpireStaleAndReopen(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	stale := f.Open(t, "EV-E1", ledgertest.Single("100"))
	inFlight := f.Open(t, "EV-E2", ledgertest.Single("100"))
	paid := f.Open(t, "EV-E3", ledgertest.BalanceDue("100", "10"))

	_, err := f.Ledger.Record(ctx, ledgertest.Online(inFlight.ID, "mp-10", paymentdomain.StatusPending, "100"))
	require.NoError(t, err)
	_, err = f.Ledger.Record(ctx, ledgertest.Offline(paid.ID, paymentdomain.MethodCash, "20"))
	require.NoError(t, err)

	n, err := f.Ledger.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "checkout window has not elapsed")

	f.Clock.Advance(49 * time.Hour)
	fresh := f.Open(t, "EV-E4", ledgertest.Single("100"))

	n, err = f.Ledger.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, regdomain.StatusExpired, f.Reload(t, stale.ID).Status)
	assert.Equal(t, regdomain.StatusPending, f.Reload(t, inFlight.ID).Status)
	assert.Equal(t, regdomain.StatusPartial, f.Reload(t, paid.ID).Status)
	assert.Equal(t, regdomain.StatusPending, f.Reload(t, fresh.ID).Status)
	require.NotNil(t, f.Reload(t, stale.ID).ExpiredAt)

	n, err = f.Ledger.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.Ledger.Record(ctx, ledgertest.Offline(stale.ID, paymentdomain.MethodCash, "100"))
	assert.ErrorIs(t, err, paymentdomain.ErrRegistrationExpired)

	reopen := ledgertest.Offline(stale.ID, paymentdomain.MethodCash, "100")
	reopen.Reopen = true
	res, err := f.Ledger.Record(ctx, reopen)
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
}

func TestReopenNotAllowedByPolicy(t *testing.T) {
	cfg := ledgertest.DefaultConfig()
	cfg.Ledger.AllowReopen = false
	f := ledgertest.New(t, cfg)
	ctx := context.Background()
	reg := f.Open(t, "EV-NR", ledgertest.Single("100"))

	f.Clock.Advance(72 * time.Hour)
	n, err := f.Ledger.ExpireStale(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	attempt := ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100")
	attempt.Reopen = true
	_, err = f.Ledger.Record(ctx, attempt)
	assert.ErrorIs(t, err, paymentdomain.ErrReopenNotAllowed)

	_, err = f.Ledger.Recompute(ctx, reg.ID, true)
	assert.ErrorIs(t, err, paymentdomain.ErrReopenNotAllowed)
}

func TestOnlineCallbackOnExpiredRegistrationKeepsExpired(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-EX", ledgertest.Single("100"))

	f.Clock.Advance(49 * time.Hour)
	_, err := f.Ledger.ExpireStale(ctx)
	require.NoError(t, err)

	res, err := f.Ledger.Record(ctx, ledgertest.Online(reg.ID, "mp-11", paymentdomain.StatusConfirmed, "100"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, string(regdomain.StatusExpired), res.RegistrationStatus)
	assert.True(t, res.PaidTotal.Equal(ledgertest.Dec("100")))

	res, err = f.Ledger.Recompute(ctx, reg.ID, true)
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
}

func TestRepriceAppliesCatalogChange(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-RP", ledgertest.Single("100"))

	_, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "80"))
	require.NoError(t, err)
	assert.Equal(t, regdomain.StatusPending, f.Reload(t, reg.ID).Status)

	f.Catalog.Set("EV-RP", ledgertest.Single("80"))
	res, err := f.Ledger.Reprice(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, string(regdomain.StatusConfirmed), res.RegistrationStatus)
	assert.True(t, f.Reload(t, reg.ID).FinalPrice.Equal(ledgertest.Dec("80")))
	assert.EqualValues(t, 1, countAudit(t, f, "registration.repriced", reg.ID.String()))

	f.Catalog.Set("EV-RP", ledgertest.Single("50"))
	_, err = f.Ledger.Reprice(ctx, reg.ID)
	assert.ErrorIs(t, err, paymentdomain.ErrOverpaymentRejected)
	assert.True(t, f.Reload(t, reg.ID).FinalPrice.Equal(ledgertest.Dec("80")))
}

func TestAddNote(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-N", ledgertest.Single("100"))

	res, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "100"))
	require.NoError(t, err)

	assert.ErrorIs(t, f.Ledger.AddNote(ctx, res.Payment.ID, "staff-1", "   "), paymentdomain.ErrEmptyNote)
	assert.ErrorIs(t, f.Ledger.AddNote(ctx, 777, "staff-1", "typo"), paymentdomain.ErrNotFound)
	require.NoError(t, f.Ledger.AddNote(ctx, res.Payment.ID, "staff-1", "amount was 90, see receipt 12"))

	assert.EqualValues(t, 1, countAudit(t, f, "payment.note_added", res.Payment.ID.String()))
	payments, err := f.Ledger.List(ctx, reg.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(ledgertest.Dec("100")))
}

func TestConcurrentRecordsNeverOverpay(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-C", ledgertest.BalanceDue("50", "10"))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Ledger.Record(ctx, ledgertest.Offline(reg.ID, paymentdomain.MethodCash, "10"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, paymentdomain.ErrOverpaymentRejected):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	assert.Equal(t, 5, rejected)
	stored := f.Reload(t, reg.ID)
	assert.True(t, stored.PaidTotal.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, regdomain.StatusConfirmed, stored.Status)
}
