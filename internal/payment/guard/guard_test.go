package guard

import (
	"testing"

	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/eventledger/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTransition(t *testing.T) {
	tests := []struct {
		from, to paymentdomain.Status
		want     error
	}{
		{paymentdomain.StatusPending, paymentdomain.StatusConfirmed, nil},
		{paymentdomain.StatusPending, paymentdomain.StatusDenied, nil},
		{paymentdomain.StatusConfirmed, paymentdomain.StatusRefunded, nil},
		{paymentdomain.StatusConfirmed, paymentdomain.StatusConfirmed, paymentdomain.ErrDuplicateCallback},
		{paymentdomain.StatusDenied, paymentdomain.StatusConfirmed, paymentdomain.ErrInvalidTransition},
		{paymentdomain.StatusConfirmed, paymentdomain.StatusPending, paymentdomain.ErrInvalidTransition},
		{paymentdomain.StatusRefunded, paymentdomain.StatusConfirmed, paymentdomain.ErrInvalidTransition},
		{paymentdomain.StatusPending, paymentdomain.StatusRefunded, paymentdomain.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			err := EnsureTransition(tt.from, tt.to)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTransitionErrorNamesStates(t *testing.T) {
	err := EnsureTransition(paymentdomain.StatusDenied, paymentdomain.StatusConfirmed)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, paymentdomain.StatusDenied, te.From)
	assert.Equal(t, paymentdomain.StatusConfirmed, te.To)
	assert.Contains(t, err.Error(), "denied -> confirmed")
}

func TestEnsureDeletable(t *testing.T) {
	p := paymentdomain.Payment{Channel: paymentdomain.ChannelOffline, Status: paymentdomain.StatusPending, Amount: decimal.NewFromInt(10)}
	require.NoError(t, EnsureDeletable(p))

	p.Status = paymentdomain.StatusConfirmed
	require.ErrorIs(t, EnsureDeletable(p), paymentdomain.ErrManualOnlyDeletion)

	p.Status = paymentdomain.StatusPending
	p.Channel = paymentdomain.ChannelOnline
	require.ErrorIs(t, EnsureDeletable(p), paymentdomain.ErrManualOnlyDeletion)
}

func TestEnsureInsertStatus(t *testing.T) {
	require.NoError(t, EnsureInsertStatus(paymentdomain.ChannelOffline, paymentdomain.StatusConfirmed))
	require.NoError(t, EnsureInsertStatus(paymentdomain.ChannelOnline, paymentdomain.StatusDenied))
	require.ErrorIs(t, EnsureInsertStatus(paymentdomain.ChannelOffline, paymentdomain.StatusDenied), paymentdomain.ErrInvalidTransition)
	require.ErrorIs(t, EnsureInsertStatus(paymentdomain.ChannelOnline, paymentdomain.StatusRefunded), paymentdomain.ErrInvalidTransition)
}
