package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/smallbiznis/eventledger/internal/ledgertest"
	"github.com/smallbiznis/eventledger/internal/registration/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStartsPendingAndIsIdempotent(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()

	reg := f.Open(t, "EV-100", ledgertest.Single("100.00"))
	assert.Equal(t, domain.StatusPending, reg.Status)
	assert.True(t, reg.PaidTotal.IsZero())
	assert.Equal(t, ledgertest.Start, reg.CreatedAt)

	// later catalog changes never reach an opened registration
	f.Catalog.Set("EV-100", ledgertest.Single("150.00"))
	again, err := f.Registry.Open(ctx, domain.OpenRequest{OrderCode: " EV-100 "})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, again.ID)
	assert.True(t, again.FinalPrice.Equal(ledgertest.Dec("100")))
}

func TestOpenFreeRegistrationIsConfirmed(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())

	reg := f.Open(t, "EV-FREE", ledgertest.Single("0"))
	assert.Equal(t, domain.StatusConfirmed, reg.Status)
}

func TestOpenRejectsInvalidInput(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()

	_, err := f.Registry.Open(ctx, domain.OpenRequest{OrderCode: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderCode)

	_, err = f.Registry.Open(ctx, domain.OpenRequest{OrderCode: "EV-UNKNOWN"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.Catalog.Set("EV-BAD", ledgertest.BalanceDue("100", "150"))
	_, err = f.Registry.Open(ctx, domain.OpenRequest{OrderCode: "EV-BAD"})
	assert.ErrorIs(t, err, domain.ErrInvalidPricing)
}

func TestOpenConcurrentCallsShareOneRegistration(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	f.Catalog.Set("EV-RACE", ledgertest.Single("80"))

	var wg sync.WaitGroup
	ids := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, err := f.Registry.Open(context.Background(), domain.OpenRequest{OrderCode: "EV-RACE"})
			if assert.NoError(t, err) {
				ids <- reg.ID.String()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1)
}

func TestGetByOrderCode(t *testing.T) {
	f := ledgertest.New(t, ledgertest.DefaultConfig())
	ctx := context.Background()
	reg := f.Open(t, "EV-200", ledgertest.BalanceDue("300", "50"))

	found, err := f.Registry.GetByOrderCode(ctx, "EV-200")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, found.ID)
	assert.Equal(t, domain.PaymentModeBalanceDue, found.PaymentMode)
	require.NotNil(t, found.MinDepositAmount)
	assert.True(t, found.MinDepositAmount.Equal(ledgertest.Dec("50")))

	_, err = f.Registry.GetByOrderCode(ctx, "EV-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.Registry.Get(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
