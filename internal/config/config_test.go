package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_TYPE", "REDIS_ADDR", "PAYMENT_GATEWAY", "LEDGER_CHECKOUT_WINDOW", "FEE_RATES_STORE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, "mercadopago", cfg.Gateway.Provider)
	assert.Equal(t, 48*time.Hour, cfg.Ledger.CheckoutWindow)
	assert.Equal(t, RateStoreSQL, cfg.Rates.Store)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("SNOWFLAKE_NODE_ID", "7")
	t.Setenv("REDIS_ADDR", " localhost:6379 ")
	t.Setenv("LEDGER_LOCK_TTL", "1m")
	t.Setenv("LEDGER_ALLOW_REOPEN", "no")
	t.Setenv("LEDGER_OFFLINE_DEFAULT_STATUS", "PENDING")
	t.Setenv("MERCADOPAGO_MOCK", "on")
	t.Setenv("FEE_RATES_STORE", "DynamoDB")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, int64(7), cfg.NodeID)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.LockTTL)
	assert.False(t, cfg.Ledger.AllowReopen)
	assert.Equal(t, "pending", cfg.Ledger.OfflineDefaultStatus)
	assert.True(t, cfg.Gateway.Mock)
	assert.Equal(t, RateStoreDynamo, cfg.Rates.Store)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("LEDGER_LOCK_WAIT", "-5s")
	t.Setenv("REDIS_DB", "two")
	t.Setenv("DATABASE_METRICS_ENABLED", "maybe")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.Redis.LockWait)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.False(t, cfg.DBMetricsEnabled)
}
