package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	// NodeID seeds snowflake ids; run each process with a distinct value.
	NodeID int64

	PushGatewayURL     string
	DBMetricsEnabled   bool
	DBMetricsRefreshIn uint32

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Telemetry TelemetryConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Ledger    LedgerConfig
	Rates     RatesConfig
	Scheduler SchedulerConfig
}

// TelemetryConfig covers logging and OTLP export.
type TelemetryConfig struct {
	LogLevel  string
	LogFormat string
	// LogOutput is stdout, stderr or a file path.
	LogOutput string

	OtelEnabled   bool
	OtlpEndpoint  string
	OtlpProtocol  string
	SamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

// Enabled reports whether a distributed lock backend is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type GatewayConfig struct {
	Provider      string
	AccessToken   string
	WebhookSecret string
	Mock          bool
	RefundTimeout time.Duration
}

type LedgerConfig struct {
	// OfflineDefaultStatus is applied to offline entries that do not request a status.
	OfflineDefaultStatus string
	AllowReopen          bool
	CheckoutWindow       time.Duration
}

// SchedulerConfig drives the long-running worker. Jobs lists the enabled
// job names; empty enables all of them.
type SchedulerConfig struct {
	Interval    time.Duration
	JobTimeout  time.Duration
	ReplayLimit int
	Jobs        []string
}

type RatesConfig struct {
	File           string
	Store          string
	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string
}

const (
	RateStoreSQL    = "sql"
	RateStoreDynamo = "dynamodb"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:            getenv("APP_SERVICE", "eventledger"),
		AppVersion:         getenv("APP_VERSION", "0.1.0"),
		Environment:        getenv("ENVIRONMENT", "development"),
		NodeID:             getenvInt64("SNOWFLAKE_NODE_ID", 1),
		PushGatewayURL:     strings.TrimSpace(getenv("PROMETHEUS_PUSHGATEWAY_URL", "")),
		DBMetricsEnabled:   getenvBool("DATABASE_METRICS_ENABLED", false),
		DBMetricsRefreshIn: uint32(getenvInt64("DATABASE_METRICS_REFRESH_SECONDS", 15)),
		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "eventledger"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBPath:             getenv("DATABASE_PATH", "eventledger.db"),
		DBMaxIdleConn:      int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:      int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime:  int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime:  int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			LogOutput:     strings.TrimSpace(getenv("LOG_OUTPUT", "stdout")),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtlpEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			OtlpProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
			LockTTL:  getenvDuration("LEDGER_LOCK_TTL", 30*time.Second),
			LockWait: getenvDuration("LEDGER_LOCK_WAIT", 5*time.Second),
		},
		Gateway: GatewayConfig{
			Provider:      strings.ToLower(getenv("PAYMENT_GATEWAY", "mercadopago")),
			AccessToken:   strings.TrimSpace(getenv("MERCADOPAGO_ACCESS_TOKEN", "")),
			WebhookSecret: strings.TrimSpace(getenv("MERCADOPAGO_WEBHOOK_SECRET", "")),
			Mock:          getenvBool("PAYMENT_GATEWAY_MOCK", false) || getenvBool("MERCADOPAGO_MOCK", false),
			RefundTimeout: getenvDuration("PAYMENT_GATEWAY_REFUND_TIMEOUT", 15*time.Second),
		},
		Ledger: LedgerConfig{
			OfflineDefaultStatus: strings.ToLower(getenv("LEDGER_OFFLINE_DEFAULT_STATUS", "confirmed")),
			AllowReopen:          getenvBool("LEDGER_ALLOW_REOPEN", true),
			CheckoutWindow:       getenvDuration("LEDGER_CHECKOUT_WINDOW", 48*time.Hour),
		},
		Rates: RatesConfig{
			File:           strings.TrimSpace(getenv("FEE_RATES_FILE", "")),
			Store:          strings.ToLower(getenv("FEE_RATES_STORE", RateStoreSQL)),
			DynamoTable:    getenv("FEE_RATES_DYNAMODB_TABLE", "fee_rate_versions"),
			DynamoRegion:   getenv("AWS_REGION", "us-east-1"),
			DynamoEndpoint: strings.TrimSpace(getenv("DYNAMODB_ENDPOINT", "")),
		},
		Scheduler: SchedulerConfig{
			Interval:    getenvDuration("SCHEDULER_INTERVAL", time.Minute),
			JobTimeout:  getenvDuration("SCHEDULER_JOB_TIMEOUT", 30*time.Second),
			ReplayLimit: int(getenvInt64("SCHEDULER_REPLAY_LIMIT", 50)),
			Jobs:        getenvList("SCHEDULER_JOBS"),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
