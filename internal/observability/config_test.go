package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smallbiznis/eventledger/internal/config"
)

func TestLoadConfigMapsTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:    "production",
		PushGatewayURL: "http://push:9091",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "warn",
			LogOutput:     "stderr",
			OtelEnabled:   true,
			OtlpEndpoint:  "collector:4317",
			SamplingRatio: 0.5,
		},
	})

	assert.Equal(t, "eventledger", cfg.ServiceName)
	assert.Equal(t, "stderr", cfg.LogOutput)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.Equal(t, "http://push:9091", cfg.PushGatewayURL)
	assert.False(t, cfg.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "debug", Environment: "production"}.Debug())
	assert.True(t, Config{Environment: "Local"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}
