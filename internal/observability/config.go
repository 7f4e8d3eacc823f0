package observability

import (
	"strings"

	"github.com/smallbiznis/eventledger/internal/config"
)

// Config is the observability view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
	LogOutput string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
	PushGatewayURL       string
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "eventledger"
	}
	t := cfg.Telemetry
	return Config{
		ServiceName:          name,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             t.LogLevel,
		LogFormat:            t.LogFormat,
		LogOutput:            t.LogOutput,
		OtelEnabled:          t.OtelEnabled,
		OtelExporterEndpoint: t.OtlpEndpoint,
		OtelExporterProtocol: t.OtlpProtocol,
		OtelSamplingRatio:    t.SamplingRatio,
		PushGatewayURL:       cfg.PushGatewayURL,
	}
}

// Debug turns on development logging for debug level or dev environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
