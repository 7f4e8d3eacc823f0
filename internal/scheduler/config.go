package scheduler

import (
	"time"

	"github.com/smallbiznis/eventledger/internal/config"
)

const (
	JobExpireCheckouts = "expire_checkouts"
	JobReplayCallbacks = "replay_callbacks"
)

// Config controls worker intervals and batch sizes.
type Config struct {
	RunInterval    time.Duration
	JobTimeout     time.Duration
	ReplayLimit    int
	Provider       string
	PushGatewayURL string
	Environment    string
	EnabledJobs    []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
		ReplayLimit: 50,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:    cfg.Scheduler.Interval,
		JobTimeout:     cfg.Scheduler.JobTimeout,
		ReplayLimit:    cfg.Scheduler.ReplayLimit,
		Provider:       cfg.Gateway.Provider,
		PushGatewayURL: cfg.PushGatewayURL,
		Environment:    cfg.Environment,
		EnabledJobs:    cfg.Scheduler.Jobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.ReplayLimit <= 0 {
		c.ReplayLimit = defaults.ReplayLimit
	}
	return c
}

func (c Config) enabled(job string) bool {
	if len(c.EnabledJobs) == 0 {
		return true
	}
	for _, name := range c.EnabledJobs {
		if name == job {
			return true
		}
	}
	return false
}
