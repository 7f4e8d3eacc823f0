package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// JobRun tracks one operator-triggered batch run (expire sweep, refund
// retries, callback replay). Batch commands exit before any scrape, so the
// results are pushed to a Pushgateway when one is configured.
type JobRun struct {
	job      string
	endpoint string
	grouping map[string]string
	started  time.Time
	log      *zap.Logger

	registry  *prometheus.Registry
	processed prometheus.Counter
	failed    prometheus.Counter
	duration  prometheus.Gauge
	lastRun   prometheus.Gauge
}

func NewJobRun(endpoint, job, environment string, log *zap.Logger) *JobRun {
	if log == nil {
		log = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	run := &JobRun{
		job:      strings.TrimSpace(job),
		endpoint: strings.TrimSpace(endpoint),
		grouping: map[string]string{"environment": strings.TrimSpace(environment)},
		started:  time.Now(),
		log:      log,
		registry: registry,
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventledger_job_items_processed_total",
			Help: "Items handled by the batch job.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventledger_job_items_failed_total",
			Help: "Items the batch job could not handle.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventledger_job_duration_seconds",
			Help: "Wall time of the last batch run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eventledger_job_last_run_timestamp_seconds",
			Help: "Unix time the batch run finished.",
		}),
	}
	registry.MustRegister(run.processed, run.failed, run.duration, run.lastRun)
	return run
}

func (r *JobRun) Processed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.processed.Add(float64(n))
}

func (r *JobRun) Failed(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.failed.Add(float64(n))
}

// Finish records the run duration and pushes when an endpoint is set.
// Push failures are logged and never fail the job.
func (r *JobRun) Finish(ctx context.Context) {
	if r == nil {
		return
	}
	r.duration.Set(time.Since(r.started).Seconds())
	r.lastRun.Set(float64(time.Now().Unix()))

	if r.endpoint == "" || r.job == "" {
		return
	}

	pusher := push.New(r.endpoint, r.job).Gatherer(r.registry)
	for key, value := range r.grouping {
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}
	if err := pusher.PushContext(ctx); err != nil {
		r.log.Warn("pushgateway push failed", zap.String("job", r.job), zap.Error(err))
	}
}

func (r *JobRun) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}
