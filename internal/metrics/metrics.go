package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects counters for one research run. A run is a batch job, so
// instead of serving /metrics the registry is written to a node_exporter
// textfile when the run ends.
type Recorder struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	RateLimitWaits  *prometheus.CounterVec
	RateLimitSecs   *prometheus.CounterVec
	RecordsTotal    *prometheus.CounterVec
	SeedsTotal      *prometheus.CounterVec
	ClusterSize     *prometheus.GaugeVec
}

// New creates a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_api_requests_total",
				Help: "Total number of provider API request attempts",
			},
			[]string{"endpoint", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "furrow_api_request_duration_seconds",
				Help:    "Duration of provider API request attempts in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_api_retries_total",
				Help: "Total number of backoff retries after failed attempts",
			},
			[]string{"endpoint"},
		),
		RateLimitWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_api_rate_limit_waits_total",
				Help: "Total number of HTTP 429 cooldowns",
			},
			[]string{"endpoint"},
		),
		RateLimitSecs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_api_rate_limit_wait_seconds_total",
				Help: "Total seconds spent waiting out HTTP 429 cooldowns",
			},
			[]string{"endpoint"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_keyword_records_total",
				Help: "Total keyword records produced by providers",
			},
			[]string{"provider", "keyword_type"},
		),
		SeedsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "furrow_seeds_total",
				Help: "Total seed keywords processed by outcome",
			},
			[]string{"outcome"},
		),
		ClusterSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "furrow_cluster_keywords",
				Help: "Number of keywords assigned to each cluster bucket in the last run",
			},
			[]string{"bucket"},
		),
	}
}

// ObserveRequest implements httpclient.Observer.
func (r *Recorder) ObserveRequest(endpoint, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRetry implements httpclient.Observer.
func (r *Recorder) ObserveRetry(endpoint string) {
	if r == nil {
		return
	}
	r.RetriesTotal.WithLabelValues(endpoint).Inc()
}

// ObserveRateLimit implements httpclient.Observer.
func (r *Recorder) ObserveRateLimit(endpoint string, wait time.Duration) {
	if r == nil {
		return
	}
	r.RateLimitWaits.WithLabelValues(endpoint).Inc()
	r.RateLimitSecs.WithLabelValues(endpoint).Add(wait.Seconds())
}

// RecordRecords counts records a provider produced.
func (r *Recorder) RecordRecords(provider, keywordType string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.RecordsTotal.WithLabelValues(provider, keywordType).Add(float64(n))
}

// RecordSeed counts a processed seed; outcome is "ok", "empty" or "failed".
func (r *Recorder) RecordSeed(outcome string) {
	if r == nil {
		return
	}
	r.SeedsTotal.WithLabelValues(outcome).Inc()
}

// RecordCluster sets the size of a cluster bucket.
func (r *Recorder) RecordCluster(bucket string, n int) {
	if r == nil {
		return
	}
	r.ClusterSize.WithLabelValues(bucket).Set(float64(n))
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}
