// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	DistanceQueriesTotal  *prometheus.CounterVec
	DistanceLatency       *prometheus.HistogramVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	ClaimsProcessedTotal  *prometheus.CounterVec
	ClaimsIngestedTotal   *prometheus.CounterVec
	LearningEpochsTotal   prometheus.Counter
	LearningEpochResidual prometheus.Gauge
	LearningRunDuration   prometheus.Histogram
	ModelVersion          prometheus.Gauge
	SnapshotsWrittenTotal *prometheus.CounterVec
	EventsPublishedTotal  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them on reg. A nil reg uses the
// process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DistanceQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "distance_queries_total",
				Help: "Total distance queries by cache status (hit, miss, bypass).",
			},
			[]string{"cache_status"},
		),
		DistanceLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distance_latency_seconds",
				Help:    "Distance query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of distance cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of distance cache misses.",
			},
		),
		ClaimsProcessedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_processed_total",
				Help: "Oracle claims processed by the learner, by outcome (applied or a skip reason).",
			},
			[]string{"outcome"},
		),
		ClaimsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_ingested_total",
				Help: "Oracle claims received through the ingestion API, by status.",
			},
			[]string{"status"},
		),
		LearningEpochsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "learning_epochs_total",
				Help: "Total learning epochs completed.",
			},
		),
		LearningEpochResidual: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "learning_epoch_residual",
				Help: "Mean distance from each claim to its interval after the last epoch.",
			},
		),
		LearningRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "learning_run_duration_seconds",
				Help:    "Duration of complete learning runs in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		ModelVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_version",
				Help: "Version of the weights currently served.",
			},
		),
		SnapshotsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshots_written_total",
				Help: "Weight snapshots written by status.",
			},
			[]string{"status"},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_published_total",
				Help: "Model events published to Kafka by status.",
			},
			[]string{"status"},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DistanceQueriesTotal,
		m.DistanceLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.ClaimsProcessedTotal,
		m.ClaimsIngestedTotal,
		m.LearningEpochsTotal,
		m.LearningEpochResidual,
		m.LearningRunDuration,
		m.ModelVersion,
		m.SnapshotsWrittenTotal,
		m.EventsPublishedTotal,
	)

	return m
}

// ObserveClaim counts one learner outcome.
func (m *Metrics) ObserveClaim(outcome string) {
	m.ClaimsProcessedTotal.WithLabelValues(outcome).Inc()
}

// ObserveEpoch records a finished epoch and its residual.
func (m *Metrics) ObserveEpoch(residual float64) {
	m.LearningEpochsTotal.Inc()
	m.LearningEpochResidual.Set(residual)
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
