// Package metrics defines the Prometheus metric collectors used by the
// search core and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the search core.
type Metrics struct {
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheEvictionsTotal  prometheus.Counter
	ElementsIndexedTotal prometheus.Counter
	ElementsRemovedTotal prometheus.Counter
	IndexingErrorsTotal  prometheus.Counter
	IndexedElements      prometheus.Gauge
	IndexedTerms         prometheus.Gauge
	UpdateQueueDepth     prometheus.Gauge
	FuzzyScansTotal      prometheus.Counter
	SuggestionsTotal     prometheus.Counter
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by outcome (hit, zero_result, invalid, error).",
			},
			[]string{"outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CacheEvictionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "result_cache_evictions_total",
				Help: "Total cache entries evicted by TTL expiry or size pressure.",
			},
		),
		ElementsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "elements_indexed_total",
				Help: "Total elements added to the index, including re-adds.",
			},
		),
		ElementsRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "elements_removed_total",
				Help: "Total elements removed from the index.",
			},
		),
		IndexingErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "indexing_errors_total",
				Help: "Total per-element indexing failures (skipped, not fatal).",
			},
		),
		IndexedElements: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_elements",
				Help: "Current number of elements in the index.",
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_terms",
				Help: "Current number of distinct terms in the index.",
			},
		),
		UpdateQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_update_queue_depth",
				Help: "Pending element changes waiting for the index worker.",
			},
		),
		FuzzyScansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fuzzy_scans_total",
				Help: "Total fuzzy (linear) index scans performed.",
			},
		),
		SuggestionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "suggestions_total",
				Help: "Total suggestion lookups.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
	}

	prometheus.MustRegister(
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.ElementsIndexedTotal,
		m.ElementsRemovedTotal,
		m.IndexingErrorsTotal,
		m.IndexedElements,
		m.IndexedTerms,
		m.UpdateQueueDepth,
		m.FuzzyScansTotal,
		m.SuggestionsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
