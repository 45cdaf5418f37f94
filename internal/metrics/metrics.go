// Package metrics exposes Prometheus collectors for extractions, the result
// cache, chat replies and the HTTP API.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jmylchreest/linkmagico/pkg/linkmagico"
)

// Namespace prefixes every metric name.
const Namespace = "linkmagico"

// Metrics holds the application collectors.
type Metrics struct {
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	FetchDuration      prometheus.Histogram

	CacheEntries     prometheus.Gauge
	CachePurgedTotal prometheus.Counter

	ChatRepliesTotal *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter
}

// New creates and registers the collectors with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{}

	m.initExtractionMetrics(factory)
	m.initCacheMetrics(factory)
	m.initHTTPMetrics(factory)

	return m
}

func (m *Metrics) initExtractionMetrics(factory promauto.Factory) {
	m.ExtractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "extractions_total",
			Help:      "Total number of extraction requests by outcome and error kind.",
		},
		[]string{"outcome", "error_kind"},
	)

	m.ExtractionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of extraction requests, including cache hits.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	m.FetchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of page fetches.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
	)

	m.ChatRepliesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chat_replies_total",
			Help:      "Total number of chat replies by responder and topic.",
		},
		[]string{"responder", "topic"},
	)
}

func (m *Metrics) initCacheMetrics(factory promauto.Factory) {
	m.CacheEntries = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Number of entries in the result cache, including expired ones not yet swept.",
		},
	)

	m.CachePurgedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "purged_total",
			Help:      "Total number of expired entries removed by the sweeper.",
		},
	)
}

func (m *Metrics) initHTTPMetrics(factory promauto.Factory) {
	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	m.RateLimitedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		},
	)
}

// OnExtraction implements linkmagico.ExtractionObserver.
func (m *Metrics) OnExtraction(_ context.Context, event linkmagico.ExtractionEvent) {
	outcome := string(event.Outcome)
	m.ExtractionsTotal.WithLabelValues(outcome, string(event.ErrorKind)).Inc()
	m.ExtractionDuration.WithLabelValues(outcome).Observe(event.Duration.Seconds())
	if event.FetchDuration > 0 {
		m.FetchDuration.Observe(event.FetchDuration.Seconds())
	}
}

// OnPurge records a cache sweep that removed n entries.
func (m *Metrics) OnPurge(n int) {
	m.CachePurgedTotal.Add(float64(n))
}

// SetCacheEntries records the current cache size.
func (m *Metrics) SetCacheEntries(n int) {
	m.CacheEntries.Set(float64(n))
}

// ObserveChatReply counts a chat reply.
func (m *Metrics) ObserveChatReply(responder, topic string) {
	m.ChatRepliesTotal.WithLabelValues(responder, topic).Inc()
}

// ObserveHTTPRequest records a completed HTTP request. path should be the
// route template, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
}

// ObserveRateLimited counts a rejected request.
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitedTotal.Inc()
}
