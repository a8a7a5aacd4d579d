// Package metrics provides Prometheus metrics for the critic rating service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Rating deltas are bounded by the largest K-factor (80).
var deltaBuckets = []float64{0, 1, 2, 5, 10, 15, 20, 30, 40, 60, 80}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Matchmaking
	contestsServed    *prometheus.CounterVec
	contestsExhausted prometheus.Counter
	selectionLatency  prometheus.Histogram

	// Rating updates
	resultsRecorded *prometheus.CounterVec
	recordFailures  *prometheus.CounterVec
	ratingDelta     prometheus.Histogram

	// Ranking reads
	rankingReads prometheus.Counter

	// Catalog size
	titlesTotal  prometheus.Gauge
	groupsTotal  prometheus.Gauge
	matchesTotal prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide collectors

// Custom registry keeps the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // collectors must exist before first use
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global collectors from opts on a fresh registry, which
// GetRegistry returns from then on. Call it before anything is recorded;
// values recorded earlier are dropped.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	globalManager = NewManager(append(all, WithPrometheusRegistry(reg))...)
	customRegistry = reg
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "critic",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval reports how often gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.contestsServed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "contests_served_total",
		Help:        "Contests handed out by the selector, by criteria group",
		ConstLabels: m.constLabels,
	}, []string{"group"})

	m.contestsExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "contests_exhausted_total",
		Help:        "Selections that found no eligible pair",
		ConstLabels: m.constLabels,
	})

	m.selectionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "selection_latency_milliseconds",
		Help:        "Time spent selecting the next contest",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.resultsRecorded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "results_recorded_total",
		Help:        "Judgments persisted, by outcome for contestant A",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.recordFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "record_failures_total",
		Help:        "Judgments that could not be persisted, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rating_delta_abs",
		Help:        "Absolute rating change applied per contestant",
		Buckets:     deltaBuckets,
		ConstLabels: m.constLabels,
	})

	m.rankingReads = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ranking_reads_total",
		Help:        "Ranking pages served",
		ConstLabels: m.constLabels,
	})

	m.titlesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "titles",
		Help:        "Number of rated titles",
		ConstLabels: m.constLabels,
	})

	m.groupsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "criteria_groups",
		Help:        "Number of criteria groups",
		ConstLabels: m.constLabels,
	})

	m.matchesTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_records",
		Help:        "Number of recorded judgments",
		ConstLabels: m.constLabels,
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_latency_milliseconds",
		Help:        "Store operation latency, by operation",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_errors_total",
		Help:        "Store operation errors, by operation",
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

// RecordContestServed counts a contest handed out for group.
func RecordContestServed(group string) {
	globalManager.contestsServed.WithLabelValues(group).Inc()
}

// RecordContestsExhausted counts a selection that found nothing to compare.
func RecordContestsExhausted() {
	globalManager.contestsExhausted.Inc()
}

// RecordSelectionLatency records selection latency in milliseconds.
func RecordSelectionLatency(latencyMs float64) {
	globalManager.selectionLatency.Observe(latencyMs)
}

// RecordResult counts a persisted judgment and observes both deltas.
func RecordResult(outcome string, deltaA, deltaB float64) {
	globalManager.resultsRecorded.WithLabelValues(outcome).Inc()
	globalManager.ratingDelta.Observe(abs(deltaA))
	globalManager.ratingDelta.Observe(abs(deltaB))
}

// RecordResultFailure counts a judgment that was not persisted.
func RecordResultFailure(reason string) {
	globalManager.recordFailures.WithLabelValues(reason).Inc()
}

// RecordRankingRead counts a ranking page served.
func RecordRankingRead() {
	globalManager.rankingReads.Inc()
}

// UpdateCatalogSize sets the catalog gauges.
func UpdateCatalogSize(titles, groups, matches int) {
	globalManager.titlesTotal.Set(float64(titles))
	globalManager.groupsTotal.Set(float64(groups))
	globalManager.matchesTotal.Set(float64(matches))
}

// ObserveStore records the latency of a store operation and counts failures.
func ObserveStore(op string, start time.Time, err error) {
	globalManager.storeLatency.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry backing the global collectors.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// SystemRefreshInterval reports how often callers should refresh the
// system gauges of the global collectors.
func SystemRefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
