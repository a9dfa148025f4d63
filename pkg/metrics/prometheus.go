// Package metrics provides Prometheus metrics for the rally ladder service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace    string
	subsystem    string
	customLabels map[string]string
	metricPrefix string
	registry     prometheus.Registerer

	// Ledger
	matchesRecorded   prometheus.Counter
	matchesDeleted    prometheus.Counter
	playersRegistered prometheus.Counter
	playersRemoved    prometheus.Counter
	replays           *prometheus.CounterVec
	replayDuration    prometheus.Histogram
	replayMatches     prometheus.Histogram
	consistencyErrors prometheus.Counter
	ledgerErrors      *prometheus.CounterVec

	// State gauges
	playersTotal  prometheus.Gauge
	matchesTotal  prometheus.Gauge
	currentSeason prometheus.Gauge

	// Writer
	writerQueueSize     prometheus.Gauge
	writerQueueCapacity prometheus.Gauge
	writerRejected      prometheus.Counter
	writerLatency       *prometheus.HistogramVec

	// Reads
	predictions       prometheus.Counter
	idempotentReplays prometheus.Counter
	storeQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    "rally",
		subsystem:    "ladder",
		customLabels: make(map[string]string),
		registry:     prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix != "" {
		return m.metricPrefix + "_" + n
	}
	return n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem,
			Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem,
			Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, lv ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem,
			Name: m.name(name), Help: help, ConstLabels: labels,
		}, lv)
	}

	m.matchesRecorded = counter("matches_recorded_total", "Matches appended to the ledger")
	m.matchesDeleted = counter("matches_deleted_total", "Matches deleted from the ledger")
	m.playersRegistered = counter("players_registered_total", "Players registered")
	m.playersRemoved = counter("players_removed_total", "Players removed together with their matches")
	m.replays = counterVec("replays_total", "Full ledger replays by trigger", "trigger")
	m.replayDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: m.name("replay_duration_milliseconds"), Help: "Wall time of a full ledger replay",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}, ConstLabels: labels,
	})
	m.replayMatches = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: m.name("replay_matches"), Help: "Matches applied per full replay",
		Buckets: prometheus.ExponentialBuckets(1, 4, 9), ConstLabels: labels,
	})
	m.consistencyErrors = counter("consistency_errors_total", "Aggregates found out of sync with the match set")
	m.ledgerErrors = counterVec("ledger_errors_total", "Rejected ledger operations by op and kind", "op", "kind")

	m.playersTotal = gauge("players_total", "Registered players")
	m.matchesTotal = gauge("matches_total", "Matches in the ledger")
	m.currentSeason = gauge("current_season", "Active season tag")

	m.writerQueueSize = gauge("writer_queue_size", "Pending write commands")
	m.writerQueueCapacity = gauge("writer_queue_capacity", "Write command queue capacity")
	m.writerRejected = counter("writer_rejected_total", "Write commands rejected because the queue was full")
	m.writerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: m.name("writer_command_duration_milliseconds"), Help: "Time spent executing a write command",
		Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000}, ConstLabels: labels,
	}, []string{"command", "status"})

	m.predictions = counter("predictions_total", "Predictions served")
	m.idempotentReplays = counter("idempotent_replays_total", "POST /matches calls answered from the idempotency cache")
	m.storeQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: m.name("store_tx_duration_milliseconds"), Help: "Store transaction duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000}, ConstLabels: labels,
	}, []string{"mode"})

	m.httpRequests = counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: m.name("http_request_duration_milliseconds"), Help: "HTTP request duration",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}, ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})
	m.rateLimited = counter("http_rate_limited_total", "Requests rejected by the rate limiter")

	m.errorRateByComponent = counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
}

// RecordMatchRecorded increments the recorded matches counter.
func RecordMatchRecorded() { globalManager.matchesRecorded.Inc() }

// RecordMatchDeleted increments the deleted matches counter.
func RecordMatchDeleted() { globalManager.matchesDeleted.Inc() }

// RecordPlayerRegistered increments the registered players counter.
func RecordPlayerRegistered() { globalManager.playersRegistered.Inc() }

// RecordPlayerRemoved increments the removed players counter.
func RecordPlayerRemoved() { globalManager.playersRemoved.Inc() }

// RecordReplay records one full replay: what triggered it, how long it took
// and how many matches it applied.
func RecordReplay(trigger string, durationMs float64, matches int) {
	globalManager.replays.WithLabelValues(trigger).Inc()
	globalManager.replayDuration.Observe(durationMs)
	globalManager.replayMatches.Observe(float64(matches))
}

// RecordConsistencyError increments the consistency error counter.
func RecordConsistencyError() { globalManager.consistencyErrors.Inc() }

// RecordLedgerError counts a rejected ledger operation.
func RecordLedgerError(op, kind string) {
	globalManager.ledgerErrors.WithLabelValues(op, kind).Inc()
}

// UpdatePlayersTotal sets the registered players gauge.
func UpdatePlayersTotal(count int) { globalManager.playersTotal.Set(float64(count)) }

// UpdateMatchesTotal sets the matches gauge.
func UpdateMatchesTotal(count int) { globalManager.matchesTotal.Set(float64(count)) }

// UpdateCurrentSeason sets the active season gauge.
func UpdateCurrentSeason(season int) { globalManager.currentSeason.Set(float64(season)) }

// UpdateWriterQueueSize sets the pending write command gauge.
func UpdateWriterQueueSize(size int) { globalManager.writerQueueSize.Set(float64(size)) }

// UpdateWriterQueueCapacity sets the write queue capacity gauge.
func UpdateWriterQueueCapacity(capacity int) {
	globalManager.writerQueueCapacity.Set(float64(capacity))
}

// RecordWriterRejected counts a write refused with backpressure.
func RecordWriterRejected() { globalManager.writerRejected.Inc() }

// RecordWriterCommand observes one executed write command.
func RecordWriterCommand(command, status string, latencyMs float64) {
	globalManager.writerLatency.WithLabelValues(command, status).Observe(latencyMs)
}

// RecordPrediction increments the predictions counter.
func RecordPrediction() { globalManager.predictions.Inc() }

// RecordIdempotentReplay counts a request answered from the idempotency cache.
func RecordIdempotentReplay() { globalManager.idempotentReplays.Inc() }

// RecordStoreTx observes a store transaction, mode is "read" or "write".
func RecordStoreTx(mode string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request refused by the rate limiter.
func RecordRateLimited() { globalManager.rateLimited.Inc() }

// RecordErrorByComponent records errors by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
