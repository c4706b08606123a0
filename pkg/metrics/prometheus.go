// Package metrics provides Prometheus metrics for the squad economy engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the engine exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ledger
	commits             *prometheus.CounterVec
	transfers           prometheus.Counter
	penaltyPoints       prometheus.Counter
	validationFailures  *prometheus.CounterVec
	chipActivations     *prometheus.CounterVec
	concurrencyConflict prometheus.Counter

	// Finalization
	finalizations        *prometheus.CounterVec
	finalizationDuration prometheus.Histogram
	finalizationSkipped  *prometheus.CounterVec
	batchesDuplicate     prometheus.Counter
	priceChanges         *prometheus.CounterVec

	// Catalog
	athletesTotal prometheus.Gauge
	ledgersTotal  prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Worker
	workerActive     prometheus.Gauge
	workerJobs       *prometheus.CounterVec
	workerJobLatency prometheus.Histogram

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squad",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		customLabels:     map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.commits = m.counterVec("commits_total", "Transfer commits by outcome", "outcome")
	m.transfers = m.counter("transfers_total", "Transfers charged across all commits")
	m.penaltyPoints = m.counter("transfer_penalty_points_total", "Point deductions accrued from extra transfers")
	m.validationFailures = m.counterVec("validation_violations_total", "Roster violations by code", "code")
	m.chipActivations = m.counterVec("chip_activations_total", "Chip state changes", "chip", "action")
	m.concurrencyConflict = m.counter("concurrency_conflicts_total", "Commits rejected because the baseline was stale")

	m.finalizations = m.counterVec("finalizations_total", "Finalization runs by outcome", "outcome")
	m.finalizationDuration = m.histogram("finalization_duration_milliseconds", "Wall time of a finalization run")
	m.finalizationSkipped = m.counterVec("finalization_skipped_total", "Entities skipped during finalization", "kind")
	m.batchesDuplicate = m.counter("batches_duplicate_total", "Event batches rejected as duplicates")
	m.priceChanges = m.counterVec("price_changes_total", "Athlete price moves by direction", "direction")

	m.athletesTotal = m.gauge("athletes", "Athletes in the catalog")
	m.ledgersTotal = m.gauge("ledgers", "Committed team ledgers")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Repository call latency", "op")
	m.storeErrors = m.counterVec("store_errors_total", "Repository errors by operation", "op")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration",
		"endpoint", "method", "status_code")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.queueSize = m.gauge("queue_size", "Finalization jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queued finalization jobs")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")

	m.workerActive = m.gauge("worker_active", "Running finalization workers")
	m.workerJobs = m.counterVec("worker_jobs_total", "Jobs processed by outcome", "outcome")
	m.workerJobLatency = m.histogram("worker_job_latency_milliseconds", "Job processing latency")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordCommit counts a commit by outcome: accepted, rejected, conflict, error.
func RecordCommit(outcome string) { globalManager.commits.WithLabelValues(outcome).Inc() }

// RecordTransfers adds charged transfers and the penalty they accrued.
func RecordTransfers(count, penalty int) {
	globalManager.transfers.Add(float64(count))
	globalManager.penaltyPoints.Add(float64(penalty))
}

// RecordViolation counts one roster violation.
func RecordViolation(code string) { globalManager.validationFailures.WithLabelValues(code).Inc() }

// RecordChip counts a chip transition such as wildcard/activate.
func RecordChip(chip, action string) { globalManager.chipActivations.WithLabelValues(chip, action).Inc() }

// RecordConcurrencyConflict counts a stale-baseline rejection.
func RecordConcurrencyConflict() { globalManager.concurrencyConflict.Inc() }

// RecordFinalization counts a run and observes its duration.
func RecordFinalization(outcome string, durationMs float64) {
	globalManager.finalizations.WithLabelValues(outcome).Inc()
	globalManager.finalizationDuration.Observe(durationMs)
}

// RecordFinalizationSkipped counts athletes, reports or ledgers skipped during a run.
func RecordFinalizationSkipped(kind string, n int) {
	globalManager.finalizationSkipped.WithLabelValues(kind).Add(float64(n))
}

// RecordBatchDuplicate counts a batch rejected by id or period.
func RecordBatchDuplicate() { globalManager.batchesDuplicate.Inc() }

// RecordPriceChange counts a price move: up, down or flat.
func RecordPriceChange(direction string) { globalManager.priceChanges.WithLabelValues(direction).Inc() }

// UpdateCatalogSize sets the athlete and ledger gauges.
func UpdateCatalogSize(athletes, ledgers int) {
	globalManager.athletesTotal.Set(float64(athletes))
	globalManager.ledgersTotal.Set(float64(ledgers))
}

// RecordStoreLatency observes one repository call.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed repository call.
func RecordStoreError(op string) { globalManager.storeErrors.WithLabelValues(op).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActive.Set(float64(count)) }

// RecordWorkerJob counts a processed job and its latency.
func RecordWorkerJob(outcome string, latencyMs float64) {
	globalManager.workerJobs.WithLabelValues(outcome).Inc()
	globalManager.workerJobLatency.Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry the global manager registers on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
