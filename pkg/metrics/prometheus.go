// Package metrics provides Prometheus metrics for the squadron team formation service.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Formation
	runsTotal          *prometheus.CounterVec
	teamsFormed        prometheus.Counter
	leftovers          prometheus.Counter
	candidatesIngested *prometheus.CounterVec
	phaseHits          *prometheus.CounterVec
	exhaustiveSkipped  prometheus.Counter
	formationDuration  prometheus.Histogram

	// Rooms
	roomAssignments prometheus.Counter
	teamsDropped    prometheus.Counter

	// Prediction
	predictions      *prometheus.CounterVec
	predictionErrors prometheus.Counter

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	jobsProcessed      *prometheus.CounterVec
	jobLatency         prometheus.Histogram

	// Store
	runsStored  prometheus.Gauge
	storeErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // private registry, no default Go collectors
)

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// private registry. Call it before serving; values recorded earlier are lost
// and handlers built from GetRegistry keep the old registry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func current() *Manager { return globalManager.Load() }

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "squadron",
		subsystem:        "formation",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.runsTotal = m.counterVec("runs_total", "Formation runs by outcome (pool_exhausted, no_valid_group, failed)", "outcome")
	m.teamsFormed = m.counter("teams_formed_total", "Total number of teams formed")
	m.leftovers = m.counter("leftover_candidates_total", "Scored candidates left without a team")
	m.candidatesIngested = m.counterVec("candidates_ingested_total", "Ingested candidate rows by classification", "class")
	m.phaseHits = m.counterVec("phase_hits_total", "Teams found per search phase", "phase")
	m.exhaustiveSkipped = m.counter("exhaustive_skipped_total", "Exhaustive searches skipped because the pool exceeded the cap")
	m.formationDuration = m.histogram("duration_milliseconds", "Formation run duration in milliseconds")

	m.roomAssignments = m.counter("room_assignments_total", "Teams placed into rooms")
	m.teamsDropped = m.counter("teams_dropped_total", "Teams dropped because rooms were full")

	m.predictions = m.counterVec("predictions_total", "Score predictions by mode (single, batch)", "mode")
	m.predictionErrors = m.counter("prediction_errors_total", "Failed score predictions")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the run queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the run queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueues by reason", "reason")
	m.workerCount = m.gauge("worker_count", "Number of run workers")
	m.jobsProcessed = m.counterVec("jobs_processed_total", "Asynchronous jobs processed by status", "status")
	m.jobLatency = m.histogram("job_latency_milliseconds", "Asynchronous job processing latency in milliseconds")

	m.runsStored = m.gauge("runs_stored", "Runs currently held by the run store")
	m.storeErrors = m.counterVec("store_errors_total", "Run store failures by operation", "op")

	m.httpRequests = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by endpoint, method and status", ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: "http", Name: "errors_total",
		Help: "HTTP error responses by endpoint and error type", ConstLabels: m.constLabels,
	}, []string{"endpoint", "type"})

	m.systemMemoryUsage = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "memory_bytes", Help: "Allocated heap bytes",
	})
	m.systemGoroutineCount = promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: "system", Name: "goroutines", Help: "Number of goroutines",
	})
}

// RecordRun counts a finished formation run.
func RecordRun(outcome string, teams, leftovers int, durationMs float64) {
	current().runsTotal.WithLabelValues(outcome).Inc()
	current().teamsFormed.Add(float64(teams))
	current().leftovers.Add(float64(leftovers))
	current().formationDuration.Observe(durationMs)
}

// RecordCandidates counts ingested rows of one classification.
func RecordCandidates(class string, n int) {
	if n > 0 {
		current().candidatesIngested.WithLabelValues(class).Add(float64(n))
	}
}

// RecordPhaseHit counts a team found by the named search phase.
func RecordPhaseHit(phase string) {
	current().phaseHits.WithLabelValues(phase).Inc()
}

// RecordExhaustiveSkipped counts exhaustive searches not attempted.
func RecordExhaustiveSkipped() {
	current().exhaustiveSkipped.Inc()
}

// RecordRoomAssignment counts placed and dropped teams of one assignment.
func RecordRoomAssignment(assigned, dropped int) {
	current().roomAssignments.Add(float64(assigned))
	current().teamsDropped.Add(float64(dropped))
}

// RecordPrediction counts predictions served in the given mode.
func RecordPrediction(mode string, n int) {
	current().predictions.WithLabelValues(mode).Add(float64(n))
}

// RecordPredictionError increments the prediction error counter.
func RecordPredictionError() {
	current().predictionErrors.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	current().queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	current().queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	current().queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	current().workerCount.Set(float64(count))
}

// RecordJobProcessed counts a processed job and observes its latency.
func RecordJobProcessed(status string, latencyMs float64) {
	current().jobsProcessed.WithLabelValues(status).Inc()
	current().jobLatency.Observe(latencyMs)
}

// UpdateRunsStored sets the number of runs in the store.
func UpdateRunsStored(count int) {
	current().runsStored.Set(float64(count))
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	current().storeErrors.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	current().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	current().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response of the given type.
func RecordHTTPError(endpoint, errorType string) {
	current().httpErrors.WithLabelValues(endpoint, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	current().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	current().systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the private Prometheus registry used by this package.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
