// Package metrics provides Prometheus metrics for the vendorhub service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the vendorhub service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Domain operations
	operations           *prometheus.CounterVec
	operationLatency     *prometheus.HistogramVec
	idempotentDuplicates prometheus.Counter
	ratingsRecorded      prometheus.Counter

	// Store
	recordsTotal      *prometheus.GaugeVec
	slotsTotal        *prometheus.GaugeVec
	regionPages       *prometheus.GaugeVec
	lastID            prometheus.Gauge
	memoryBytes       prometheus.Gauge
	storeWriteLatency prometheus.Histogram
	storeReadLatency  prometheus.Histogram
	recoveryRepairs   prometheus.Counter

	// Command queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	queueWaitLatency   prometheus.Histogram

	// Writer
	writerBusy              prometheus.Gauge
	writerCommands          prometheus.Counter
	writerErrors            prometheus.Counter
	writerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vendorhub",
		subsystem:        "store",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
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

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.operations = m.counterVec("operations_total", "Domain operations by operation and outcome kind", "operation", "outcome")
	m.operationLatency = m.histogramVec("operation_latency_milliseconds", "Domain operation latency in milliseconds", "operation")
	m.idempotentDuplicates = m.counter("idempotent_duplicates_total", "Create requests rejected for a reused Idempotency-Key")
	m.ratingsRecorded = m.counter("ratings_recorded_total", "Ratings appended to vendors")

	m.recordsTotal = m.gaugeVec("records", "Distinct records per collection", "collection")
	m.slotsTotal = m.gaugeVec("slots", "Committed slots per collection, superseded ones included", "collection")
	m.regionPages = m.gaugeVec("region_pages", "Pages allocated per memory region", "region")
	m.lastID = m.gauge("last_id", "Last identifier issued")
	m.memoryBytes = m.gauge("memory_bytes", "Size of the durable memory image in bytes")
	m.storeWriteLatency = m.histogram("write_latency_milliseconds", "Write critical section latency in milliseconds", m.histogramBuckets)
	m.storeReadLatency = m.histogram("read_latency_milliseconds", "Read critical section latency in milliseconds", m.histogramBuckets)
	m.recoveryRepairs = m.counter("recovery_repairs_total", "Vendor records repaired during startup recovery")

	m.queueSize = m.gauge("queue_size", "Commands waiting for the writer")
	m.queueCapacity = m.gauge("queue_capacity", "Command queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_percent", "Command queue utilization percentage")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Commands enqueued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Commands rejected by the queue")
	m.queueWaitLatency = m.histogram("queue_wait_milliseconds", "Time commands spend queued in milliseconds", m.histogramBuckets)

	m.writerBusy = m.gauge("writer_busy", "1 while the writer executes a command")
	m.writerCommands = m.counter("writer_commands_total", "Commands executed by the writer")
	m.writerErrors = m.counter("writer_errors_total", "Commands that returned a fatal error")
	m.writerProcessingLatency = m.histogram("writer_processing_milliseconds", "Command execution time in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpRateLimited = m.counter("http_rate_limited_total", "Requests rejected by the rate limiter")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordOperation counts one domain operation outcome and its latency.
func RecordOperation(operation, outcome string, latencyMs float64) {
	globalManager.operations.WithLabelValues(operation, outcome).Inc()
	globalManager.operationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordIdempotentDuplicate increments the duplicate idempotency key counter.
func RecordIdempotentDuplicate() {
	globalManager.idempotentDuplicates.Inc()
}

// RecordRating increments the recorded ratings counter.
func RecordRating() {
	globalManager.ratingsRecorded.Inc()
}

// UpdateCollectionRecords sets the record and slot counts of a collection.
func UpdateCollectionRecords(collection string, records int, slots int64) {
	globalManager.recordsTotal.WithLabelValues(collection).Set(float64(records))
	globalManager.slotsTotal.WithLabelValues(collection).Set(float64(slots))
}

// UpdateRegionPages sets the page count of a region.
func UpdateRegionPages(region string, pages int64) {
	globalManager.regionPages.WithLabelValues(region).Set(float64(pages))
}

// UpdateLastID sets the last issued identifier.
func UpdateLastID(id uint64) {
	globalManager.lastID.Set(float64(id))
}

// UpdateMemoryBytes sets the memory image size.
func UpdateMemoryBytes(size int64) {
	globalManager.memoryBytes.Set(float64(size))
}

// RecordStoreWriteLatency records a write critical section duration.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordStoreReadLatency records a read critical section duration.
func RecordStoreReadLatency(latencyMs float64) {
	globalManager.storeReadLatency.Observe(latencyMs)
}

// RecordRecoveryRepair counts one vendor repaired on startup.
func RecordRecoveryRepair() {
	globalManager.recoveryRepairs.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization percentage.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueWaitLatency records time spent queued.
func RecordQueueWaitLatency(latencyMs float64) {
	globalManager.queueWaitLatency.Observe(latencyMs)
}

// UpdateWriterBusy marks the writer busy or idle.
func UpdateWriterBusy(busy bool) {
	v := 0.0
	if busy {
		v = 1
	}
	globalManager.writerBusy.Set(v)
}

// RecordWriterCommand records one executed command and its duration.
func RecordWriterCommand(latencyMs float64) {
	globalManager.writerCommands.Inc()
	globalManager.writerProcessingLatency.Observe(latencyMs)
}

// RecordWriterError increments the writer error counter.
func RecordWriterError() {
	globalManager.writerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited increments the rate limited counter.
func RecordRateLimited() {
	globalManager.httpRateLimited.Inc()
}

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error for an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
