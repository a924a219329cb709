// Package metrics provides Prometheus metrics for the floorwatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drift status label values exported on the model health gauge.
var driftStatuses = []string{"Healthy", "Caution", "Warning", "Unknown"} //nolint:gochecknoglobals // fixed label set

// Manager manages all Prometheus metrics for the floorwatch service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested  *prometheus.CounterVec
	eventsDuplicate *prometheus.CounterVec
	eventsRejected  *prometheus.CounterVec
	ingestLatency   prometheus.Histogram
	batchSize       prometheus.Histogram
	storedEvents    prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Model health
	driftConfidence prometheus.Gauge
	driftSamples    prometheus.Gauge
	driftStatus     *prometheus.GaugeVec

	// Analytics
	analyticsLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// Stream sources
	streamMessages     *prometheus.CounterVec
	streamDecodeErrors *prometheus.CounterVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker pool
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec

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

// Configure rebuilds the global manager and its registry with opts. Call it
// once at startup before anything records; earlier samples are discarded.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(reg))
	customRegistry = reg
	globalManager = NewManager(opts...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "floorwatch",
		subsystem:        "",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(
		m.counterOpts("events_ingested_total", "Events stored for the first time, by source"),
		[]string{"source"},
	)
	m.eventsDuplicate = auto.NewCounterVec(
		m.counterOpts("events_duplicate_total", "Redeliveries resolved to an existing event, by source"),
		[]string{"source"},
	)
	m.eventsRejected = auto.NewCounterVec(
		m.counterOpts("events_rejected_total", "Events rejected during ingestion, by source and reason"),
		[]string{"source", "reason"},
	)
	m.ingestLatency = auto.NewHistogram(
		m.histogramOpts("ingest_latency_milliseconds", "Single event ingestion latency in milliseconds", m.histogramBuckets),
	)
	m.batchSize = auto.NewHistogram(
		m.histogramOpts("batch_size", "Number of events per batch request", []float64{1, 10, 50, 100, 500, 1000, 5000}),
	)
	m.storedEvents = auto.NewGauge(m.gaugeOpts("stored_events", "Events currently held by the store"))

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds", m.histogramBuckets),
		[]string{"operation"},
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Store operation failures"),
		[]string{"operation"},
	)

	m.driftConfidence = auto.NewGauge(m.gaugeOpts("model_confidence_average", "Mean confidence over the latest drift sample"))
	m.driftSamples = auto.NewGauge(m.gaugeOpts("model_confidence_samples", "Events in the latest drift sample"))
	m.driftStatus = auto.NewGaugeVec(
		m.gaugeOpts("model_health_status", "1 for the current model health status, 0 otherwise"),
		[]string{"status"},
	)

	m.analyticsLatency = auto.NewHistogramVec(
		m.histogramOpts("analytics_latency_milliseconds", "Metric computation latency in milliseconds", m.histogramBuckets),
		[]string{"report"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRateLimited = auto.NewCounterVec(
		m.counterOpts("http_rate_limited_total", "Requests refused by the per-client rate limiter"),
		[]string{"endpoint"},
	)

	m.streamMessages = auto.NewCounterVec(
		m.counterOpts("stream_messages_total", "Messages received from stream sources"),
		[]string{"source"},
	)
	m.streamDecodeErrors = auto.NewCounterVec(
		m.counterOpts("stream_decode_errors_total", "Stream messages that could not be decoded"),
		[]string{"source"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the ingestion queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of events enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Events dropped because the queue was full or closed"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Time an event spent queued in milliseconds", m.histogramBuckets),
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured ingestion workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently ingesting"))
	m.workerIdleCount = auto.NewGauge(m.gaugeOpts("worker_idle_count", "Workers waiting for events"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker ingestion latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Events the worker pool failed to ingest"))

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Ingestion.

// RecordEventIngested counts a newly stored event.
func RecordEventIngested(source string) {
	globalManager.eventsIngested.WithLabelValues(source).Inc()
}

// RecordEventDuplicate counts a redelivered event.
func RecordEventDuplicate(source string) {
	globalManager.eventsDuplicate.WithLabelValues(source).Inc()
}

// RecordEventRejected counts an event that failed ingestion.
func RecordEventRejected(source, reason string) {
	globalManager.eventsRejected.WithLabelValues(source, reason).Inc()
}

// RecordIngestLatency records single event ingestion latency in milliseconds.
func RecordIngestLatency(latencyMs float64) {
	globalManager.ingestLatency.Observe(latencyMs)
}

// RecordBatchSize records the size of a batch request.
func RecordBatchSize(n int) {
	globalManager.batchSize.Observe(float64(n))
}

// UpdateStoredEvents sets the number of stored events.
func UpdateStoredEvents(n int64) {
	globalManager.storedEvents.Set(float64(n))
}

// Store.

// RecordStoreLatency records latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// Model health.

// UpdateModelHealth publishes the latest drift assessment.
func UpdateModelHealth(status string, avgConfidence float64, samples int) {
	globalManager.driftConfidence.Set(avgConfidence)
	globalManager.driftSamples.Set(float64(samples))
	for _, s := range driftStatuses {
		v := 0.0
		if s == status {
			v = 1
		}
		globalManager.driftStatus.WithLabelValues(s).Set(v)
	}
}

// RecordAnalyticsLatency records how long a report took to compute.
func RecordAnalyticsLatency(report string, latencyMs float64) {
	globalManager.analyticsLatency.WithLabelValues(report).Observe(latencyMs)
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPRateLimited counts a request refused with 429.
func RecordHTTPRateLimited(endpoint string) {
	globalManager.httpRateLimited.WithLabelValues(endpoint).Inc()
}

// Stream sources.

// RecordStreamMessage counts a message received from a stream source.
func RecordStreamMessage(source string) {
	globalManager.streamMessages.WithLabelValues(source).Inc()
}

// RecordStreamDecodeError counts a message that could not be decoded.
func RecordStreamDecodeError(source string) {
	globalManager.streamDecodeErrors.WithLabelValues(source).Inc()
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long an event waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker pool.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the heap memory in use.
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
