// Package metrics provides Prometheus metrics for the inkflow service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Batch outcomes.
const (
	BatchReceived  = "received"
	BatchDuplicate = "duplicate"
	BatchRejected  = "rejected"
	BatchApplied   = "applied"
)

// Stroke lifecycle events.
const (
	StrokeCreated   = "created"
	StrokeUpdated   = "updated"
	StrokeFinished  = "finished"
	StrokeCancelled = "cancelled"
)

// Estimated update results.
const (
	UpdateResolved  = "resolved"
	UpdateIgnored   = "ignored"
	UpdateAbandoned = "abandoned"
)

// Manager manages all Prometheus metrics for the inkflow service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Ingestion
	batches      *prometheus.CounterVec
	batchLatency prometheus.Histogram

	// Engine
	strokes          *prometheus.CounterVec
	samples          *prometheus.CounterVec
	predictedPurged  prometheus.Counter
	estimatedUpdates *prometheus.CounterVec
	contactsSkipped  prometheus.Counter
	activeStrokes    prometheus.Gauge
	pendingUpdates   prometheus.Gauge
	surfaces         prometheus.Gauge

	// Consumers
	archiveSize      prometheus.Gauge
	archiveEvictions prometheus.Counter
	streamClients    prometheus.Gauge
	streamSent       prometheus.Counter
	streamDropped    prometheus.Counter
	previewLatency   prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// The global manager and the registry /healthz serves. Both are replaced
// together by Configure.
var (
	current  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	registry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // metrics registry
)

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure rebuilds the global manager on a fresh registry with the given
// options. Call it before handlers capture GetRegistry; series recorded on
// the previous registry are discarded.
func Configure(opts ...Option) {
	reg := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(reg))
	m := NewManager(opts...)
	registry.Store(reg)
	current.Store(m)
}

func global() *Manager { return current.Load() }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "inkflow",
		subsystem:        "strokes",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every series
	// A disabled manager still builds every series so recorders work, but
	// registers none of them.
	reg := m.registry
	if !m.enabled {
		reg = nil
	}
	auto := promauto.With(reg)

	m.batches = auto.NewCounterVec(
		m.counterOpts("batches_total", "Batches by outcome (received, duplicate, rejected, applied)"),
		[]string{"outcome"},
	)
	m.batchLatency = auto.NewHistogram(
		m.histogramOpts("batch_apply_latency_milliseconds", "Time to apply one batch to its surface", m.histogramBuckets),
	)

	m.strokes = auto.NewCounterVec(
		m.counterOpts("notifications_total", "Strokes dispatched by lifecycle event"),
		[]string{"event"},
	)
	m.samples = auto.NewCounterVec(
		m.counterOpts("samples_appended_total", "Samples appended by provenance"),
		[]string{"provenance"},
	)
	m.predictedPurged = auto.NewCounter(
		m.counterOpts("predicted_purged_total", "Predicted samples discarded before new input"),
	)
	m.estimatedUpdates = auto.NewCounterVec(
		m.counterOpts("estimated_updates_total", "Estimated property updates by result"),
		[]string{"result"},
	)
	m.contactsSkipped = auto.NewCounter(
		m.counterOpts("contacts_skipped_total", "Contacts ignored because they were unknown or already active"),
	)
	m.activeStrokes = auto.NewGauge(
		m.gaugeOpts("active", "Strokes currently tracked across all surfaces"),
	)
	m.pendingUpdates = auto.NewGauge(
		m.gaugeOpts("pending_updates", "Samples awaiting estimated property updates"),
	)
	m.surfaces = auto.NewGauge(
		m.gaugeOpts("surfaces", "Surfaces with a tracker"),
	)

	m.archiveSize = auto.NewGauge(
		m.gaugeOpts("archive_size", "Stroke snapshots held by the archive"),
	)
	m.archiveEvictions = auto.NewCounter(
		m.counterOpts("archive_evictions_total", "Snapshots evicted from the archive"),
	)
	m.streamClients = auto.NewGauge(
		m.gaugeOpts("stream_clients", "Connected stream subscribers"),
	)
	m.streamSent = auto.NewCounter(
		m.counterOpts("stream_messages_total", "Notifications queued to stream subscribers"),
	)
	m.streamDropped = auto.NewCounter(
		m.counterOpts("stream_messages_dropped_total", "Notifications dropped for slow subscribers"),
	)
	m.previewLatency = auto.NewHistogram(
		m.histogramOpts("preview_render_latency_milliseconds", "Preview rendering latency", m.histogramBuckets),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the batch queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of batches enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of batches dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Total number of enqueue errors"))

	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker errors"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordBatch counts a batch under the given outcome.
func RecordBatch(outcome string) {
	global().batches.WithLabelValues(outcome).Inc()
}

// RecordBatchLatency records the time spent applying one batch.
func RecordBatchLatency(latencyMs float64) {
	global().batchLatency.Observe(latencyMs)
}

// RecordStrokes counts n strokes dispatched under a lifecycle event.
func RecordStrokes(event string, n int) {
	if n > 0 {
		global().strokes.WithLabelValues(event).Add(float64(n))
	}
}

// RecordSamples counts n appended samples of a provenance.
func RecordSamples(provenance string, n int) {
	if n > 0 {
		global().samples.WithLabelValues(provenance).Add(float64(n))
	}
}

// RecordPredictedPurged counts discarded predicted samples.
func RecordPredictedPurged(n int) {
	if n > 0 {
		global().predictedPurged.Add(float64(n))
	}
}

// RecordEstimatedUpdates counts estimated updates under a result.
func RecordEstimatedUpdates(result string, n int) {
	if n > 0 {
		global().estimatedUpdates.WithLabelValues(result).Add(float64(n))
	}
}

// RecordContactsSkipped counts contacts that had no effect.
func RecordContactsSkipped(n int) {
	if n > 0 {
		global().contactsSkipped.Add(float64(n))
	}
}

// UpdateActiveStrokes sets the active stroke gauge.
func UpdateActiveStrokes(count int) {
	global().activeStrokes.Set(float64(count))
}

// UpdatePendingUpdates sets the pending update gauge.
func UpdatePendingUpdates(count int) {
	global().pendingUpdates.Set(float64(count))
}

// UpdateSurfaces sets the surface gauge.
func UpdateSurfaces(count int) {
	global().surfaces.Set(float64(count))
}

// UpdateArchiveSize sets the archive size gauge.
func UpdateArchiveSize(count int) {
	global().archiveSize.Set(float64(count))
}

// RecordArchiveEviction counts one evicted snapshot.
func RecordArchiveEviction() {
	global().archiveEvictions.Inc()
}

// UpdateStreamClients sets the subscriber gauge.
func UpdateStreamClients(count int) {
	global().streamClients.Set(float64(count))
}

// RecordStreamMessage counts one notification handed to a subscriber.
func RecordStreamMessage() {
	global().streamSent.Inc()
}

// RecordStreamDropped counts one notification dropped for a slow subscriber.
func RecordStreamDropped() {
	global().streamDropped.Inc()
}

// RecordPreviewLatency records preview rendering time.
func RecordPreviewLatency(latencyMs float64) {
	global().previewLatency.Observe(latencyMs)
}

// UpdateQueueSize updates the queue size gauge.
func UpdateQueueSize(size int) {
	global().queueSize.Set(float64(size))
}

// UpdateQueueCapacity updates the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	global().queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization updates the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	global().queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	global().queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	global().queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	global().queueEnqueueErrors.Inc()
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	global().workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	global().workerErrorRate.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	global().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	global().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component.
func RecordErrorByComponent(component, errorType string) {
	global().errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	global().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	global().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	global().systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauges fed by polling should refresh.
func RefreshInterval() time.Duration {
	return global().refreshInterval
}

// Enabled reports whether the global manager registers its series.
func Enabled() bool {
	return global().enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return registry.Load()
}
