// Package metrics provides Prometheus metrics for the carematch booking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Workflow
	workflowOperations *prometheus.CounterVec
	workflowLatency    *prometheus.HistogramVec
	bookingsByStatus   *prometheus.GaugeVec

	// Suggestions
	suggestionLatency    prometheus.Histogram
	suggestionCandidates prometheus.Histogram
	suggestionsEmpty     prometheus.Counter

	// Calendar
	calendarCollisions prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	idempotentReplays   prometheus.Counter

	// Repository
	repositoryQueryLatency  *prometheus.HistogramVec
	repositoryUpdateLatency prometheus.Histogram
	repositoryRecords       *prometheus.GaugeVec
	repositoryConflicts     prometheus.Counter

	// Notification queue and workers
	queueCapacity           prometheus.Gauge
	queueSize               prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDropped            prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	notificationsSent       *prometheus.CounterVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // dedicated registry, no default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "carematch",
		subsystem:        "booking",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.workflowOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workflow_operations_total",
		Help:      "Assignment workflow operations by operation and outcome",
	}, []string{"operation", "outcome"})

	m.workflowLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "workflow_latency_milliseconds",
		Help:      "Assignment workflow operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"operation"})

	m.bookingsByStatus = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bookings",
		Help:      "Bookings by status as of the last directory listing",
	}, []string{"status"})

	m.suggestionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggestion_latency_milliseconds",
		Help:      "Talent suggestion latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.suggestionCandidates = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggestion_candidates",
		Help:      "Number of candidates returned per suggestion request",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	m.suggestionsEmpty = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "suggestions_empty_total",
		Help:      "Suggestion requests that found no eligible talent",
	})

	m.calendarCollisions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "calendar_collisions_total",
		Help:      "Calendar cells where more than one booking matched",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.idempotentReplays = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "idempotent_replays_total",
		Help:      "Mutation requests answered from an already-seen idempotency key",
	})

	m.repositoryQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Repository read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"entity"})

	m.repositoryUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Repository booking update latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_records",
		Help:      "Records held by the repository by entity",
	}, []string{"entity"})

	m.repositoryConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_version_conflicts_total",
		Help:      "Booking updates rejected by the version check",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_capacity",
		Help:      "Capacity of the notification queue",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_size",
		Help:      "Events waiting in the notification queue",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_enqueued_total",
		Help:      "Events accepted by the notification queue",
	})

	m.queueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_queue_dropped_total",
		Help:      "Events dropped because the notification queue was full or closed",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_workers",
		Help:      "Notification workers running",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_worker_latency_milliseconds",
		Help:      "Time spent delivering one notification",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_worker_errors_total",
		Help:      "Notifications that could not be delivered",
	})

	m.notificationsSent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_sent_total",
		Help:      "Notifications delivered by event type",
	}, []string{"event_type"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordWorkflowOperation counts one workflow operation with its outcome label.
func RecordWorkflowOperation(operation, outcome string) {
	globalManager.workflowOperations.WithLabelValues(operation, outcome).Inc()
}

// RecordWorkflowLatency records an operation's latency in milliseconds.
func RecordWorkflowLatency(operation string, latencyMs float64) {
	globalManager.workflowLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateBookingsByStatus sets the gauge for one status.
func UpdateBookingsByStatus(status string, count int) {
	globalManager.bookingsByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordSuggestion records latency and candidate count of one suggestion request.
func RecordSuggestion(latencyMs float64, candidates int) {
	globalManager.suggestionLatency.Observe(latencyMs)
	globalManager.suggestionCandidates.Observe(float64(candidates))
	if candidates == 0 {
		globalManager.suggestionsEmpty.Inc()
	}
}

// RecordCalendarCollisions adds n hidden double-bookings found while building a grid.
func RecordCalendarCollisions(n int) {
	if n > 0 {
		globalManager.calendarCollisions.Add(float64(n))
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

// RecordIdempotentReplay counts a replayed mutation request.
func RecordIdempotentReplay() {
	globalManager.idempotentReplays.Inc()
}

// RecordRepositoryQueryLatency records repository read latency for an entity.
func RecordRepositoryQueryLatency(entity string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(entity).Observe(latencyMs)
}

// RecordRepositoryUpdateLatency records booking update latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// UpdateRepositoryRecords sets the record count for an entity.
func UpdateRepositoryRecords(entity string, count int) {
	globalManager.repositoryRecords.WithLabelValues(entity).Set(float64(count))
}

// RecordRepositoryConflict counts a rejected compare-and-set update.
func RecordRepositoryConflict() {
	globalManager.repositoryConflicts.Inc()
}

// UpdateQueueCapacity sets the notification queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueSize sets the current notification queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueEnqueue counts an accepted event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDrop counts an event the queue refused.
func RecordQueueDrop() {
	globalManager.queueDropped.Inc()
}

// UpdateWorkerCount sets the number of running notification workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records one delivery attempt latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed delivery.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordNotificationSent counts a delivered notification.
func RecordNotificationSent(eventType string) {
	globalManager.notificationsSent.WithLabelValues(eventType).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
