// Package metrics provides Prometheus metrics for the facegate access service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Decision core
	recognitions       *prometheus.CounterVec
	recognitionLatency *prometheus.HistogramVec
	accessDecisions    *prometheus.CounterVec
	spoofsDetected     prometheus.Counter
	livenessFailOpen   prometheus.Counter
	fusionContributors prometheus.Histogram
	quorumPoses        prometheus.Histogram

	// Backends
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec

	// Enrollment
	enrollmentCaptures    *prometheus.CounterVec
	enrollmentTransitions *prometheus.CounterVec
	enrollmentSessions    prometheus.Gauge

	// Identity catalog
	enrolledIdentities prometheus.Gauge
	storeErrors        *prometheus.CounterVec

	// Announcements and audit
	announcements *prometheus.CounterVec
	outboxDropped prometheus.Counter
	auditErrors   prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors and system
	errorsByComponent    *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

// customRegistry keeps the exported set free of default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "facegate",
		subsystem:        "access",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		constLabels:      map[string]string{},
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.recognitions = auto.NewCounterVec(
		m.counterOpts("recognitions_total", "Recognition results by matcher mode and status"),
		[]string{"mode", "status"},
	)
	m.recognitionLatency = auto.NewHistogramVec(
		m.histogramOpts("recognition_latency_milliseconds", "End-to-end recognition latency per frame", m.histogramBuckets),
		[]string{"mode"},
	)
	m.accessDecisions = auto.NewCounterVec(
		m.counterOpts("decisions_total", "Access decisions issued"),
		[]string{"decision"},
	)
	m.spoofsDetected = auto.NewCounter(
		m.counterOpts("spoofs_detected_total", "Faces rejected by the liveness gate"),
	)
	m.livenessFailOpen = auto.NewCounter(
		m.counterOpts("liveness_fail_open_total", "Faces accepted as live because the liveness classifier failed and fail-open is enabled"),
	)
	m.fusionContributors = auto.NewHistogram(
		m.histogramOpts("fusion_contributors", "Number of embedding backends contributing to a fused embedding", []float64{0, 1, 2, 3, 4, 5, 8}),
	)
	m.quorumPoses = auto.NewHistogram(
		m.histogramOpts("quorum_counting_poses", "Number of verified poses per quorum comparison", []float64{0, 1, 2, 3, 4, 5}),
	)

	m.backendCalls = auto.NewCounterVec(
		m.counterOpts("backend_calls_total", "Backend calls by capability, backend and outcome"),
		[]string{"capability", "backend", "outcome"},
	)
	m.backendLatency = auto.NewHistogramVec(
		m.histogramOpts("backend_latency_milliseconds", "Backend call latency", m.histogramBuckets),
		[]string{"capability", "backend"},
	)

	m.enrollmentCaptures = auto.NewCounterVec(
		m.counterOpts("enrollment_captures_total", "Enrollment capture attempts by outcome"),
		[]string{"outcome"},
	)
	m.enrollmentTransitions = auto.NewCounterVec(
		m.counterOpts("enrollment_sessions_total", "Enrollment sessions by terminal state"),
		[]string{"state"},
	)
	m.enrollmentSessions = auto.NewGauge(
		m.gaugeOpts("enrollment_sessions_active", "Enrollment sessions currently capturing"),
	)

	m.enrolledIdentities = auto.NewGauge(
		m.gaugeOpts("enrolled_identities", "Identities visible to the matchers"),
	)
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Identity store failures by operation"),
		[]string{"operation"},
	)

	m.announcements = auto.NewCounterVec(
		m.counterOpts("announcements_total", "Announcement outcomes by channel"),
		[]string{"channel", "outcome"},
	)
	m.outboxDropped = auto.NewCounter(
		m.counterOpts("outbox_dropped_total", "Pending announcements replaced before playback"),
	)
	m.auditErrors = auto.NewCounter(
		m.counterOpts("audit_errors_total", "Audit records the sink failed to persist"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status code"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "type"},
	)
	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}),
	)
}

// RecordRecognition counts one recognition result.
func RecordRecognition(mode, status string) {
	globalManager.recognitions.WithLabelValues(mode, status).Inc()
}

// RecordRecognitionLatency records the per-frame latency in milliseconds.
func RecordRecognitionLatency(mode string, latencyMs float64) {
	globalManager.recognitionLatency.WithLabelValues(mode).Observe(latencyMs)
}

// RecordAccessDecision counts a granted or denied decision.
func RecordAccessDecision(decision string) {
	globalManager.accessDecisions.WithLabelValues(decision).Inc()
}

// RecordSpoofDetected counts a face rejected by the liveness gate.
func RecordSpoofDetected() {
	globalManager.spoofsDetected.Inc()
}

// RecordLivenessFailOpen counts a fail-open liveness decision.
func RecordLivenessFailOpen() {
	globalManager.livenessFailOpen.Inc()
}

// RecordFusionContributors observes how many backends fed a fused embedding.
func RecordFusionContributors(n int) {
	globalManager.fusionContributors.Observe(float64(n))
}

// RecordQuorumPoses observes how many poses verified for one identity.
func RecordQuorumPoses(n int) {
	globalManager.quorumPoses.Observe(float64(n))
}

// RecordBackendCall counts a backend call and observes its latency.
func RecordBackendCall(capability, backend, outcome string, latencyMs float64) {
	globalManager.backendCalls.WithLabelValues(capability, backend, outcome).Inc()
	globalManager.backendLatency.WithLabelValues(capability, backend).Observe(latencyMs)
}

// RecordEnrollmentCapture counts a capture attempt outcome.
func RecordEnrollmentCapture(outcome string) {
	globalManager.enrollmentCaptures.WithLabelValues(outcome).Inc()
}

// RecordEnrollmentSession counts a session reaching a terminal state.
func RecordEnrollmentSession(state string) {
	globalManager.enrollmentTransitions.WithLabelValues(state).Inc()
}

// UpdateEnrollmentSessions sets the number of live sessions.
func UpdateEnrollmentSessions(n int) {
	globalManager.enrollmentSessions.Set(float64(n))
}

// UpdateEnrolledIdentities sets the catalog size.
func UpdateEnrolledIdentities(n int) {
	globalManager.enrolledIdentities.Set(float64(n))
}

// RecordStoreError counts an identity store failure.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordAnnouncement counts an announcement outcome on a channel.
func RecordAnnouncement(channel, outcome string) {
	globalManager.announcements.WithLabelValues(channel, outcome).Inc()
}

// RecordOutboxDropped counts a pending announcement replaced by a newer one.
func RecordOutboxDropped() {
	globalManager.outboxDropped.Inc()
}

// RecordAuditError counts an audit record that could not be persisted.
func RecordAuditError() {
	globalManager.auditErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
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

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure rebuilds the process-wide manager from opts on a fresh
// registry. It must run at startup, before any metric is recorded.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := make([]Option, 0, len(opts)+1)
	all = append(all, opts...)
	all = append(all, WithPrometheusRegistry(registry))
	globalManager = NewManager(all...)
	customRegistry = registry
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
