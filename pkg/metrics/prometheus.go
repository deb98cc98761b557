// Package metrics provides Prometheus metrics for the EcoTrack service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeInvalid  = "invalid"
)

// Restore results.
const (
	RestoreHit   = "hit"
	RestoreEmpty = "empty"
	RestoreError = "error"
)

// Bucket layout for the estimate histogram, aligned with the tier bounds.
var defaultTotalBuckets = []float64{1, 2.5, 5, 7.5, 10, 15, 25, 50, 100}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace      string
	subsystem      string
	totalBuckets   []float64
	latencyBuckets []float64
	enabled        bool
	customLabels   map[string]string
	registry       prometheus.Registerer

	// Domain
	submissions        *prometheus.CounterVec
	estimatesByTier    *prometheus.CounterVec
	estimateTotal      prometheus.Histogram
	validationFailures *prometheus.CounterVec
	storageErrors      *prometheus.CounterVec
	restores           *prometheus.CounterVec
	activeSessions     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalMu       sync.RWMutex
	globalManager  *Manager             //nolint:gochecknoglobals // process-wide collectors
	customRegistry *prometheus.Registry //nolint:gochecknoglobals // avoids default Go collectors
)

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "ecotrack",
		subsystem:      "footprint",
		totalBuckets:   defaultTotalBuckets,
		latencyBuckets: prometheus.DefBuckets,
		enabled:        true,
		customLabels:   map[string]string{},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_total",
		Help:        "Form submissions by outcome (accepted, invalid)",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.estimatesByTier = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "estimates_total",
		Help:        "Computed estimates by feedback tier",
		ConstLabels: constLabels,
	}, []string{"tier"})

	m.estimateTotal = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "estimate_kg_co2",
		Help:        "Distribution of estimated daily footprints in kg CO2e",
		Buckets:     m.totalBuckets,
		ConstLabels: constLabels,
	})

	m.validationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_failures_total",
		Help:        "Rejected input fields",
		ConstLabels: constLabels,
	}, []string{"field"})

	m.storageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "session",
		Name:        "storage_errors_total",
		Help:        "Session log read/write failures by kind",
		ConstLabels: constLabels,
	}, []string{"op", "kind"})

	m.restores = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "session",
		Name:        "restores_total",
		Help:        "Page loads that looked for a previous session value",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "session",
		Name:        "active",
		Help:        "Sessions currently held in the session store",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "HTTP request latency",
		Buckets:     m.latencyBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "errors_total",
		Help:        "HTTP error responses by endpoint and error type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "type"})

	m.rateLimited = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "rate_limited_total",
		Help:        "Requests rejected by the rate limiter",
		ConstLabels: constLabels,
	}, []string{"endpoint"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Number of live goroutines",
		ConstLabels: constLabels,
	})
}

// Manager-level recorders. All are no-ops when the manager is disabled.

func (m *Manager) RecordSubmission(outcome string) {
	if m.enabled {
		m.submissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) RecordEstimate(tier string, total float64) {
	if !m.enabled {
		return
	}
	m.estimatesByTier.WithLabelValues(tier).Inc()
	m.estimateTotal.Observe(total)
}

func (m *Manager) RecordValidationFailure(field string) {
	if m.enabled {
		m.validationFailures.WithLabelValues(field).Inc()
	}
}

func (m *Manager) RecordStorageError(op, kind string) {
	if m.enabled {
		m.storageErrors.WithLabelValues(op, kind).Inc()
	}
}

func (m *Manager) RecordRestore(result string) {
	if m.enabled {
		m.restores.WithLabelValues(result).Inc()
	}
}

func (m *Manager) UpdateActiveSessions(n int) {
	if m.enabled {
		m.activeSessions.Set(float64(n))
	}
}

func (m *Manager) RecordHTTPRequest(endpoint, method, status string, seconds float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, status).Observe(seconds)
}

func (m *Manager) RecordHTTPError(endpoint, errorType string) {
	if m.enabled {
		m.httpErrors.WithLabelValues(endpoint, errorType).Inc()
	}
}

func (m *Manager) RecordRateLimited(endpoint string) {
	if m.enabled {
		m.rateLimited.WithLabelValues(endpoint).Inc()
	}
}

func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

func (m *Manager) UpdateSystemGoroutineCount(n int) {
	if m.enabled {
		m.systemGoroutineCount.Set(float64(n))
	}
}

func manager() *Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalManager
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return customRegistry
}

// Reset replaces the global manager with a fresh one on a new registry.
// Tests use it to start from zeroed collectors.
func Reset(opts ...Option) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(reg))...)
	globalMu.Lock()
	customRegistry = reg
	globalManager = m
	globalMu.Unlock()
	return reg
}

// Package-level helpers delegate to the global manager.

func RecordSubmission(outcome string) { manager().RecordSubmission(outcome) }
func RecordEstimate(tier string, total float64) { manager().RecordEstimate(tier, total) }
func RecordValidationFailure(field string) { manager().RecordValidationFailure(field) }
func RecordStorageError(op, kind string) { manager().RecordStorageError(op, kind) }
func RecordRestore(result string) { manager().RecordRestore(result) }
func UpdateActiveSessions(n int) { manager().UpdateActiveSessions(n) }
func RecordHTTPError(endpoint, errorType string) { manager().RecordHTTPError(endpoint, errorType) }
func RecordRateLimited(endpoint string) { manager().RecordRateLimited(endpoint) }
func UpdateSystemMemoryUsage(bytes uint64) { manager().UpdateSystemMemoryUsage(bytes) }
func UpdateSystemGoroutineCount(n int) { manager().UpdateSystemGoroutineCount(n) }
func RecordHTTPRequest(endpoint, method, status string, seconds float64) {
	manager().RecordHTTPRequest(endpoint, method, status, seconds)
}
