// Package metrics provides Prometheus-based metrics collection for recon.
// Collectors live on a private registry so several engines can coexist in
// one process and tests never collide on the global default registry.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "recon"

	subsystemAssessment = "assessment"
	subsystemPorts      = "ports"
	subsystemProbe      = "probe"
	subsystemFirewall   = "firewall"
	subsystemAPI        = "api"
)

// PrometheusMetrics holds all Prometheus metric collectors.
type PrometheusMetrics struct {
	assessmentsTotal   *prometheus.CounterVec
	assessmentDuration *prometheus.HistogramVec

	portsTotal *prometheus.CounterVec

	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	activeProbes  prometheus.Gauge

	verdictsTotal *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a metrics instance with all collectors
// registered on a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{registry: registry}

	pm.initAssessmentMetrics()
	pm.initProbeMetrics()
	pm.initAPIMetrics()
	pm.registerMetrics()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

func (pm *PrometheusMetrics) initAssessmentMetrics() {
	pm.assessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAssessment,
			Name:      "total",
			Help:      "Total number of assessments by technique and status",
		},
		[]string{"technique", "status"},
	)

	pm.assessmentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAssessment,
			Name:      "duration_seconds",
			Help:      "Duration of assessments in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 180.0, 600.0},
		},
		[]string{"technique"},
	)

	pm.portsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPorts,
			Name:      "total",
			Help:      "Port records produced by evidence source and state",
		},
		[]string{"source", "state"},
	)
}

func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Probe executions by probe name and outcome",
		},
		[]string{"probe", "outcome"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of individual probes in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 15.0, 60.0, 180.0},
		},
		[]string{"probe"},
	)

	pm.activeProbes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "socket_active",
			Help:      "Socket probes currently holding a pool slot",
		},
	)

	pm.verdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemFirewall,
			Name:      "verdicts_total",
			Help:      "Firewall classifier verdicts by technique",
		},
		[]string{"technique", "verdict"},
	)
}

func (pm *PrometheusMetrics) initAPIMetrics() {
	pm.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status_code"},
	)

	pm.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemAPI,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.assessmentsTotal,
		pm.assessmentDuration,
		pm.portsTotal,
		pm.probesTotal,
		pm.probeDuration,
		pm.activeProbes,
		pm.verdictsTotal,
		pm.httpRequests,
		pm.httpDuration,
	)
}

// RecordAssessment counts a finished assessment and observes its duration.
func (pm *PrometheusMetrics) RecordAssessment(technique, status string, duration time.Duration) {
	pm.assessmentsTotal.WithLabelValues(technique, status).Inc()
	pm.assessmentDuration.WithLabelValues(technique).Observe(duration.Seconds())
}

// RecordPorts adds count port records for source and state.
func (pm *PrometheusMetrics) RecordPorts(source, state string, count int) {
	if count <= 0 {
		return
	}
	pm.portsTotal.WithLabelValues(source, state).Add(float64(count))
}

// RecordProbe counts one probe execution.
func (pm *PrometheusMetrics) RecordProbe(probe, outcome string, duration time.Duration) {
	pm.probesTotal.WithLabelValues(probe, outcome).Inc()
	pm.probeDuration.WithLabelValues(probe).Observe(duration.Seconds())
}

// RecordVerdict counts one firewall verdict.
func (pm *PrometheusMetrics) RecordVerdict(technique, verdict string) {
	pm.verdictsTotal.WithLabelValues(technique, verdict).Inc()
}

// IncActiveProbes marks a socket probe as holding a slot.
func (pm *PrometheusMetrics) IncActiveProbes() {
	pm.activeProbes.Inc()
}

// DecActiveProbes releases a socket probe slot.
func (pm *PrometheusMetrics) DecActiveProbes() {
	pm.activeProbes.Dec()
}

// RecordHTTPRequest records one served API request.
func (pm *PrometheusMetrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	pm.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	pm.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// GetRegistry returns the registry backing these collectors.
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

var (
	globalMetrics *PrometheusMetrics
	globalOnce    sync.Once
)

// GetGlobalMetrics returns the process wide metrics instance used by the
// CLI. Engines take their metrics through options instead.
func GetGlobalMetrics() *PrometheusMetrics {
	globalOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
