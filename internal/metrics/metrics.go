// Package metrics provides Prometheus-based metrics collection for hostscan.
// It tracks scan passes, per-probe outcomes and durations, pipeline
// concurrency, and result storage operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all hostscan metrics
	namespace = "hostscan"

	// Subsystems
	subsystemScan  = "scan"
	subsystemProbe = "probe"
	subsystemStore = "store"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Scan metrics
	scansTotal      *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	hostsScanned    *prometheus.CounterVec
	pipelineFaults  prometheus.Counter
	activePipelines prometheus.Gauge

	// Probe metrics
	probesTotal   *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec

	// Store metrics
	storeQueries *prometheus.CounterVec
	storeErrors  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{registry: registry}
	pm.initScanMetrics()
	pm.initProbeMetrics()
	pm.initStoreMetrics()
	pm.registerMetrics()

	// Register standard Go and process collectors for runtime visibility
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return pm
}

// initScanMetrics initializes scan-related metrics
func (pm *PrometheusMetrics) initScanMetrics() {
	pm.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "total",
			Help:      "Total number of scan passes by status",
		},
		[]string{"status"},
	)

	pm.scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "duration_seconds",
			Help:      "Duration of scan passes in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 10.0, 30.0, 60.0, 300.0, 600.0},
		},
		[]string{"status"},
	)

	pm.hostsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "hosts_total",
			Help:      "Total number of hosts scanned by classification",
		},
		[]string{"classification"},
	)

	pm.pipelineFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "pipeline_faults_total",
			Help:      "Total number of host pipelines excluded due to unexpected faults",
		},
	)

	pm.activePipelines = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemScan,
			Name:      "active_pipelines",
			Help:      "Number of currently active per-host pipelines",
		},
	)
}

// initProbeMetrics initializes probe-related metrics
func (pm *PrometheusMetrics) initProbeMetrics() {
	pm.probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "total",
			Help:      "Total number of probe executions by probe and outcome",
		},
		[]string{"probe", "outcome"},
	)

	pm.probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemProbe,
			Name:      "duration_seconds",
			Help:      "Duration of individual probe executions in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"probe"},
	)
}

// initStoreMetrics initializes storage-related metrics
func (pm *PrometheusMetrics) initStoreMetrics() {
	pm.storeQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "queries_total",
			Help:      "Total number of store operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	pm.storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemStore,
			Name:      "errors_total",
			Help:      "Total number of store errors by operation",
		},
		[]string{"operation"},
	)
}

// registerMetrics registers all collectors with the registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.scansTotal,
		pm.scanDuration,
		pm.hostsScanned,
		pm.pipelineFaults,
		pm.activePipelines,
		pm.probesTotal,
		pm.probeDuration,
		pm.storeQueries,
		pm.storeErrors,
	)
}

// Registry returns the underlying Prometheus registry for exposition.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// IncrementScansTotal increments the scan pass counter.
func (pm *PrometheusMetrics) IncrementScansTotal(status string) {
	pm.scansTotal.WithLabelValues(status).Inc()
}

// RecordScanDuration records the duration of a scan pass.
func (pm *PrometheusMetrics) RecordScanDuration(status string, duration time.Duration) {
	pm.scanDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// IncrementHostsScanned increments the scanned-host counter for a classification.
func (pm *PrometheusMetrics) IncrementHostsScanned(classification string) {
	pm.hostsScanned.WithLabelValues(classification).Inc()
}

// IncrementPipelineFaults increments the pipeline fault counter.
func (pm *PrometheusMetrics) IncrementPipelineFaults() {
	pm.pipelineFaults.Inc()
}

// PipelineStarted increments the active pipeline gauge.
func (pm *PrometheusMetrics) PipelineStarted() {
	pm.activePipelines.Inc()
}

// PipelineFinished decrements the active pipeline gauge.
func (pm *PrometheusMetrics) PipelineFinished() {
	pm.activePipelines.Dec()
}

// IncrementProbesTotal increments the probe execution counter.
func (pm *PrometheusMetrics) IncrementProbesTotal(probe, outcome string) {
	pm.probesTotal.WithLabelValues(probe, outcome).Inc()
}

// RecordProbeDuration records the duration of a single probe execution.
func (pm *PrometheusMetrics) RecordProbeDuration(probe string, duration time.Duration) {
	pm.probeDuration.WithLabelValues(probe).Observe(duration.Seconds())
}

// IncrementStoreQueries increments the store operation counter.
func (pm *PrometheusMetrics) IncrementStoreQueries(operation, status string) {
	pm.storeQueries.WithLabelValues(operation, status).Inc()
}

// IncrementStoreErrors increments the store error counter.
func (pm *PrometheusMetrics) IncrementStoreErrors(operation string) {
	pm.storeErrors.WithLabelValues(operation).Inc()
}

// Global metrics instance.
var (
	globalMetrics *PrometheusMetrics
	globalOnce    sync.Once
)

// GetGlobalMetrics returns the global Prometheus metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	globalOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
