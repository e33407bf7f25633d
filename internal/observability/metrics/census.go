// Package metrics provides census pipeline metrics for observability
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// CensusMetrics contains Prometheus metrics for the estimation pipeline.
type CensusMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	windowsTotal      *prometheus.CounterVec
	windowNodes       *prometheus.HistogramVec
	edgesRemovedTotal *prometheus.CounterVec
	windowCount       *prometheus.HistogramVec
	speciesEstimate   *prometheus.GaugeVec
	cacheLookupsTotal *prometheus.CounterVec
}

// NewCensusMetrics creates and registers census metrics.
func NewCensusMetrics(registry *prometheus.Registry) (*CensusMetrics, error) {
	m := &CensusMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize census metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register census metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *CensusMetrics) initMetrics() error {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_operations_total",
			Help: "Total number of census operations",
		},
		[]string{"operation", "status"}, // operation: estimate, species, window; status: success, error
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "census_operation_duration_seconds",
			Help:    "Time taken by census operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart100us, BucketFactor2, BucketCount12), // 0.1ms to ~400ms
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_errors_total",
			Help: "Total number of census errors by category",
		},
		[]string{"operation", "error_type"},
	)

	m.windowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_windows_total",
			Help: "Total number of detection windows counted",
		},
		[]string{"species"},
	)

	m.windowNodes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "census_window_nodes",
			Help:    "Number of distinct nodes per detection window",
			Buckets: prometheus.LinearBuckets(1, 1, BucketCount10),
		},
		[]string{"species"},
	)

	m.edgesRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_alternation_edges_removed_total",
			Help: "Total number of edges removed by subgraph alternation",
		},
		[]string{"species"},
	)

	m.windowCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "census_window_individuals",
			Help:    "Individuals counted per detection window",
			Buckets: prometheus.LinearBuckets(1, 1, BucketCount10),
		},
		[]string{"species"},
	)

	m.speciesEstimate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "census_species_estimate",
			Help: "Latest estimated number of individuals per species",
		},
		[]string{"species"},
	)

	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "census_alternation_cache_lookups_total",
			Help: "Alternation cache lookups by result",
		},
		[]string{"result"}, // result: hit, miss
	)

	return nil
}

// Describe implements the prometheus.Collector interface.
func (m *CensusMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.windowsTotal.Describe(ch)
	m.windowNodes.Describe(ch)
	m.edgesRemovedTotal.Describe(ch)
	m.windowCount.Describe(ch)
	m.speciesEstimate.Describe(ch)
	m.cacheLookupsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *CensusMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.windowsTotal.Collect(ch)
	m.windowNodes.Collect(ch)
	m.edgesRemovedTotal.Collect(ch)
	m.windowCount.Collect(ch)
	m.speciesEstimate.Collect(ch)
	m.cacheLookupsTotal.Collect(ch)
}

// RecordOperation implements Recorder.
func (m *CensusMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *CensusMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *CensusMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordWindow implements CensusRecorder.
func (m *CensusMetrics) RecordWindow(species string, nodes, edgesRemoved, count int) {
	m.windowsTotal.WithLabelValues(species).Inc()
	m.windowNodes.WithLabelValues(species).Observe(float64(nodes))
	m.windowCount.WithLabelValues(species).Observe(float64(count))
	if edgesRemoved > 0 {
		m.edgesRemovedTotal.WithLabelValues(species).Add(float64(edgesRemoved))
	}
}

// SetEstimate implements CensusRecorder.
func (m *CensusMetrics) SetEstimate(species string, count int) {
	m.speciesEstimate.WithLabelValues(species).Set(float64(count))
}

// RecordCacheLookup implements CensusRecorder.
func (m *CensusMetrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(result).Inc()
}
