// Package metrics provides custom Prometheus metrics for the census pipeline.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete Prometheus collectors.
type Recorder interface {
	// RecordOperation records an operation with its status ("success", "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type, usually the
	// error category.
	RecordError(operation, errorType string)
}

// CensusRecorder extends Recorder with the estimator's domain measurements.
type CensusRecorder interface {
	Recorder

	// RecordWindow records the shape and result of one counted window.
	RecordWindow(species string, nodes, edgesRemoved, count int)

	// SetEstimate publishes the latest estimate for a species.
	SetEstimate(species string, count int)

	// RecordCacheLookup records an alternation cache hit or miss.
	RecordCacheLookup(hit bool)
}

// NoOpRecorder is a no-op implementation of CensusRecorder.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// RecordWindow does nothing.
func (n *NoOpRecorder) RecordWindow(species string, nodes, edgesRemoved, count int) {}

// SetEstimate does nothing.
func (n *NoOpRecorder) SetEstimate(species string, count int) {}

// RecordCacheLookup does nothing.
func (n *NoOpRecorder) RecordCacheLookup(hit bool) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}
