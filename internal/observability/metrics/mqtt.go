package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Kinds of census messages, used as the kind label.
const (
	MessageKindSummary = "summary" // one per run, on the topic prefix
	MessageKindSpecies = "species" // one per estimated species
)

// MQTT error stages, used as the stage label of census_mqtt_errors_total.
const (
	StageConnect        = "connect"
	StageConnectionLost = "connection_lost"
	StageEncode         = "encode"
	StageThrottle       = "throttle"
	StagePublish        = OpPublish
)

// MQTTMetrics contains Prometheus metrics for publishing census results over MQTT.
type MQTTMetrics struct {
	ConnectionStatus  prometheus.Gauge
	LastConnectTime   prometheus.Gauge
	ReconnectAttempts prometheus.Counter

	MessagesDelivered *prometheus.CounterVec   // kind
	Errors            *prometheus.CounterVec   // stage, kind
	MessageSize       *prometheus.HistogramVec // kind
	PublishLatency    *prometheus.HistogramVec // kind
	ThrottleWait      prometheus.Histogram
}

// NewMQTTMetrics creates the MQTT metrics and registers them with registry.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "census_mqtt_connection_status",
			Help: "MQTT connection status (1 for connected, 0 for disconnected)",
		}),
		LastConnectTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "census_mqtt_last_connect_time_seconds",
			Help: "Unix time of the last successful MQTT connection",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "census_mqtt_reconnect_attempts_total",
			Help: "MQTT reconnection attempts",
		}),
		MessagesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "census_mqtt_messages_delivered_total",
			Help: "Census messages delivered to the broker",
		}, []string{"kind"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "census_mqtt_errors_total",
			Help: "MQTT failures by stage; kind is empty for connection errors",
		}, []string{"stage", "kind"}),
		MessageSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "census_mqtt_message_size_bytes",
			Help:    "Size of delivered census messages in bytes",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}, []string{"kind"}),
		PublishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "census_mqtt_publish_latency_seconds",
			Help:    "Time from publish to broker acknowledgement",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}, []string{"kind"}),
		ThrottleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "census_mqtt_throttle_wait_seconds",
			Help:    "Time species messages waited for the publish rate limiter",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		}),
	}

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// UpdateConnectionStatus sets the connection gauge; connecting also stamps
// the last connect time.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.ConnectionStatus.Set(1)
		m.LastConnectTime.SetToCurrentTime()
		return
	}
	m.ConnectionStatus.Set(0)
}

// IncrementReconnectAttempts counts a reconnection attempt.
func (m *MQTTMetrics) IncrementReconnectAttempts() {
	m.ReconnectAttempts.Inc()
}

// RecordError counts a failure at stage. kind is empty when no message was
// involved.
func (m *MQTTMetrics) RecordError(stage, kind string) {
	m.Errors.WithLabelValues(stage, kind).Inc()
}

// RecordDelivered records a delivered message of kind.
func (m *MQTTMetrics) RecordDelivered(kind string, sizeBytes int, latency time.Duration) {
	m.MessagesDelivered.WithLabelValues(kind).Inc()
	m.MessageSize.WithLabelValues(kind).Observe(float64(sizeBytes))
	m.PublishLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

// ObserveThrottleWait records how long a message waited for the rate limiter.
func (m *MQTTMetrics) ObserveThrottleWait(d time.Duration) {
	m.ThrottleWait.Observe(d.Seconds())
}

// Collect implements the prometheus.Collector interface.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.ConnectionStatus
	ch <- m.LastConnectTime
	ch <- m.ReconnectAttempts
	m.MessagesDelivered.Collect(ch)
	m.Errors.Collect(ch)
	m.MessageSize.Collect(ch)
	m.PublishLatency.Collect(ch)
	ch <- m.ThrottleWait
}

// Describe implements the prometheus.Collector interface.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.ConnectionStatus.Desc()
	ch <- m.LastConnectTime.Desc()
	ch <- m.ReconnectAttempts.Desc()
	m.MessagesDelivered.Describe(ch)
	m.Errors.Describe(ch)
	m.MessageSize.Describe(ch)
	m.PublishLatency.Describe(ch)
	ch <- m.ThrottleWait.Desc()
}
