// Package metrics provides prometheus instrumentation for the broker runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all prometheus collectors for the runtime
type Metrics struct {
	connectionStatus *prometheus.GaugeVec
	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	sendErrors       *prometheus.CounterVec
	subscriptions    *prometheus.GaugeVec
	benchmarkRuns    prometheus.Gauge
}

// NewMetrics creates and registers all collectors with the given registry
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		connectionStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "brokerlab_connection_status",
			Help: "Connection status per broker kind (1 connected, 0 disconnected)",
		}, []string{"broker"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerlab_messages_sent_total",
			Help: "Total messages sent per broker kind",
		}, []string{"broker"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerlab_messages_received_total",
			Help: "Total messages received per broker kind",
		}, []string{"broker"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "brokerlab_send_errors_total",
			Help: "Total failed sends per broker kind",
		}, []string{"broker"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "brokerlab_active_subscriptions",
			Help: "Active subscriptions per broker kind",
		}, []string{"broker"}),
		benchmarkRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "brokerlab_benchmark_runs_active",
			Help: "Number of benchmark runs currently executing",
		}),
	}

	collectors := []prometheus.Collector{
		m.connectionStatus,
		m.messagesSent,
		m.messagesReceived,
		m.sendErrors,
		m.subscriptions,
		m.benchmarkRuns,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// SetConnectionStatus records the connection state for a broker kind
func (m *Metrics) SetConnectionStatus(broker string, connected bool) {
	v := 0.0
	if connected {
		v = 1.0
	}
	m.connectionStatus.WithLabelValues(broker).Set(v)
}

// IncMessagesSent increments the sent counter for a broker kind
func (m *Metrics) IncMessagesSent(broker string) {
	m.messagesSent.WithLabelValues(broker).Inc()
}

// IncMessagesReceived increments the received counter for a broker kind
func (m *Metrics) IncMessagesReceived(broker string) {
	m.messagesReceived.WithLabelValues(broker).Inc()
}

// IncSendErrors increments the send error counter for a broker kind
func (m *Metrics) IncSendErrors(broker string) {
	m.sendErrors.WithLabelValues(broker).Inc()
}

// SetActiveSubscriptions records the subscription count for a broker kind
func (m *Metrics) SetActiveSubscriptions(broker string, n int) {
	m.subscriptions.WithLabelValues(broker).Set(float64(n))
}

// IncBenchmarkRuns increments the active benchmark run gauge
func (m *Metrics) IncBenchmarkRuns() {
	m.benchmarkRuns.Inc()
}

// DecBenchmarkRuns decrements the active benchmark run gauge
func (m *Metrics) DecBenchmarkRuns() {
	m.benchmarkRuns.Dec()
}
