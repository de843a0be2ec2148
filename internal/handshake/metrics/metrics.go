// Package metrics exposes Prometheus instrumentation for the handshake
// coordinator. A nil *Metrics is a valid no-op receiver so unit tests can run
// without touching the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	handshakesInitiated prometheus.Counter
	handshakesCompleted prometheus.Counter
	handshakesFailed    prometheus.Counter
	handshakesConsumed  prometheus.Counter
	handshakesExpired   prometheus.Counter
	callbackDuration    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		handshakesInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_handshakes_initiated_total",
			Help: "Total number of OAuth handshakes initiated.",
		}),
		handshakesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_handshakes_completed_total",
			Help: "Total number of handshakes finalized as completed.",
		}),
		handshakesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_handshakes_failed_total",
			Help: "Total number of handshakes finalized as failed.",
		}),
		handshakesConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_handshakes_consumed_total",
			Help: "Total number of completed handshakes delivered to a poller.",
		}),
		handshakesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_handshakes_expired_total",
			Help: "Total number of handshake records evicted by the sweeper.",
		}),
		callbackDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "authbroker_callback_duration_seconds",
			Help:    "Time spent finalizing a provider callback.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncInitiated() {
	if m == nil {
		return
	}
	m.handshakesInitiated.Inc()
}

func (m *Metrics) IncCompleted() {
	if m == nil {
		return
	}
	m.handshakesCompleted.Inc()
}

func (m *Metrics) IncFailed() {
	if m == nil {
		return
	}
	m.handshakesFailed.Inc()
}

func (m *Metrics) IncConsumed() {
	if m == nil {
		return
	}
	m.handshakesConsumed.Inc()
}

func (m *Metrics) AddExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.handshakesExpired.Add(float64(n))
}

func (m *Metrics) ObserveCallbackDuration(seconds float64) {
	if m == nil {
		return
	}
	m.callbackDuration.Observe(seconds)
}
