// Package metrics exposes Prometheus instrumentation for the identity
// service. A nil *Metrics is a valid no-op receiver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	usersCreated prometheus.Counter
	usersLinked  prometheus.Counter
	signIns      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		usersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_users_created_total",
			Help: "Total number of user accounts created.",
		}),
		usersLinked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_users_linked_total",
			Help: "Total number of existing accounts linked to an OAuth identity.",
		}),
		signIns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authbroker_signins_total",
			Help: "Total number of successful password sign-ins.",
		}),
	}
}

func (m *Metrics) IncUsersCreated() {
	if m == nil {
		return
	}
	m.usersCreated.Inc()
}

func (m *Metrics) IncUsersLinked() {
	if m == nil {
		return
	}
	m.usersLinked.Inc()
}

func (m *Metrics) IncSignIns() {
	if m == nil {
		return
	}
	m.signIns.Inc()
}
