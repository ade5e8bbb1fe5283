package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the outbox relay. A nil *Metrics records nothing.
type Metrics struct {
	Relayed      prometheus.Counter
	Failures     prometheus.Counter
	Backlog      prometheus.Gauge
	BreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Relayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvestcert_outbox_relayed_total",
			Help: "Total number of outbox events delivered to the publisher",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "harvestcert_outbox_relay_failures_total",
			Help: "Total number of failed outbox relay attempts",
		}),
		Backlog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvestcert_outbox_backlog",
			Help: "Number of outbox events awaiting delivery",
		}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "harvestcert_outbox_breaker_state",
			Help: "Relay circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) addRelayed(n int) {
	if m == nil {
		return
	}
	m.Relayed.Add(float64(n))
}

func (m *Metrics) incFailure() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}

func (m *Metrics) setBacklog(n int) {
	if m == nil {
		return
	}
	m.Backlog.Set(float64(n))
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
