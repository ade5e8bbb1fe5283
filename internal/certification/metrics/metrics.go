package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registry commands and certification outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	Decisions       *prometheus.CounterVec
	HarvestedWeight prometheus.Counter
	PublishFailures prometheus.Counter
}

// New registers the registry metrics on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "harvestcert_commands_total",
			Help: "Registry commands by name and outcome code",
		}, []string{"command", "outcome"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvestcert_command_duration_seconds",
			Help:    "Duration of registry commands including storage commit",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"command"}),
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "harvestcert_certification_decisions_total",
			Help: "Certification decisions by resulting status",
		}, []string{"status"}),
		HarvestedWeight: f.NewCounter(prometheus.CounterOpts{
			Name: "harvestcert_harvested_weight_grams_total",
			Help: "Weight of registered harvests in grams",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "harvestcert_event_publish_failures_total",
			Help: "Post-commit event deliveries that failed",
		}),
	}
}

// ObserveCommand records one command outcome ("ok" or an error code).
func (m *Metrics) ObserveCommand(command, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementDecision(status string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(status).Inc()
}

func (m *Metrics) AddHarvestedWeight(grams uint64) {
	if m == nil {
		return
	}
	m.HarvestedWeight.Add(float64(grams))
}

func (m *Metrics) IncrementPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}
