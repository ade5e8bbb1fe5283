package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCommand("certify_harvest", "ok", time.Now())
	m.ObserveCommand("certify_harvest", "quality_standards_not_met", time.Now())
	m.IncrementDecision("certified")
	m.AddHarvestedWeight(5000)
	m.IncrementPublishFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("certify_harvest", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("certified")))
	assert.Equal(t, 5000.0, testutil.ToFloat64(m.HarvestedWeight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("register_harvest", "ok", time.Now())
		m.IncrementDecision("rejected")
		m.AddHarvestedWeight(1)
		m.IncrementPublishFailure()
	})
}
