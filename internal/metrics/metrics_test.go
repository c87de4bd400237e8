package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPullMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Begin()
	m.Begin()
	m.End()
	require.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.RecordDraw("Legendary", false)
	m.RecordDraw("Common", true)
	m.RecordDraw("Common", false)
	require.Equal(t, 1.0, testutil.ToFloat64(m.draws.WithLabelValues("legendary")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.draws.WithLabelValues("common")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks))

	m.RecordPull("completed", 2*time.Second)
	m.RecordPull("", time.Second)
	require.Equal(t, 1.0, testutil.ToFloat64(m.pulls.WithLabelValues("completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.pulls.WithLabelValues("unspecified")))

	m.RecordError("insufficient_funds")
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("insufficient_funds")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *PullMetrics
	require.NotPanics(t, func() {
		m.Begin()
		m.End()
		m.RecordDraw("rare", true)
		m.RecordPull("completed", time.Second)
		m.RecordError("x")
	})
}

func TestPullsIsSingleton(t *testing.T) {
	require.Same(t, Pulls(), Pulls())
}

func TestRegistryGathersNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordPull("completed", time.Second)
	m.RecordDraw("rare", false)
	m.RecordError("pull_canceled")
	m.RecordDraw("common", true)

	count, err := testutil.GatherAndCount(reg,
		"gacha_pulls_total", "gacha_draws_total", "gacha_draw_fallback_total",
		"gacha_pull_errors_total", "gacha_pull_duration_seconds", "gacha_pulls_in_flight")
	require.NoError(t, err)
	require.Equal(t, 7, count)
}
