// Package metrics exposes Prometheus collectors for the pull pipeline.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pullMetricsOnce sync.Once
	pullRegistry    *PullMetrics
)

// PullMetrics wraps collectors tracking pull outcomes and draw distribution.
type PullMetrics struct {
	pulls     *prometheus.CounterVec
	draws     *prometheus.CounterVec
	fallbacks prometheus.Counter
	errors    *prometheus.CounterVec
	duration  prometheus.Histogram
	inFlight  prometheus.Gauge
}

// Pulls returns the lazily registered process-wide metrics.
func Pulls() *PullMetrics {
	pullMetricsOnce.Do(func() {
		pullRegistry = New(prometheus.DefaultRegisterer)
	})
	return pullRegistry
}

// New builds a metrics set registered with reg. A nil reg leaves the
// collectors unregistered.
func New(reg prometheus.Registerer) *PullMetrics {
	m := &PullMetrics{
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gacha",
			Name:      "pulls_total",
			Help:      "Finished pulls segmented by outcome.",
		}, []string{"outcome"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gacha",
			Name:      "draws_total",
			Help:      "Reward draws segmented by tier.",
		}, []string{"tier"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gacha",
			Name:      "draw_fallback_total",
			Help:      "Draws that matched no tier and fell back to Common.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gacha",
			Name:      "pull_errors_total",
			Help:      "Failed pulls segmented by error kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gacha",
			Name:      "pull_duration_seconds",
			Help:      "Wall time of a pull from request to terminal state.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gacha",
			Name:      "pulls_in_flight",
			Help:      "Pulls currently between request and terminal state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.pulls, m.draws, m.fallbacks, m.errors, m.duration, m.inFlight)
	}
	return m
}

// RecordPull counts a finished pull and its duration.
func (m *PullMetrics) RecordPull(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.pulls.WithLabelValues(label(outcome)).Inc()
	m.duration.Observe(d.Seconds())
}

// RecordDraw counts a draw for tier.
func (m *PullMetrics) RecordDraw(tier string, fallback bool) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(label(tier)).Inc()
	if fallback {
		m.fallbacks.Inc()
	}
}

// RecordError increments the error counter for kind.
func (m *PullMetrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(label(kind)).Inc()
}

func (m *PullMetrics) Begin() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *PullMetrics) End() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func label(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unspecified"
	}
	return v
}
