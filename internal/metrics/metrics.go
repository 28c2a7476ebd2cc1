// Package metrics defines the Prometheus collectors exported by the editor.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mermaidflow"

// Repair outcomes.
const (
	OutcomeApplied    = "applied"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
	OutcomeRejected   = "rejected"
)

// Metrics holds the editor's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	commits        prometheus.Counter
	commitNoops    prometheus.Counter
	undos          *prometheus.CounterVec
	redos          *prometheus.CounterVec
	renderDuration prometheus.Histogram
	renderFailures prometheus.Counter
	renderStale    prometheus.Counter
	repairs        *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_commits_total",
			Help:      "Snapshots recorded in edit history.",
		}),
		commitNoops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_commit_noops_total",
			Help:      "Commits skipped because the content was unchanged.",
		}),
		undos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_undo_total",
			Help:      "Undo requests by result.",
		}, []string{"applied"}),
		redos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_redo_total",
			Help:      "Redo requests by result.",
		}, []string{"applied"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of render calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_failures_total",
			Help:      "Render calls that returned an error.",
		}),
		renderStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_stale_total",
			Help:      "Render results discarded because a newer render started.",
		}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_total",
			Help:      "AI repair attempts by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open editing sessions.",
		}),
	}

	reg.MustRegister(
		m.commits, m.commitNoops, m.undos, m.redos,
		m.renderDuration, m.renderFailures, m.renderStale,
		m.repairs, m.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Commit records a commit attempt.
func (m *Metrics) Commit(recorded bool) {
	if m == nil {
		return
	}
	if recorded {
		m.commits.Inc()
	} else {
		m.commitNoops.Inc()
	}
}

// Undo records an undo request.
func (m *Metrics) Undo(applied bool) {
	if m == nil {
		return
	}
	m.undos.WithLabelValues(boolLabel(applied)).Inc()
}

// Redo records a redo request.
func (m *Metrics) Redo(applied bool) {
	if m == nil {
		return
	}
	m.redos.WithLabelValues(boolLabel(applied)).Inc()
}

// Render records a completed render.
func (m *Metrics) Render(d time.Duration, failed, stale bool) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(d.Seconds())
	if failed {
		m.renderFailures.Inc()
	}
	if stale {
		m.renderStale.Inc()
	}
}

// Repair records an AI repair outcome.
func (m *Metrics) Repair(outcome string) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(outcome).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
