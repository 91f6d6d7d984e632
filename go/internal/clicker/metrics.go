package clicker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess        = "success"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"

	RejectNoSession = "no_session"
	RejectInFlight  = "in_flight"
	RejectCooldown  = "cooldown"
)

// MetricsCollector defines the interface for collecting engine metrics
type MetricsCollector interface {
	RecordAction(kind ActionKind, outcome string, duration time.Duration)
	RecordRejected(kind ActionKind, reason string)
	RecordReconciliation(success bool, drift int64)
	RecordProduction(units int64)
	RecordStaleDiscard(call string)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordAction(kind ActionKind, outcome string, duration time.Duration) {}
func (n *NoOpMetricsCollector) RecordRejected(kind ActionKind, reason string)                        {}
func (n *NoOpMetricsCollector) RecordReconciliation(success bool, drift int64)                       {}
func (n *NoOpMetricsCollector) RecordProduction(units int64)                                         {}
func (n *NoOpMetricsCollector) RecordStaleDiscard(call string)                                       {}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	rejections      *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	drift           prometheus.Gauge
	produced        prometheus.Counter
	staleDiscards   *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clicker_actions_total",
			Help: "Resolved user actions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clicker_action_duration_seconds",
			Help:    "Time from dispatch to resolution of a user action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clicker_action_rejections_total",
			Help: "User actions dropped before dispatch.",
		}, []string{"kind", "reason"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clicker_reconciliations_total",
			Help: "Stats syncs by result.",
		}, []string{"result"}),
		drift: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clicker_reconciliation_drift_units",
			Help: "Local minus authoritative balance at the last successful sync.",
		}),
		produced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clicker_local_production_units_total",
			Help: "Units credited by the local production simulation.",
		}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clicker_stale_responses_total",
			Help: "Responses dropped because their session had ended.",
		}, []string{"call"}),
	}

	collectors := []prometheus.Collector{
		m.actions, m.actionDuration, m.rejections, m.reconciliations, m.drift, m.produced, m.staleDiscards,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordAction(kind ActionKind, outcome string, duration time.Duration) {
	m.actions.WithLabelValues(kind.String(), outcome).Inc()
	m.actionDuration.WithLabelValues(kind.String()).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRejected(kind ActionKind, reason string) {
	m.rejections.WithLabelValues(kind.String(), reason).Inc()
}

func (m *PrometheusMetrics) RecordReconciliation(success bool, drift int64) {
	if !success {
		m.reconciliations.WithLabelValues("failure").Inc()
		return
	}
	m.reconciliations.WithLabelValues("success").Inc()
	m.drift.Set(float64(drift))
}

func (m *PrometheusMetrics) RecordProduction(units int64) {
	m.produced.Add(float64(units))
}

func (m *PrometheusMetrics) RecordStaleDiscard(call string) {
	m.staleDiscards.WithLabelValues(call).Inc()
}
