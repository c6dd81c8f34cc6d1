package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "citation"

// Metrics holds the Prometheus collectors for one detection session.
//
// All methods are safe to call on a nil *Metrics, which lets tests and
// tools run the engine without a registry.
type Metrics struct {
	// CitationsTotal counts scored citations. Labels: code.
	CitationsTotal *prometheus.CounterVec

	// PointsTotal mirrors the session point total.
	PointsTotal prometheus.Gauge

	// PursuitActive is 1 while a pursuit owns the tick loop.
	PursuitActive prometheus.Gauge

	// TicksTotal counts detection ticks. Labels: outcome
	// (monitoring, pursuit, waiting, paused).
	TicksTotal *prometheus.CounterVec

	// DetectorFailuresTotal counts recovered detector-group panics. Labels: group.
	DetectorFailuresTotal *prometheus.CounterVec

	// QueueDroppedTotal counts work items dropped because a queue was full.
	// Labels: queue.
	QueueDroppedTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CitationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "citations_total",
			Help:      "Scored citations by violation code.",
		}, []string{"code"}),
		PointsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "points_total",
			Help:      "Total points accumulated this session.",
		}),
		PursuitActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "pursuit_active",
			Help:      "1 while a pursuit is in progress.",
		}),
		TicksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Detection ticks by outcome.",
		}, []string{"outcome"}),
		DetectorFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "detector_failures_total",
			Help:      "Recovered detector group failures.",
		}, []string{"group"}),
		QueueDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queue_dropped_total",
			Help:      "Work items dropped because the queue was full.",
		}, []string{"queue"}),
	}
}

// CitationScored records a scored citation.
func (m *Metrics) CitationScored(code string) {
	if m == nil {
		return
	}
	m.CitationsTotal.WithLabelValues(code).Inc()
}

// SetPoints publishes the current point total.
func (m *Metrics) SetPoints(total int) {
	if m == nil {
		return
	}
	m.PointsTotal.Set(float64(total))
}

// SetPursuitActive publishes the pursuit flag.
func (m *Metrics) SetPursuitActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.PursuitActive.Set(1)
		return
	}
	m.PursuitActive.Set(0)
}

// Tick records a tick outcome.
func (m *Metrics) Tick(outcome string) {
	if m == nil {
		return
	}
	m.TicksTotal.WithLabelValues(outcome).Inc()
}

// DetectorFailed records a recovered detector failure.
func (m *Metrics) DetectorFailed(group string) {
	if m == nil {
		return
	}
	m.DetectorFailuresTotal.WithLabelValues(group).Inc()
}

// QueueDropped records a dropped work item.
func (m *Metrics) QueueDropped(queue string) {
	if m == nil {
		return
	}
	m.QueueDroppedTotal.WithLabelValues(queue).Inc()
}
