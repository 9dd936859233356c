// Package metrics exposes the broker's Prometheus counters/gauges and an
// ambient system resource snapshot. These are additive observability
// surfaces (SPEC_FULL.md §3): they do not back any operation spec.md
// names, and /stats (spec.md §6) is computed separately, from
// internal/broker, not from here.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the broker updates.
type Metrics struct {
	publishesTotal  prometheus.Counter
	deliveredTotal  prometheus.Counter
	droppedWakes    prometheus.Counter
	authRejections  *prometheus.CounterVec
	activeClients   prometheus.Gauge
	activeTopics    prometheus.Gauge
	connectionsOpen prometheus.Counter

	startTime time.Time
}

// New registers and returns a fresh Metrics instance against reg. The
// esper binary and the tests each pass a fresh prometheus.NewRegistry(),
// so repeated construction never collides on collector names.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),

		publishesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "esper_publishes_total",
			Help: "Total number of publish operations accepted.",
		}),
		deliveredTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "esper_messages_delivered_total",
			Help: "Total number of (subscriber, message) deliveries enqueued by publish.",
		}),
		droppedWakes: factory.NewCounter(prometheus.CounterOpts{
			Name: "esper_dropped_wakes_total",
			Help: "Total number of wake signals that could not be delivered to a connection.",
		}),
		authRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "esper_auth_rejections_total",
			Help: "Total number of requests rejected by the access gate, by route.",
		}, []string{"route"}),
		activeClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "esper_active_clients",
			Help: "Current number of subscribed clients.",
		}),
		activeTopics: factory.NewGauge(prometheus.GaugeOpts{
			Name: "esper_active_topics",
			Help: "Current number of topics with at least one subscriber entry ever recorded.",
		}),
		connectionsOpen: factory.NewCounter(prometheus.CounterOpts{
			Name: "esper_connections_total",
			Help: "Total number of HTTP connections accepted by the connection state machine.",
		}),
	}
}

func (m *Metrics) IncPublished()      { m.publishesTotal.Inc() }
func (m *Metrics) AddDelivered(n int) { m.deliveredTotal.Add(float64(n)) }
func (m *Metrics) IncDroppedWake()    { m.droppedWakes.Inc() }
func (m *Metrics) IncAuthRejection(route string) {
	m.authRejections.WithLabelValues(route).Inc()
}
func (m *Metrics) SetActiveClients(n int) { m.activeClients.Set(float64(n)) }
func (m *Metrics) SetActiveTopics(n int)  { m.activeTopics.Set(float64(n)) }
func (m *Metrics) IncConnection()         { m.connectionsOpen.Inc() }
func (m *Metrics) Uptime() time.Duration  { return time.Since(m.startTime) }
