package lecture

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "masomo_live"

var (
	metricConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "connections",
		Help:      "Registered transport connections.",
	})
	metricRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "rooms",
		Help:      "Rooms held in memory.",
	})
	metricMembers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "members",
		Help:      "Room memberships across all rooms.",
	})
	metricEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "events_total",
		Help:      "Outbound events, by event name and outcome (sent|dropped).",
	}, []string{"event", "outcome"})
	metricEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "evictions_total",
		Help:      "Sessions evicted by the liveness reaper.",
	})
	metricPersistFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "persist_failures_total",
		Help:      "Failed or dropped durable store writes, by task.",
	}, []string{"task"})
)

func init() {
	prometheus.MustRegister(metricConnections, metricRooms, metricMembers, metricEvents, metricEvictions, metricPersistFailures)
}

func countEvent(name string, sent bool) {
	outcome := "sent"
	if !sent {
		outcome = "dropped"
	}
	metricEvents.WithLabelValues(name, outcome).Inc()
}
