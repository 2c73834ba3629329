package ticket

import "github.com/prometheus/client_golang/prometheus"

const (
	eventCreated   = "created"
	eventDestroyed = "destroyed"
	eventExpired   = "expired"
	eventCollision = "collision"
)

type metrics struct {
	live   prometheus.Gauge
	events *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "services",
			Subsystem: "authcookie",
			Name:      "live",
			Help:      "Number of live authcookies.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "services",
			Subsystem: "authcookie",
			Name:      "events_total",
			Help:      "Authcookie lifecycle events.",
		}, []string{"event"}),
	}
	for _, e := range []string{eventCreated, eventDestroyed, eventExpired, eventCollision} {
		m.events.WithLabelValues(e)
	}
	return m
}

func (m *metrics) register(reg prometheus.Registerer) {
	if reg != nil {
		reg.MustRegister(m.live, m.events)
	}
}
