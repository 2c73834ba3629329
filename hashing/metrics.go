package hashing

import "github.com/prometheus/client_golang/prometheus"

// Verification outcomes recorded by the registry.
const (
	resultMatch    = "match"
	resultMismatch = "mismatch"
	resultMigrated = "migrated"
)

type registryMetrics struct {
	verifications *prometheus.CounterVec
	schemeChanges prometheus.Counter
	rehashFailed  prometheus.Counter
}

func newRegistryMetrics() *registryMetrics {
	m := &registryMetrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "services",
			Subsystem: "credential",
			Name:      "verifications_total",
			Help:      "Credential verifications by outcome.",
		}, []string{"result"}),
		schemeChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "services",
			Subsystem: "credential",
			Name:      "scheme_changes_total",
			Help:      "Number of times the active password scheme was installed or restored.",
		}),
		rehashFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "services",
			Subsystem: "credential",
			Name:      "rehash_failures_total",
			Help:      "Legacy matches whose upgrade to the active scheme failed.",
		}),
	}
	for _, r := range []string{resultMatch, resultMismatch, resultMigrated} {
		m.verifications.WithLabelValues(r)
	}
	return m
}

func (m *registryMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.verifications, m.schemeChanges, m.rehashFailed}
}
