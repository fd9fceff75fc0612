package arbiter

import "github.com/prometheus/client_golang/prometheus"

// metrics exposes certification pipeline counters for the arbiter's
// operator to watch (spec.md's surrounding HTTP realization registers
// these on /metrics; the core just increments them).
type metrics struct {
	contractsCertified prometheus.Counter
	contractsRejected  prometheus.Counter
	payoutsCertified   prometheus.Counter
	payoutsRejected    prometheus.Counter
	idempotentHits     prometheus.Counter
	rateLimited        prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		contractsCertified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wagerd",
			Subsystem: "arbiter",
			Name:      "contracts_certified_total",
			Help:      "Number of contracts the arbiter has signed.",
		}),
		contractsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wagerd",
			Subsystem: "arbiter",
			Name:      "contracts_rejected_total",
			Help:      "Number of submit-contract calls that failed validation.",
		}),
		payoutsCertified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wagerd",
			Subsystem: "arbiter",
			Name:      "payouts_certified_total",
			Help:      "Number of payouts the arbiter has co-signed.",
		}),
		payoutsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wagerd",
			Subsystem: "arbiter",
			Name:      "payouts_rejected_total",
			Help:      "Number of submit-payout calls that failed validation.",
		}),
		idempotentHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wagerd",
			Subsystem: "arbiter",
			Name:      "idempotent_hits_total",
			Help:      "Number of submissions served from the idempotence cache.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wagerd",
			Subsystem: "arbiter",
			Name:      "rate_limited_total",
			Help:      "Number of submissions rejected by the signing rate limiter.",
		}),
	}
}

// Collectors returns every metric so a caller can register them with a
// prometheus.Registerer.
func (m *metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.contractsCertified,
		m.contractsRejected,
		m.payoutsCertified,
		m.payoutsRejected,
		m.idempotentHits,
		m.rateLimited,
	}
}
