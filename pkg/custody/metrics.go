package custody

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks custody activity. A nil *Metrics records nothing.
type Metrics struct {
	keysRegistered     prometheus.Counter
	donations          prometheus.Counter
	recoveries         *prometheus.CounterVec
	claims             prometheus.Counter
	rejectedSignatures prometheus.Counter
	transferFailures   prometheus.Counter
	openPools          prometheus.Gauge
}

// NewMetrics builds the custody collectors under namespace and registers
// them with reg. Pass prometheus.NewRegistry() in tests to avoid clashing
// with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		keysRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custody_keys_registered_total",
			Help:      "Count of public keys registered for the first time.",
		}),
		donations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custody_donations_total",
			Help:      "Count of accepted donations.",
		}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custody_recoveries_total",
			Help:      "Count of recovery attempts by outcome.",
		}, []string{"outcome"}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custody_claims_total",
			Help:      "Count of successful pool sweeps.",
		}),
		rejectedSignatures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custody_rejected_signatures_total",
			Help:      "Count of claims rejected for a bad signature.",
		}),
		transferFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "custody_transfer_failures_total",
			Help:      "Count of failed payout transfers.",
		}),
		openPools: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "custody_open_pools",
			Help:      "Number of keys currently holding a non-zero pool, seeded from storage at startup.",
		}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		m.keysRegistered,
		m.donations,
		m.recoveries,
		m.claims,
		m.rejectedSignatures,
		m.transferFailures,
		m.openPools,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) seedOpenPools(n int) {
	if m == nil {
		return
	}
	m.openPools.Set(float64(n))
}

func (m *Metrics) observeKeyRegistered() {
	if m == nil {
		return
	}
	m.keysRegistered.Inc()
}

func (m *Metrics) observeDonation(poolOpened bool) {
	if m == nil {
		return
	}
	m.donations.Inc()
	if poolOpened {
		m.openPools.Inc()
	}
}

func (m *Metrics) observeRecovery(outcome RecoveryOutcome, poolClosed bool) {
	if m == nil {
		return
	}
	m.recoveries.WithLabelValues(outcome.String()).Inc()
	if poolClosed {
		m.openPools.Dec()
	}
}

func (m *Metrics) observeClaim(poolClosed bool) {
	if m == nil {
		return
	}
	m.claims.Inc()
	if poolClosed {
		m.openPools.Dec()
	}
}

func (m *Metrics) observeRejectedSignature() {
	if m == nil {
		return
	}
	m.rejectedSignatures.Inc()
}

func (m *Metrics) observeTransferFailure() {
	if m == nil {
		return
	}
	m.transferFailures.Inc()
}
