package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// VaultMetrics records the accounting activity of a vault node: call volume
// and latency per operation, the fungible supply, and the custody gauges the
// operators alert on.
type VaultMetrics struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	issuedSupply prometheus.Gauge
	poolBalance  prometheus.Gauge
	totalStaked  prometheus.Gauge
	capHits      prometheus.Counter
}

var (
	vaultOnce     sync.Once
	vaultRegistry *VaultMetrics
)

// Vault returns the lazily-initialised vault metrics registry.
func Vault() *VaultMetrics {
	vaultOnce.Do(func() {
		vaultRegistry = &VaultMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vault",
				Name:      "calls_total",
				Help:      "Total vault operations segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "vault",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for vault operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			issuedSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vault",
				Name:      "issued_supply",
				Help:      "Fungible token units issued so far.",
			}),
			poolBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vault",
				Name:      "pool_balance",
				Help:      "Assets currently stored in the swap pool.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "vault",
				Name:      "total_staked",
				Help:      "Assets currently staked with the ledger.",
			}),
			capHits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "vault",
				Name:      "supply_cap_hits_total",
				Help:      "Mints rejected because they would exceed the supply cap.",
			}),
		}
		prometheus.MustRegister(
			vaultRegistry.calls,
			vaultRegistry.callDuration,
			vaultRegistry.issuedSupply,
			vaultRegistry.poolBalance,
			vaultRegistry.totalStaked,
			vaultRegistry.capHits,
		)
	})
	return vaultRegistry
}

// ObserveCall records one completed vault operation.
func (m *VaultMetrics) ObserveCall(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.callDuration.WithLabelValues(method).Observe(seconds)
}

func (m *VaultMetrics) SetIssuedSupply(units float64) {
	if m == nil {
		return
	}
	m.issuedSupply.Set(units)
}

func (m *VaultMetrics) SetPoolBalance(assets float64) {
	if m == nil {
		return
	}
	m.poolBalance.Set(assets)
}

func (m *VaultMetrics) SetTotalStaked(assets float64) {
	if m == nil {
		return
	}
	m.totalStaked.Set(assets)
}

func (m *VaultMetrics) IncSupplyCapHit() {
	if m == nil {
		return
	}
	m.capHits.Inc()
}
