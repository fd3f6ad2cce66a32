package metrics

import "github.com/prometheus/client_golang/prometheus"

// Learned weight Prometheus metrics.
var (
	CollectionWeight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_weight",
			Help:      "Current learned routing weight per collection",
		},
		[]string{"collection"},
	)

	WeightRewardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_rewards_total",
			Help:      "Number of rewards applied per collection",
		},
		[]string{"collection"},
	)

	WeightDecaysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_decays_total",
			Help:      "Number of decay passes applied to the weight table",
		},
	)

	WeightsPersistErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weights_persist_errors_total",
			Help:      "Failed weight table loads and saves",
		},
		[]string{"op"}, // "load" / "save"
	)
)

var weightMetricsRegistered bool

// RegisterWeightMetrics registers Prometheus weight metrics. Must be called once from main.
func RegisterWeightMetrics() {
	if weightMetricsRegistered {
		return
	}
	prometheus.MustRegister(CollectionWeight)
	prometheus.MustRegister(WeightRewardsTotal)
	prometheus.MustRegister(WeightDecaysTotal)
	prometheus.MustRegister(WeightsPersistErrorsTotal)
	weightMetricsRegistered = true
}
