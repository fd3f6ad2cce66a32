package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search pipeline runs",
		},
		[]string{"outcome"}, // "ok" / "empty" / "unrouted"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	CollectionSearchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_search_total",
			Help:      "Per-collection sub-searches by status",
		},
		[]string{"collection", "status"}, // "ok" / "error" / "timeout" / "rejected"
	)

	CollectionSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_search_duration_seconds",
			Help:      "Per-collection sub-search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"collection"},
	)

	RoutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routed_total",
			Help:      "Number of times a collection was selected for a query",
		},
		[]string{"collection"},
	)

	QueryExpansionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_expansion_total",
			Help:      "Query expansion outcomes",
		},
		[]string{"result"}, // "expanded" / "fallback"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CollectionSearchTotal)
	prometheus.MustRegister(CollectionSearchDuration)
	prometheus.MustRegister(RoutedTotal)
	prometheus.MustRegister(QueryExpansionTotal)
	searchMetricsRegistered = true
}
