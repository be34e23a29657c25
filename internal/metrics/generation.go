package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation and adapter Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"adapter", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"adapter"},
	)

	// GenerationFailuresTotal counts completions that degraded to an empty result.
	GenerationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Completions that degraded to an empty result, by reason",
		},
		[]string{"reason"},
	)

	AdapterLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_loads_total",
			Help:      "LoRA adapter loads on the inference server",
		},
		[]string{"adapter", "status"},
	)

	AdapterEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_evictions_total",
			Help:      "LoRA adapters evicted from the adapter cache",
		},
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers generation and adapter metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(GenerationFailuresTotal)
	prometheus.MustRegister(AdapterLoadsTotal)
	prometheus.MustRegister(AdapterEvictionsTotal)
	genMetricsRegistered = true
}
