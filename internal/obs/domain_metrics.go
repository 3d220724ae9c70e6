package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// TierEvaluationsTotal counts evaluation outcomes per engine operation.
	TierEvaluationsTotal *prometheus.CounterVec
	// TierAppliedTotal counts which kind of price list won a selection.
	TierAppliedTotal *prometheus.CounterVec
	// PriceFallbackTotal counts per-item fallbacks to the default-tier price.
	PriceFallbackTotal prometheus.Counter
	// EvaluationDuration records engine operation latency in milliseconds.
	EvaluationDuration *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers pricing-domain
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		TierEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_evaluations_total",
			Help:      "Count of tier evaluation outcomes per operation.",
		}, []string{"operation", "result"})
		TierAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tier_applied_total",
			Help:      "Count of selections by the kind of winning price list.",
		}, []string{"kind"})
		PriceFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fallback_total",
			Help:      "Number of cart lines priced with the default-tier fallback.",
		})
		EvaluationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tier_evaluation_duration_ms",
			Help:      "Latency of engine operations in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"operation"})

		mustRegisterCollector(reg, TierEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TierEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, TierAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TierAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, PriceFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PriceFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, EvaluationDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				EvaluationDuration = v
			}
		})
	})
}
