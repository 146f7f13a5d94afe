package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quota Prometheus metrics.
var (
	QuotaDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analogist",
			Name:      "quota_decisions_total",
			Help:      "Quota gate decisions",
		},
		[]string{"decision"}, // allowed / denied / store_error / fail_open
	)

	QuotaCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "analogist",
			Name:      "quota_commits_total",
			Help:      "Quota commit attempts by outcome",
		},
		[]string{"result"}, // ok / conflict / error
	)

	QuotaUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "analogist",
			Name:      "quota_used",
			Help:      "Requests counted for the current day",
		},
	)

	QuotaRemaining = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "analogist",
			Name:      "quota_remaining",
			Help:      "Requests left for the current day",
		},
	)
)

var quotaMetricsRegistered bool

// RegisterQuotaMetrics registers quota metrics. Must be called once from main.
func RegisterQuotaMetrics() {
	if quotaMetricsRegistered {
		return
	}
	prometheus.MustRegister(QuotaDecisionsTotal)
	prometheus.MustRegister(QuotaCommitsTotal)
	prometheus.MustRegister(QuotaUsed)
	prometheus.MustRegister(QuotaRemaining)
	quotaMetricsRegistered = true
}
