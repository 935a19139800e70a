package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "session",
			Name:      "loads_total",
			Help:      "Total model load attempts",
		},
		[]string{"outcome"},
	)

	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently holding a loaded model",
		},
	)

	backendActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "backend",
			Name:      "active",
			Help:      "Whether the compute runtime is initialized (0 or 1)",
		},
	)

	predictDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "session",
			Name:      "predict_duration_seconds",
			Help:      "Duration of predict calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	promptTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "session",
			Name:      "prompt_tokens_total",
			Help:      "Prompt tokens submitted across all predicts",
		},
	)

	generatedTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "session",
			Name:      "generated_tokens_total",
			Help:      "Tokens generated across all predicts",
		},
	)
)

func init() {
	prometheus.MustRegister(
		loadsTotal,
		activeSessions,
		backendActive,
		predictDuration,
		promptTokensTotal,
		generatedTokensTotal,
	)
}
