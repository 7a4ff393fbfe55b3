package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stand",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total inference runs by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stand",
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Duration of inference runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"method"},
	)

	activeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stand",
			Subsystem: "engine",
			Name:      "active_runs",
			Help:      "Inference runs currently executing",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, activeRuns)
}
