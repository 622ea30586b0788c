package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful evaluations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed evaluations (upstream or engine issues).
	OutcomeError = "error"
)

var (
	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverage_engine",
			Name:      "evaluations_total",
			Help:      "Total number of fleet evaluations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	evaluationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "coverage_engine",
			Name:      "evaluation_seconds",
			Help:      "Fleet evaluation latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
	)

	hostsClassified = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coverage_engine",
			Name:      "hosts_classified",
			Help:      "Hosts classified in the most recent evaluation.",
		},
	)

	historyCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverage_engine",
			Name:      "history_cache_total",
			Help:      "History fetch cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)
)

// Register attaches coverage-engine collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		evaluationsTotal,
		evaluationDurationSeconds,
		hostsClassified,
		historyCacheTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveEvaluation records an evaluation duration and outcome label.
func ObserveEvaluation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	evaluationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	evaluationDurationSeconds.Observe(duration.Seconds())
}

// SetHostsClassified updates the classified-host gauge.
func SetHostsClassified(count int) {
	hostsClassified.Set(float64(count))
}

// ObserveCacheHit records a history-cache hit.
func ObserveCacheHit() {
	historyCacheTotal.WithLabelValues("hit").Inc()
}

// ObserveCacheMiss records a history-cache miss.
func ObserveCacheMiss() {
	historyCacheTotal.WithLabelValues("miss").Inc()
}
