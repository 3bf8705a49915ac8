package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

const (
	// OutcomeEvaluated labels units whose verdict was absorbed into the run state.
	OutcomeEvaluated = "evaluated"
	// OutcomeSkipped labels units without a determinable ground truth.
	OutcomeSkipped = "skipped"
	// OutcomeFailed labels units abandoned after an unexpected error.
	OutcomeFailed = "failed"

	// RetrySuccess, RetryAgain and RetryExhausted label retry attempts.
	RetrySuccess   = "success"
	RetryAgain     = "retry"
	RetryExhausted = "exhausted"
)

var (
	unitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bfeval",
			Name:      "units_total",
			Help:      "Evaluation units handled, partitioned by run mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	unitDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bfeval",
			Name:      "unit_seconds",
			Help:      "Wall time spent classifying one unit.",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"mode"},
	)

	stageFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bfeval",
			Name:      "stage_fallbacks_total",
			Help:      "Pipeline stages that resolved to their safe default.",
		},
		[]string{"stage"},
	)

	validationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bfeval",
			Name:      "validation_failures_total",
			Help:      "Inputs rejected before reaching the inference back-end.",
		},
		[]string{"pipeline"},
	)

	retryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bfeval",
			Name:      "retry_attempts_total",
			Help:      "Attempts made by the retry wrapper, partitioned by operation and result.",
		},
		[]string{"operation", "result"},
	)

	confusion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bfeval",
			Name:      "confusion",
			Help:      "Current confusion-matrix counts of the active run.",
		},
		[]string{"mode", "cell"},
	)

	score = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bfeval",
			Name:      "score",
			Help:      "Current precision, recall and f1 of the active run.",
		},
		[]string{"mode", "metric"},
	)
)

// Register attaches bfeval collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		unitsTotal,
		unitDurationSeconds,
		stageFallbacksTotal,
		validationFailuresTotal,
		retryAttemptsTotal,
		confusion,
		score,
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

// ObserveUnit records one unit's outcome and, for evaluated units, its duration.
func ObserveUnit(mode, outcome string, duration time.Duration) {
	switch outcome {
	case OutcomeSkipped, OutcomeFailed:
	default:
		outcome = OutcomeEvaluated
	}
	unitsTotal.WithLabelValues(mode, outcome).Inc()
	if outcome != OutcomeEvaluated {
		return
	}
	if duration < 0 {
		duration = 0
	}
	unitDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveStageFallback counts a stage that fell back to its safe default.
func ObserveStageFallback(stage string) {
	stageFallbacksTotal.WithLabelValues(stage).Inc()
}

// ObserveValidationFailure counts an input rejected by pipeline validation.
func ObserveValidationFailure(pipeline string) {
	validationFailuresTotal.WithLabelValues(pipeline).Inc()
}

// ObserveRetry counts one attempt of a retried operation.
func ObserveRetry(operation, result string) {
	retryAttemptsTotal.WithLabelValues(operation, result).Inc()
}

// SetRunState publishes the latest accumulator snapshot for mode.
func SetRunState(mode string, state models.AnalysisState) {
	confusion.WithLabelValues(mode, "positives").Set(float64(state.Positives))
	confusion.WithLabelValues(mode, "tp").Set(float64(state.TruePositives))
	confusion.WithLabelValues(mode, "fp").Set(float64(state.FalsePositives))
	confusion.WithLabelValues(mode, "fn").Set(float64(state.FalseNegatives))
	score.WithLabelValues(mode, "precision").Set(state.Precision)
	score.WithLabelValues(mode, "recall").Set(state.Recall)
	score.WithLabelValues(mode, "f1").Set(state.F1)
}
