package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    SignalsGenerated = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "quantsig",
            Subsystem: "engine",
            Name:      "signals_generated_total",
            Help:      "Signals produced per symbol and direction",
        },
        []string{"symbol", "direction"},
    )

    SignalsRejected = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "quantsig",
            Subsystem: "engine",
            Name:      "signals_rejected_total",
            Help:      "Candidate signals rejected before publication",
        },
        []string{"reason"},
    )

    EvaluatorLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "quantsig",
            Subsystem: "engine",
            Name:      "evaluator_latency_seconds",
            Help:      "Latency of individual evaluators",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"evaluator"},
    )

    EvaluatorErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "quantsig",
            Subsystem: "engine",
            Name:      "evaluator_errors_total",
            Help:      "Errors and timeouts by evaluator",
        },
        []string{"evaluator"},
    )

    BacktestDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "quantsig",
            Subsystem: "backtest",
            Name:      "duration_seconds",
            Help:      "Wall time of backtest runs",
            Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
        },
        []string{"mode"},
    )

    ModelTrainings = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "quantsig",
            Subsystem: "model",
            Name:      "trainings_total",
            Help:      "Model training runs per outcome",
        },
        []string{"outcome"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(
            SignalsGenerated,
            SignalsRejected,
            EvaluatorLatency,
            EvaluatorErrors,
            BacktestDuration,
            ModelTrainings,
        )
    })
}
