package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_translations_total",
			Help: "Total number of natural-language translations by outcome.",
		},
		[]string{"outcome"},
	)
	modelLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_model_latency_ms",
			Help:    "Language model completion latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		},
	)
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_executions_total",
			Help: "Total number of generated statement executions by outcome.",
		},
		[]string{"outcome"},
	)
	executionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_execution_latency_ms",
			Help:    "Generated statement execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
		},
	)
	resultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_result_rows",
			Help:    "Number of rows returned by generated statements.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		modelLatencyMs,
		executionsTotal,
		executionLatencyMs,
		resultRows,
	)
}

// ObserveTranslation records one model round trip. outcome is "ok" or "error".
func ObserveTranslation(outcome string, elapsed time.Duration) {
	translationsTotal.WithLabelValues(outcome).Inc()
	modelLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

// ObserveExecution records one statement execution. outcome is "ok", "rejected"
// or the error class reported by the executor.
func ObserveExecution(outcome string, rows int, elapsed time.Duration) {
	executionsTotal.WithLabelValues(outcome).Inc()
	if outcome != "ok" {
		return
	}
	executionLatencyMs.Observe(float64(elapsed.Milliseconds()))
	if rows < 0 {
		rows = 0
	}
	resultRows.Observe(float64(rows))
}
