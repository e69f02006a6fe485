// Package metrics exposes Prometheus instrumentation for kernel invocations
// and the HTTP service. Collectors register on the default registry at init
// and are served by the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantkit_op_invocations_total",
		Help: "Total number of kernel invocations",
	}, []string{"op", "dtype"})

	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quantkit_op_duration_seconds",
		Help:    "Kernel execution time",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"op", "dtype"})

	OpRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantkit_op_rows_total",
		Help: "Total number of rows normalized",
	}, []string{"op", "dtype"})

	OpElements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantkit_op_elements_total",
		Help: "Total number of elements processed",
	}, []string{"op", "dtype"})

	RowLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quantkit_row_length_elements",
		Help:    "Distribution of normalization row lengths",
		Buckets: []float64{8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192},
	})

	ConformanceCases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantkit_conformance_cases_total",
		Help: "Conformance cases run, by outcome",
	}, []string{"outcome"})

	RequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quantkit_request_errors_total",
		Help: "HTTP requests rejected before reaching a kernel",
	}, []string{"reason"})
)

// RecordOp observes one completed kernel invocation.
func RecordOp(op, dtype string, rows, rowLen int, duration time.Duration) {
	OpInvocations.WithLabelValues(op, dtype).Inc()
	OpDuration.WithLabelValues(op, dtype).Observe(duration.Seconds())
	OpRows.WithLabelValues(op, dtype).Add(float64(rows))
	OpElements.WithLabelValues(op, dtype).Add(float64(rows * rowLen))
	RowLength.Observe(float64(rowLen))
}

// RecordConformance tallies a finished suite run.
func RecordConformance(passed, failed int) {
	ConformanceCases.WithLabelValues("pass").Add(float64(passed))
	ConformanceCases.WithLabelValues("fail").Add(float64(failed))
}

// RecordRequestError counts a request rejected with the given reason.
func RecordRequestError(reason string) {
	RequestErrors.WithLabelValues(reason).Inc()
}
