package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Statement outcome labels.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

var (
	// StatementsTotal counts graph statements by outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inheritance_graph_statements_total",
			Help: "Total number of graph statements executed",
		},
		[]string{"status"},
	)

	// StatementDuration measures round-trip time per statement.
	// Buckets cover sub-millisecond local hits up to slow remote stores.
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inheritance_graph_statement_duration_seconds",
			Help:    "Duration of graph statements in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	// IngestedNodes tracks the node totals reported by the last
	// ingestion run, labeled by node label.
	IngestedNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inheritance_ingested_nodes",
			Help: "Node count from the last ingestion run",
		},
		[]string{"label"},
	)

	// IngestFailures counts pipeline statements that were logged and
	// skipped, labeled by phase.
	IngestFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inheritance_ingest_failures_total",
			Help: "Total number of skipped ingestion statements",
		},
		[]string{"phase"},
	)
)

// ObserveStatement records one statement outcome and its duration.
func ObserveStatement(status string, d time.Duration) {
	StatementsTotal.WithLabelValues(status).Inc()
	StatementDuration.WithLabelValues(status).Observe(d.Seconds())
}
