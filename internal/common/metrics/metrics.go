// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns processed, by query type",
		},
		[]string{"query_type"},
	)

	ChatTurnsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_failed_total",
			Help: "Total number of failed chat turns, by error code",
		},
		[]string{"error_code"},
	)

	ClassificationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_classification_total",
			Help: "Intent classifications, by category and path (remote or heuristic)",
		},
		[]string{"category", "path"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_query_duration_seconds",
			Help: "Duration of generated-SQL execution against the warehouse",
		},
		[]string{"status"},
	)

	QueryRowsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_query_rows_returned",
			Help:    "Row counts of successful generated-SQL executions",
			Buckets: prometheus.ExponentialBuckets(1, 10, 6),
		},
	)

	SchemaCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_cache_hits_total",
			Help: "Schema discoveries served from the redis cache",
		},
	)

	SchemaCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_cache_misses_total",
			Help: "Schema discoveries that fell through to live introspection",
		},
	)
)
