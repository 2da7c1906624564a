package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration tracks HTTP handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitflow_http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// DBQueryDuration tracks database query latency per operation.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitflow_db_query_duration_seconds",
			Help:    "Database query latency by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// SlowQueriesTotal counts queries slower than the slow query threshold.
	SlowQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recruitflow_db_slow_queries_total",
			Help: "Number of database queries exceeding the slow query threshold.",
		},
	)

	// ReviewsTotal counts review decisions by outcome.
	ReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_reviews_total",
			Help: "Number of milestone reviews by decision.",
		},
		[]string{"decision"},
	)

	// CascadedRowsTotal counts progress rows closed by rejection cascades.
	CascadedRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recruitflow_cascaded_rows_total",
			Help: "Number of progress rows auto-rejected by a cascade.",
		},
	)

	// ProgressRowsCreated counts progress rows created by the initializer.
	ProgressRowsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_progress_rows_created_total",
			Help: "Number of progress rows created, by source.",
		},
		[]string{"source"},
	)

	// NotificationsTotal counts notification deliveries by event and status.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_notifications_total",
			Help: "Number of notification deliveries by event and status.",
		},
		[]string{"event", "status"},
	)

	// MQConsumeLatency tracks message handling latency per queue.
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitflow_mq_consume_duration_seconds",
			Help:    "Message handling latency by queue.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)

	// OutboxDispatchTotal counts outbox dispatch attempts by result.
	OutboxDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_outbox_dispatch_total",
			Help: "Number of outbox dispatch attempts by result.",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest records one HTTP request observation.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordDBQuery records one database query observation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery counts one slow query.
func IncrementSlowQuery() {
	SlowQueriesTotal.Inc()
}

// IncrementReview counts one review decision.
func IncrementReview(decision string) {
	ReviewsTotal.WithLabelValues(decision).Inc()
}

// AddCascadedRows counts rows closed by one rejection cascade.
func AddCascadedRows(n int64) {
	CascadedRowsTotal.Add(float64(n))
}

// AddProgressRowsCreated counts rows created by the initializer.
func AddProgressRowsCreated(source string, n int64) {
	ProgressRowsCreated.WithLabelValues(source).Add(float64(n))
}

// IncrementNotification counts one notification delivery attempt.
func IncrementNotification(event, status string) {
	NotificationsTotal.WithLabelValues(event, status).Inc()
}

// RecordMQConsume records one message handling observation.
func RecordMQConsume(queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(queue).Observe(duration.Seconds())
}

// IncrementOutboxDispatch counts one outbox dispatch attempt.
func IncrementOutboxDispatch(result string) {
	OutboxDispatchTotal.WithLabelValues(result).Inc()
}
