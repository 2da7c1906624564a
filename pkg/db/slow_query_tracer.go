package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"recruitflow/pkg/metrics"
)

// SlowQueryThreshold marks queries to be logged and counted as slow.
const SlowQueryThreshold = 200 * time.Millisecond

type queryTraceKey struct{}

type queryTrace struct {
	sql     string
	startAt time.Time
}

// SlowQueryTracer implements pgx.QueryTracer and reports queries exceeding
// SlowQueryThreshold.
type SlowQueryTracer struct {
	logger *zap.Logger
}

// NewSlowQueryTracer builds a tracer logging through the given logger.
func NewSlowQueryTracer(logger *zap.Logger) *SlowQueryTracer {
	return &SlowQueryTracer{logger: logger}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryTraceKey{}, queryTrace{
		sql:     data.SQL,
		startAt: time.Now(),
	})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qt, ok := ctx.Value(queryTraceKey{}).(queryTrace)
	if !ok {
		return
	}

	elapsed := time.Since(qt.startAt)
	if elapsed < SlowQueryThreshold {
		return
	}

	metrics.IncrementSlowQuery()
	t.logger.Warn("slow query",
		zap.String("sql", qt.sql),
		zap.Duration("elapsed", elapsed),
		zap.Error(data.Err),
	)
}
