package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/metrics"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Togather-Foundation/eventdesk/internal/storage/postgres"

type queryStartKey struct{}

type queryStart struct {
	at        time.Time
	operation string
}

// queryTracer records a duration metric and a client span for every query.
// It is installed as the pool's pgx.QueryTracer.
type queryTracer struct {
	tracer trace.Tracer
}

func newQueryTracer() *queryTracer {
	return &queryTracer{tracer: otel.Tracer(tracerName)}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	operation := statementKind(data.SQL)
	ctx, _ = t.tracer.Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
		),
	)
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), operation: operation})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	}
	span.End()

	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	err := data.Err
	if err == pgx.ErrNoRows {
		err = nil
	}
	metrics.RecordQuery(start.operation, start.at, err)
}

// statementKind returns the lower-cased leading SQL keyword.
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch kind := strings.ToLower(fields[0]); kind {
	case "select", "insert", "update", "delete", "with", "begin", "commit", "rollback", "truncate":
		return kind
	default:
		return "other"
	}
}
