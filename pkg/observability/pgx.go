package observability

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type queryStateKey struct{}

type queryState struct {
	span   trace.Span
	timing *ServerTimingMetric
}

// QueryTracer reports every pgx query as a "db" Server-Timing metric and, when
// tracing is enabled, as a child span of the request.
type QueryTracer struct {
	tracer *Tracer
}

// NewQueryTracer returns a pgx.QueryTracer. A nil tracer only records timing.
func NewQueryTracer(tracer *Tracer) *QueryTracer {
	return &QueryTracer{tracer: tracer}
}

func (q *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	state := &queryState{timing: StartServerTiming(ctx, "db")}
	if q.tracer != nil {
		ctx, state.span = q.tracer.StartDBQuery(ctx, data.SQL)
	}
	return context.WithValue(ctx, queryStateKey{}, state)
}

func (q *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	state, ok := ctx.Value(queryStateKey{}).(*queryState)
	if !ok {
		return
	}
	state.timing.Stop()
	if state.span != nil {
		EndSpan(state.span, data.Err)
	}
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)
