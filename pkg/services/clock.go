package services

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ekaya-inc/aihub/pkg/models"
	"github.com/ekaya-inc/aihub/pkg/observability"
)

// Clock returns the current time. Services take one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// today returns the UTC calendar date in models.DateLayout.
func (c Clock) today() string {
	return c().UTC().Format(models.DateLayout)
}

var tracer = observability.NewTracer(nil)

func endSpan(span trace.Span, err error) {
	observability.EndSpan(span, err)
}
