package observability

import (
	"net/http"

	servertiming "github.com/mitchellh/go-server-timing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/ekaya-inc/aihub/pkg/config"
)

// HTTPMiddleware instruments requests with otelhttp spans when tracing is enabled.
func HTTPMiddleware(cfg *config.ObservabilityConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.TracingEnabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, cfg.ServiceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		)
	}
}

// ServerTimingMiddleware adds the Server-Timing header when enabled.
func ServerTimingMiddleware(cfg *config.ObservabilityConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.ServerTiming {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return servertiming.Middleware(next, nil)
	}
}
