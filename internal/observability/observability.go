package observability

import (
	"net/http"
	"time"

	"identgate/internal/config"
	"identgate/internal/httputils"
	"identgate/internal/observability/logging"
	"identgate/internal/observability/metrics"

	"github.com/google/uuid"
)

// TraceHeader carries the trace id of a request in both directions
const TraceHeader = "X-Trace-ID"

// Provider provides observability capabilities
type Provider struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
}

// NewProvider creates a new observability provider
func NewProvider(cfg *config.Config) (*Provider, error) {
	logger, err := logging.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Logger:  logger,
		Metrics: metrics.NewCollector(),
	}, nil
}

// Middleware creates an HTTP middleware for request observation. A trace id
// sent by the caller is kept when it is a valid UUID. Request metrics are
// labeled with the route recorded through httputils.SetRoute, or
// httputils.UnmatchedRoute when none was.
func (p *Provider) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ctx := r.Context()
		traceID := logging.GetTraceIDFromContext(ctx)
		if traceID == "" {
			traceID = inboundTraceID(r)
		}
		ctx = logging.ContextWithTraceID(ctx, traceID)

		spanID := logging.NewSpanID()
		ctx = logging.ContextWithSpanID(ctx, spanID)

		logger := p.Logger.WithTracing(traceID, spanID)
		ctx = logging.ContextWithLogger(ctx, logger)

		wrapper := httputils.NewResponseWriter(w)
		wrapper.Header().Set(TraceHeader, traceID)

		logger.Debug("Request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		ctx, route := httputils.ContextWithRoute(ctx)

		r = r.WithContext(ctx)
		next.ServeHTTP(wrapper, r)

		duration := time.Since(startTime)
		p.Metrics.RecordRequest(r.Method, route(), wrapper.StatusCode, duration)

		logger.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"bytes_written", wrapper.BytesWritten,
		)
	})
}

func inboundTraceID(r *http.Request) string {
	if id, err := uuid.Parse(r.Header.Get(TraceHeader)); err == nil {
		return id.String()
	}
	return logging.NewTraceID()
}

// MetricsHandler returns an HTTP handler for exposing metrics
func (p *Provider) MetricsHandler() http.Handler {
	return metrics.Handler()
}
