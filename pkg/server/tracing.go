package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/keyed/pkg/keyed"
)

// tracing starts a server span for every request. The span is put into the
// request context, so reconciliation passes of a stream become its children.
//
// The tracer comes from Config.Tracer, which defaults to the global
// OpenTelemetry provider. Configure it before starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func (s *Server) tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.config.Tracer.Start(r.Context(), "keyed "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("keyed.request_id", middleware.GetReqID(r.Context())),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		// The route pattern is only known once chi has matched the request.
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				span.SetName(fmt.Sprintf("keyed %s %s", r.Method, pattern))
				span.SetAttributes(attribute.String("http.route", pattern))
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}

// recordDiff adds the diff counts to the span of the request.
func recordDiff(span trace.Span, stats keyed.Stats) {
	span.SetAttributes(
		attribute.Int("keyed.removed", stats.Removed),
		attribute.Int("keyed.added", stats.Added),
		attribute.Int("keyed.moved", stats.Moved),
		attribute.Int("keyed.passive", stats.Passive),
		attribute.Bool("keyed.clear", stats.Clear),
	)
}
