package telemetry

import (
	"context"
	"io"
	"log/slog"

	"github.com/mrops-br/catalog-manager/internal/infrastructure/config"
	"go.opentelemetry.io/otel/trace"
)

type routeKey struct{}

// WithHTTPRoute records the matched route so request-scoped logs carry it.
func WithHTTPRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// HTTPRouteFromContext returns the route stored by WithHTTPRoute, or "".
func HTTPRouteFromContext(ctx context.Context) string {
	route, _ := ctx.Value(routeKey{}).(string)
	return route
}

// contextHandler decorates records with the span and route found in the
// logging context.
type contextHandler struct {
	next slog.Handler
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	return h.next.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name)}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	if route := HTTPRouteFromContext(ctx); route != "" {
		attrs = append(attrs, slog.String("http.route", route))
	}
	return attrs
}

// initLogger builds the service logger: JSON to w, trace-aware, tagged with
// the service name and environment.
func initLogger(cfg *config.OTLPConfig, w io.Writer) *slog.Logger {
	json := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)})

	return slog.New(contextHandler{next: json}).With(
		slog.String("service.name", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
}

// parseLevel falls back to debug for unknown names.
func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelDebug
	}
	return level
}
