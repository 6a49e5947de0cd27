package hxpage

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithBaseURL serves the application under a path prefix. URLs outside the
// base URL get no response.
func WithBaseURL(baseURL string) Option {
	return func(r *Renderer) {
		r.baseURL = baseURL
	}
}

// WithProduction disables developer warnings.
func WithProduction(production bool) Option {
	return func(r *Renderer) {
		r.production = production
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics registers the renderer's Prometheus collectors with reg.
// Without it no metrics are recorded.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Renderer) {
		r.metrics = newMetrics(reg)
	}
}

// WithTracerProvider sets the tracer provider used for render and hook
// spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Renderer) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClientRouting injects the serialized page context into buffered HTML
// documents so a client router can take over.
func WithClientRouting(enabled bool) Option {
	return func(r *Renderer) {
		r.clientRouting = enabled
	}
}
