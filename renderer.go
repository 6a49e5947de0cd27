package hxpage

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Renderer renders pages listed by a Manifest. It is safe for concurrent
// use; the global context is computed once, by the first request.
type Renderer struct {
	manifest      Manifest
	baseURL       string
	production    bool
	clientRouting bool
	logger        *slog.Logger
	metrics       *metrics
	tracer        trace.Tracer

	globalOnce sync.Once
	global     *GlobalContext
	globalErr  error

	// OnError is called for every error RenderPage logs, after logging.
	// Use it to forward errors to an error tracker.
	OnError func(ctx context.Context, err error)
}

// New creates a renderer for the pages of manifest.
func New(manifest Manifest, opts ...Option) *Renderer {
	if manifest == nil {
		panic("hxpage: manifest is nil")
	}
	r := &Renderer{
		manifest: manifest,
		baseURL:  "/",
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Logger returns the renderer's logger.
func (r *Renderer) Logger() *slog.Logger {
	return r.logger
}

// Production reports whether developer warnings are disabled.
func (r *Renderer) Production() bool {
	return r.production
}
