package hxpage

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/pthm/hxpage"

func (r *Renderer) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// callHook runs user code under a span. Returned errors and panics come
// back as a *HookError.
func (r *Renderer) callHook(ctx context.Context, hookName, hookFilePath string, fn func(ctx context.Context) error) (err error) {
	ctx, span := r.startSpan(ctx, "hxpage.hook."+hookName,
		attribute.String("hxpage.hook", hookName),
		attribute.String("hxpage.hook_file", hookFilePath),
	)
	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			err = errorFromPanic(v)
		}
		if err != nil {
			err = &HookError{HookName: hookName, HookFilePath: hookFilePath, Err: err}
		}
		r.metrics.observeHook(hookName, time.Since(start))
		endSpan(span, err)
	}()
	return fn(ctx)
}
