package logger

import (
	"context"
	"log/slog"
)

// Extractor reads one attribute from a context.
type Extractor func(ctx context.Context) (slog.Attr, bool)

// FromContext adds key to records whose context yields a non-empty value
// from get, such as hxpage.RequestIDFromContext.
func FromContext(key string, get func(ctx context.Context) (string, bool)) Extractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := get(ctx); ok && v != "" {
			return slog.String(key, v), true
		}
		return slog.Attr{}, false
	}
}

// extractHandler runs its extractors on every record before passing it on.
type extractHandler struct {
	slog.Handler
	extractors []Extractor
}

func withExtractors(h slog.Handler, extractors []Extractor) slog.Handler {
	var kept []Extractor
	for _, e := range extractors {
		if e != nil {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		return h
	}
	return &extractHandler{Handler: h, extractors: kept}
}

func (h *extractHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, e := range h.extractors {
		if a, ok := e(ctx); ok {
			rec.AddAttrs(a)
		}
	}
	return h.Handler.Handle(ctx, rec)
}

func (h *extractHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &extractHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *extractHandler) WithGroup(name string) slog.Handler {
	return &extractHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
