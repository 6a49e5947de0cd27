package hxpage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

type requestIDKey struct{}

// ContextWithRequestID returns a copy of ctx carrying the render's request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by RenderPage, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// requestLog logs on behalf of one render. An error is logged at most once,
// however many stages report it.
type requestLog struct {
	r      *Renderer
	logger *slog.Logger

	mu     sync.Mutex
	logged []error
}

func (r *Renderer) newRequestLog(requestID, url string) *requestLog {
	return &requestLog{
		r:      r,
		logger: r.logger.With("request_id", requestID, "url", url),
	}
}

func (l *requestLog) alreadyLogged(err error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, prev := range l.logged {
		if errors.Is(err, prev) || errors.Is(prev, err) {
			return true
		}
	}
	l.logged = append(l.logged, err)
	return false
}

func (l *requestLog) logError(ctx context.Context, err error) {
	if err == nil || l.alreadyLogged(err) {
		return
	}
	attrs := []any{"error", err, "kind", errorKind(err)}
	var he *HookError
	if errors.As(err, &he) {
		attrs = append(attrs, "hook", he.HookName, "hook_file", he.HookFilePath)
	}
	l.logger.ErrorContext(ctx, "render failed", attrs...)
	l.r.metrics.observeError(err)
	l.reportError(ctx, err)
}

// reportError calls OnError. A panicking callback is logged and swallowed.
func (l *requestLog) reportError(ctx context.Context, err error) {
	if l.r.OnError == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			l.logger.WarnContext(ctx, "OnError panicked", "error", errorFromPanic(v))
		}
	}()
	l.r.OnError(ctx, err)
}

// warn logs a developer warning. Warnings are not shown in production.
func (l *requestLog) warn(ctx context.Context, msg string, args ...any) {
	if l.r.production {
		return
	}
	l.logger.WarnContext(ctx, msg, args...)
}

func (l *requestLog) warnMissingErrorPage(ctx context.Context) {
	l.warn(ctx, "no error page found", "hint", "create an _error.page.go file (or _error.page.server.go) to show 404 and 500 pages")
}

func (l *requestLog) warn404(ctx context.Context, urlPathname string, routes []PageRoute) {
	if l.r.production || isFileRequest(urlPathname) {
		return
	}
	lines := describeRoutes(routes)
	l.warn(ctx, fmt.Sprintf("URL %s is not matching any of your %d page routes (this warning is not shown in production):\n%s",
		quote(urlPathname), len(routes), strings.Join(lines, "\n")))
}
