package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Sentry is the sentry section of hxpage.yaml.
type Sentry struct {
	DSN         string
	Environment string
	// ErrorsOnly stops warnings from being sent as Sentry logs.
	ErrorsOnly bool
}

// NewWithSentry is New plus a Sentry sink. Errors become Sentry issues and
// warnings Sentry logs. Without a DSN, or when Sentry fails to start, it
// returns the stdout logger alone.
func NewWithSentry(opts Options, cfg Sentry, extractors ...Extractor) *slog.Logger {
	stdout := opts.handler()
	if cfg.DSN == "" {
		return slog.New(withExtractors(stdout, extractors))
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	})
	if err != nil {
		slog.New(stdout).Error("sentry disabled", "error", err)
		return slog.New(withExtractors(stdout, extractors))
	}

	levels := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.ErrorsOnly {
		levels = levels[1:]
	}
	sink := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   levels,
	}.NewSentryHandler(context.Background())

	return slog.New(withExtractors(tee{stdout, sink}, extractors))
}

// Flush sends buffered Sentry events before the process exits.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// tee writes every record to both the stdout handler and the Sentry sink.
type tee struct {
	stdout, sink slog.Handler
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	return t.stdout.Enabled(ctx, level) || t.sink.Enabled(ctx, level)
}

func (t tee) Handle(ctx context.Context, rec slog.Record) error {
	var errs [2]error
	if t.stdout.Enabled(ctx, rec.Level) {
		errs[0] = t.stdout.Handle(ctx, rec.Clone())
	}
	if t.sink.Enabled(ctx, rec.Level) {
		errs[1] = t.sink.Handle(ctx, rec)
	}
	return errors.Join(errs[:]...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tee{t.stdout.WithAttrs(attrs), t.sink.WithAttrs(attrs)}
}

func (t tee) WithGroup(name string) slog.Handler {
	return tee{t.stdout.WithGroup(name), t.sink.WithGroup(name)}
}
