package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures the stdout handler.
type Options struct {
	// Format is "json" (default) or "text".
	Format string
	Level  slog.Level
	// Output defaults to os.Stdout.
	Output io.Writer
}

func (o Options) handler() slog.Handler {
	out := o.Output
	if out == nil {
		out = os.Stdout
	}
	ho := &slog.HandlerOptions{Level: o.Level}
	if o.Format == "text" {
		return slog.NewTextHandler(out, ho)
	}
	return slog.NewJSONHandler(out, ho)
}

// New returns a stdout logger adding the attributes found by extractors.
func New(opts Options, extractors ...Extractor) *slog.Logger {
	return slog.New(withExtractors(opts.handler(), extractors))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel parses the log.level setting of hxpage.yaml.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
}
