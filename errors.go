package hxpage

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for pipeline operations.
var (
	ErrNoServerFile    = errors.New("hxpage: no .page.server file found")
	ErrNoRenderHook    = errors.New("hxpage: no render() hook found")
	ErrAlreadyConsumed = errors.New("hxpage: html stream already consumed")
)

// UsageError reports a developer mistake: a missing hook, a wrong export
// shape, an ambiguous override or an invalid call sequence. The message
// names the offending file or field.
type UsageError struct {
	Msg string
	Err error // optional sentinel
}

func (e *UsageError) Error() string {
	return "[hxpage][Wrong Usage] " + e.Msg
}

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports invalid renderer configuration detected while
// bootstrapping the global context.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("[hxpage][Config] %s: %s", e.Field, e.Msg)
}

// HookError wraps a failure raised by user hook code. Panics inside hooks
// are converted into a HookError as well.
type HookError struct {
	HookName     string
	HookFilePath string
	Err          error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("hook %s() exported by %s failed: %v", e.HookName, e.HookFilePath, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// StreamingError reports a failure that happened after part of the HTML
// stream was already written.
type StreamingError struct {
	RenderFilePath string
	Err            error
}

func (e *StreamingError) Error() string {
	return fmt.Sprintf("html stream of render() hook exported by %s failed: %v", e.RenderFilePath, e.Err)
}

func (e *StreamingError) Unwrap() error { return e.Err }

// bugError is raised by internal invariant checks.
type bugError struct {
	msg string
}

func (e *bugError) Error() string {
	return "[hxpage][Bug] " + e.msg + ". Please report this."
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(&bugError{msg: fmt.Sprintf(format, args...)})
	}
}

// panicError wraps a non-error value recovered from a panic.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func errorFromPanic(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &panicError{value: v}
}

// IsUsageError checks if err is, or wraps, a *UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsHookError checks if err is, or wraps, a *HookError.
func IsHookError(err error) bool {
	var he *HookError
	return errors.As(err, &he)
}

// IsStreamingError checks if err is, or wraps, a *StreamingError.
func IsStreamingError(err error) bool {
	var se *StreamingError
	return errors.As(err, &se)
}

// stringifyStringArray renders ["a", "b"] as "`a`, `b`".
func stringifyStringArray(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "`" + v + "`"
	}
	return strings.Join(quoted, ", ")
}

// IsConfigError checks if err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
