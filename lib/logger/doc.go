// Package logger builds the slog loggers used by hxpage commands.
//
// Records go to stdout as JSON or text. With a Sentry DSN, warnings and
// errors are also sent to Sentry. Attributes read from the context are
// added to every record:
//
//	log := logger.New(logger.Options{Level: slog.LevelDebug},
//		logger.FromContext("request_id", hxpage.RequestIDFromContext),
//	)
package logger
