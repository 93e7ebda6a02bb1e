// Package logger is the logging surface of the HTTP client. ZeroLogger
// masks credentials before they reach zerolog and, through NewWithOTel,
// exports the same lines as OpenTelemetry log records.
package logger

import "time"

// Logger is what httpclient needs from a logger: one event builder per
// level plus child loggers. Callers may plug in their own implementation.
type Logger interface {
	Info() LogEvent
	Error() LogEvent
	Debug() LogEvent
	Warn() LogEvent
	WithContext(ctx any) Logger
	WithFields(fields map[string]any) Logger
}

// LogEvent accumulates fields for one line. Nothing is written until Msg
// or Msgf; string fields pass through the sensitive-data filter first.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
	Bytes(key string, val []byte) LogEvent
}
