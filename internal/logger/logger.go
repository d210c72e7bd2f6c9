package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ContextKey is a type for context keys used by the logger
type ContextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey ContextKey = "request_id"
)

// LevelTrace sits below slog's built-in Debug level. The style table's
// log_level field distinguishes TRACE from DEBUG, which slog alone does not.
const LevelTrace slog.Level = slog.LevelDebug - 4

// LevelNone is a sentinel above Error: nothing is ever emitted at this level.
// It exists so a style entry's log_level of "NONE" can be parsed and compared
// like any other level rather than special-cased by callers.
const LevelNone slog.Level = slog.LevelError + 4

var defaultLogger *slog.Logger

// Init initializes the global logger with the specified log level
func Init(levelStr string) {
	level := parseLevel(levelStr)
	
	// Determine output format based on environment
	var handler slog.Handler

	// Use JSON format in production, text format in development
	if os.Getenv("ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevel,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: replaceLevel,
		})
	}
	
	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// replaceLevel labels LevelTrace records "TRACE" instead of slog's "DEBUG-4".
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// parseLevel converts a string log level to slog.Level
func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "none":
		return LevelNone
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel exposes parseLevel for callers resolving a style table's
// log_level field into a comparable slog.Level.
func ParseLevel(levelStr string) slog.Level {
	return parseLevel(levelStr)
}

// Get returns the default logger
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("info")
	}
	return defaultLogger
}

// WithRequestID returns a logger with the request ID from context
func WithRequestID(ctx context.Context) *slog.Logger {
	logger := Get()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	return logger
}

// WithComponent returns a logger with a component label
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// WithFields returns a logger with additional fields
func WithFields(fields map[string]interface{}) *slog.Logger {
	logger := Get()
	for k, v := range fields {
		logger = logger.With(k, v)
	}
	return logger
}

// Trace logs a trace message, the level below Debug.
func Trace(msg string, args ...any) {
	Get().Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Get().Error(msg, args...)
}

// DebugContext logs a debug message with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Debug(msg, args...)
}

// InfoContext logs an info message with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Warn(msg, args...)
}

// ErrorContext logs an error message with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Error(msg, args...)
}

// LogAt logs at a level named the way the style table names it
// (NONE|TRACE|DEBUG|INFO|WARN|ERROR). A NONE level is a deliberate no-op:
// callers use it to honor a style entry that asks for silence.
func LogAt(ctx context.Context, levelStr string, msg string, args ...any) {
	level := parseLevel(levelStr)
	if level == LevelNone {
		return
	}
	WithRequestID(ctx).Log(ctx, level, msg, args...)
}
