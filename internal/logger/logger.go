package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ContextKey is the type used for context values the logger understands.
type ContextKey string

// RequestIDKey carries the per-request correlation ID through context.
const RequestIDKey ContextKey = "request_id"

var defaultLogger *slog.Logger

// Init configures the process-wide logger. Production environments
// (ENV=production or LOG_FORMAT=json) get JSON output for ingestion;
// everything else gets human-readable text.
func Init(levelStr string) {
	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}

	var handler slog.Handler
	if os.Getenv("ENV") == "production" || os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}

// Get returns the shared logger, initializing it at info level on first use.
func Get() *slog.Logger {
	if defaultLogger == nil {
		Init("info")
	}
	return defaultLogger
}

// WithRequestID returns a logger annotated with the request ID from ctx,
// or the plain logger when the context carries none.
func WithRequestID(ctx context.Context) *slog.Logger {
	l := Get()
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		l = l.With("request_id", id)
	}
	return l
}

// WithComponent returns a logger annotated with a component label.
// Long-lived subsystems (cache, scheduler, hub) hold one of these.
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

// DebugContext logs at debug level with the request ID from ctx attached.
func DebugContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Debug(msg, args...)
}

// InfoContext logs at info level with the request ID from ctx attached.
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Info(msg, args...)
}

// WarnContext logs at warn level with the request ID from ctx attached.
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Warn(msg, args...)
}

// ErrorContext logs at error level with the request ID from ctx attached.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Error(msg, args...)
}
