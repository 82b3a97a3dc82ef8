package logging

import (
	"context"
	"log/slog"
	"os"

	"reddit-watch/internal/handler/http/requestid"
)

// NewLogger returns a JSON logger writing to stdout. Setting LOG_LEVEL=debug
// lowers the level; anything else (including unset) means info. Source
// locations are attached for warn and error records.
func NewLogger() *slog.Logger {
	level := levelFromEnv()
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelWarn,
	})
	return slog.New(handler)
}

// NewTextLogger is the human-readable variant of NewLogger, meant for local
// runs where JSON lines are a nuisance.
func NewTextLogger() *slog.Logger {
	level := levelFromEnv()
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelWarn,
	})
	return slog.New(handler)
}

func levelFromEnv() slog.Level {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// WithRequestID enriches logger with the request ID carried by ctx, if any,
// so entries from one request can be correlated.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	reqID := requestid.FromContext(ctx)
	if reqID == "" {
		return logger
	}
	return logger.With("request_id", reqID)
}

// FromContext returns the logger stored in ctx, or slog.Default when none
// was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger attaches logger to the context for retrieval via FromContext.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const loggerContextKey contextKey = "logger"
