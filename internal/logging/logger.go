package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithSession returns a logger with analytics session fields attached.
// Use this for all logging while composing a response for one session.
func WithSession(sessionID, persona string) *slog.Logger {
	return slog.With(
		"session_id", sessionID,
		"persona", persona,
	)
}

// WithSnapshot returns a logger scoped to one snapshot fetch within a session.
func WithSnapshot(logger *slog.Logger, snapshot string) *slog.Logger {
	return logger.With("snapshot", snapshot)
}
