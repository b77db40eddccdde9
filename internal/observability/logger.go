package observability

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/weather-hazard-monitor/internal/config"
	"github.com/lmittmann/tint"
)

// NewLogger builds the process logger from config. JSON output by default;
// LOG_FORMAT=text switches to a tinted console handler for local runs.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
