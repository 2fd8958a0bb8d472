package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production runs at info with JSON
// output when LOG_FORMAT=json; everything else gets debug-level text so local
// gate and websocket traces stay readable.
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}

	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("service", "flutterbye"))
}
