package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger and installs it as the slog
// default. Deployments set LOG_FORMAT=json for the log pipeline; any
// other value keeps the text handler for local readability.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
