package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production emits JSON with
// source locations; everything else gets readable text output.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
