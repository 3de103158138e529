// Package observability provides structured logging setup and request
// metrics collection.
package observability

import (
	"log/slog"
	"os"
)

// SetupLogger installs the default slog handler for the given server mode.
// Dev and demo modes log debug at text level, prod logs info as JSON.
func SetupLogger(mode string) {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
