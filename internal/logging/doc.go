// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Keeps the most recent entries in a ring buffer served by the API
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"capture": "debug",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Streaming started", "device", "/dev/video0")
//
// Library packages under pkg/ accept a *slog.Logger, so a module logger can be
// passed straight to capture.Builder.Logger.
//
// # Viewing Logs
//
//	journalctl -t v4lcap -f
//	journalctl -t v4lcap MODULE=capture DEVICE=/dev/video0
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//	capture = "debug"
//	api = "warn"
package logging
