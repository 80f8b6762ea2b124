// Package logging provides structured logging for labctl.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level filter and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stderr"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("devices synchronised", "count", 12)
//	logger.Error("registration failed", "error", err)
//
// Never log the LAVA token or any URL that embeds it.
package logging
