// Package logging provides structured logging on top of log/slog.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Context-aware logging with run IDs, board and rule names
//   - A level that can be changed at runtime
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logger.Info("rules loaded", "count", 12, "path", "rules.yaml")
//
//	ctx = logging.WithRunID(ctx, run.ID)
//	logger.InfoContext(ctx, "check finished")  // includes run_id
//
// Components in this module take a *slog.Logger; pass logger.Slog().
package logging
