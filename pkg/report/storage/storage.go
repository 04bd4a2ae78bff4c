package storage

import (
	"fmt"
	"log/slog"

	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
)

// New creates the storage backend selected by cfg.Backend.
func New(cfg *config.ReportConfig, logger *slog.Logger) (report.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		return NewSQLiteStorage(&cfg.SQLite, logger)
	default:
		return nil, report.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown backend %q", cfg.Backend))
	}
}
