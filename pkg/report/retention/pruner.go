package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
)

// Pruner deletes runs older than the retention period.
type Pruner struct {
	storage report.Storage
	config  *config.RetentionConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewPruner creates a new retention pruner.
func NewPruner(storage report.Storage, cfg *config.RetentionConfig, logger *slog.Logger) *Pruner {
	if cfg == nil {
		cfg = &config.RetentionConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "report.retention"),
		now:     time.Now,
	}
}

// Cutoff returns the start time before which runs are pruned, and false
// when retention is unlimited.
func (p *Pruner) Cutoff() (time.Time, bool) {
	if p.config.Days <= 0 {
		return time.Time{}, false
	}
	return p.now().AddDate(0, 0, -p.config.Days), true
}

// Prune deletes runs older than the retention period and returns how many
// were deleted. With unlimited retention it does nothing.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff, ok := p.Cutoff()
	if !ok {
		p.logger.Debug("retention unlimited, nothing to prune")
		return 0, nil
	}

	deleted, err := p.storage.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs older than %d days: %w", p.config.Days, err)
	}

	if deleted > 0 {
		p.logger.Info("pruned runs",
			"deleted_count", deleted,
			"retention_days", p.config.Days,
		)
	} else {
		p.logger.Debug("no runs pruned", "retention_days", p.config.Days)
	}
	return deleted, nil
}
