package source

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is the pull interval used when none is configured.
const DefaultPollInterval = 30 * time.Second

// GitWatcher polls a GitSource and calls a reload function when a pull
// brings in changed rule files. Commits that touch no rule file are
// pulled without a reload.
type GitWatcher struct {
	src      *GitSource
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewGitWatcher creates a watcher polling src every interval.
func NewGitWatcher(src *GitSource, interval time.Duration, logger *slog.Logger) *GitWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &GitWatcher{
		src:      src,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Watch blocks until ctx is cancelled or Stop is called. Pull failures are
// logged and retried on the next tick.
func (gw *GitWatcher) Watch(ctx context.Context, onReload func(context.Context) error) error {
	gw.mu.Lock()
	if gw.running {
		gw.mu.Unlock()
		return ErrWatcherRunning
	}
	gw.running = true
	gw.mu.Unlock()

	defer close(gw.doneCh)

	gw.logger.Info("git rule watcher started", "poll_interval", gw.interval)

	ticker := time.NewTicker(gw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gw.stopCh:
			return nil
		case <-ticker.C:
			if _, err := gw.Poll(ctx, onReload); err != nil {
				gw.logger.Error("rule repository poll failed", "error", err)
			}
		}
	}
}

// Poll pulls once and reloads when rule files changed. It reports whether
// onReload was called; a failed reload is logged, not returned.
func (gw *GitWatcher) Poll(ctx context.Context, onReload func(context.Context) error) (bool, error) {
	res, err := gw.src.Pull(ctx)
	if err != nil {
		return false, err
	}
	if !res.HadChanges() {
		return false, nil
	}

	if !gw.src.RuleFilesChanged(res.ChangedFiles) {
		gw.logger.Debug("no rule files changed, skipping reload",
			"to_sha", shortSHA(res.ToSHA),
			"changed_files", len(res.ChangedFiles),
		)
		return false, nil
	}

	gw.logger.Info("reloading rules",
		"from_sha", shortSHA(res.FromSHA),
		"to_sha", shortSHA(res.ToSHA),
		"changed_files", len(res.ChangedFiles),
	)
	if err := onReload(ctx); err != nil {
		gw.logger.Error("rule reload failed, previous rules stay active",
			"sha", shortSHA(res.ToSHA),
			"error", err,
		)
	}
	return true, nil
}

// Stop stops a running watcher.
func (gw *GitWatcher) Stop() error {
	gw.mu.Lock()
	running := gw.running
	gw.running = false
	gw.mu.Unlock()

	if running {
		close(gw.stopCh)
		<-gw.doneCh
	}
	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
