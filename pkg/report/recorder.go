package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"ruleforge-hq/anvil/pkg/rules"
)

// ErrRecorderClosed is returned by Record after Close.
var ErrRecorderClosed = errors.New("recorder closed")

// RecorderConfig contains configuration for the run recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 64
	AsyncBuffer int

	// WriteTimeout is the timeout for writing one run to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		AsyncBuffer:  64,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes runs to storage from a background goroutine so that
// checks never wait on the database.
type Recorder struct {
	storage Storage
	config  *RecorderConfig
	runs    chan *Run
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(storage Storage, config *RecorderConfig, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		runs:    make(chan *Run, config.AsyncBuffer),
		logger:  logger.With("component", "report.recorder"),
	}

	r.wg.Add(1)
	go r.worker()
	return r
}

// Record enqueues run for writing. It blocks only while the buffer is
// full, or until ctx is done.
func (r *Recorder) Record(ctx context.Context, run *Run) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRecorderClosed
	}

	select {
	case r.runs <- run:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending runs and waits for them to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.runs)
	r.mu.Unlock()

	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for run := range r.runs {
		r.write(run)
	}
}

func (r *Recorder) write(run *Run) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, run); err != nil {
		r.logger.Error("failed to store run",
			"run_id", run.ID,
			"error", err,
		)
		return
	}
	duration := time.Since(start)

	r.logger.Debug("run recorded",
		"run_id", run.ID,
		"status", run.Status,
		"violations", len(run.Violations),
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow run write",
			"run_id", run.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// HashRules returns a SHA-256 over the YAML form of rs, identifying the
// rule set a run was checked against.
func HashRules(rs []*rules.Rule) string {
	if len(rs) == 0 {
		return ""
	}
	data, err := yaml.Marshal(rs)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
