package rules

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ruleforge-hq/anvil/pkg/board"
)

// Source supplies rule sets.
type Source interface {
	Load(ctx context.Context) (*RuleSet, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*RuleSet, error)

// Load calls f(ctx).
func (f SourceFunc) Load(ctx context.Context) (*RuleSet, error) {
	return f(ctx)
}

// Loader keeps the current Checker for a board and replaces it when rules
// are reloaded. Readers never observe a partially loaded rule set.
type Loader struct {
	source Source
	board  *board.Board
	strict bool
	opts   []Option
	o      *options

	mu       sync.Mutex // serializes reloads
	current  atomic.Pointer[Checker]
	loadedAt atomic.Int64
}

// NewLoader creates a loader. In strict mode a rule set with compile
// errors is rejected and the previous checker stays active; otherwise the
// failing rules are dropped.
func NewLoader(source Source, b *board.Board, strict bool, opts ...Option) *Loader {
	return &Loader{
		source: source,
		board:  b,
		strict: strict,
		opts:   opts,
		o:      newOptions(opts),
	}
}

// Reload loads and compiles the rules and swaps in a new Checker. The
// returned CompiledSet carries the diagnostics even when the reload is
// rejected.
func (l *Loader) Reload(ctx context.Context) (*CompiledSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, err := l.source.Load(ctx)
	if err != nil {
		l.o.metrics.RecordRulesReload("error")
		return nil, err
	}

	cs, err := Compile(ctx, set, l.board, l.opts...)
	if err != nil && l.strict {
		l.o.metrics.RecordRulesReload("error")
		return cs, fmt.Errorf("rule set rejected: %w", err)
	}
	if len(cs.Rules) == 0 {
		l.o.metrics.RecordRulesReload("error")
		return cs, ErrNoRules
	}

	l.current.Store(NewChecker(cs, l.opts...))
	l.loadedAt.Store(time.Now().UnixNano())
	l.o.metrics.RecordRulesReload("success")

	l.o.logger.Info("rules loaded",
		"rules", len(cs.Rules),
		"failed", len(cs.Errors),
		"disabled", cs.Disabled,
	)
	return cs, nil
}

// Current returns the active Checker, or nil before the first successful
// load.
func (l *Loader) Current() *Checker {
	return l.current.Load()
}

// LoadedAt returns the time of the last successful load.
func (l *Loader) LoadedAt() time.Time {
	ns := l.loadedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Board returns the board the rules are compiled against.
func (l *Loader) Board() *board.Board {
	return l.board
}
