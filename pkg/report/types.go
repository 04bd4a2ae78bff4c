package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ruleforge-hq/anvil/pkg/rules"
)

// Run statuses.
const (
	StatusClean      = "clean"
	StatusViolations = "violations"
	StatusError      = "error"
)

// Run is the stored record of one check run.
type Run struct {
	ID          string        `json:"id"` // UUID v4
	Board       string        `json:"board"`
	RuleFile    string        `json:"rule_file"`
	RulesHash   string        `json:"rules_hash"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Items       int           `json:"items"`
	Rules       int           `json:"rules"`
	Evaluations int           `json:"evaluations"`
	Faults      int           `json:"faults"`
	Violations  []Violation   `json:"violations"`
}

// Violation is a stored rule violation.
type Violation struct {
	ID       string `json:"id"`
	RunID    string `json:"run_id"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	ItemA    string `json:"item_a"`
	ItemB    string `json:"item_b,omitempty"`
	Message  string `json:"message"`
	Fault    string `json:"fault,omitempty"`
}

// NewRunID returns a new random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// FromResult builds a Run from a check result. An empty runID gets a
// fresh one; runErr marks the run as failed.
func FromResult(runID, ruleFile string, startedAt time.Time, res *rules.Result, runErr error) *Run {
	if runID == "" {
		runID = NewRunID()
	}
	run := &Run{
		ID:          runID,
		Board:       res.Board,
		RuleFile:    ruleFile,
		Status:      res.Status(),
		StartedAt:   startedAt.UTC(),
		Duration:    res.Duration,
		Items:       res.Items,
		Rules:       res.Rules,
		Evaluations: res.Evaluations,
		Faults:      res.Faults,
		Violations:  make([]Violation, 0, len(res.Violations)),
	}
	if runErr != nil {
		run.Status = StatusError
	}

	for _, v := range res.Violations {
		run.Violations = append(run.Violations, Violation{
			ID:       uuid.NewString(),
			RunID:    runID,
			Rule:     v.Rule,
			Severity: string(v.Severity),
			ItemA:    v.ItemA,
			ItemB:    v.ItemB,
			Message:  v.Message,
			Fault:    v.Fault,
		})
	}
	return run
}

// Query defines filter parameters for querying runs. Results are ordered
// newest first.
type Query struct {
	// Time range
	Since *time.Time `json:"since,omitempty"` // Inclusive
	Until *time.Time `json:"until,omitempty"` // Inclusive

	// Filters
	Board  string `json:"board,omitempty"`
	Status string `json:"status,omitempty"` // "clean", "violations", "error"
	Rule   string `json:"rule,omitempty"`   // runs with a violation of this rule

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Matches reports whether run satisfies the filters of q, ignoring
// pagination.
func (q *Query) Matches(run *Run) bool {
	if q.Since != nil && run.StartedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && run.StartedAt.After(*q.Until) {
		return false
	}
	if q.Board != "" && run.Board != q.Board {
		return false
	}
	if q.Status != "" && run.Status != q.Status {
		return false
	}
	if q.Rule != "" {
		for _, v := range run.Violations {
			if v.Rule == q.Rule {
				return true
			}
		}
		return false
	}
	return true
}

// Storage defines the interface for run history backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a run together with its violations.
	Store(ctx context.Context, run *Run) error

	// Get returns the run with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// Query returns the runs matching q, newest first. Returns an empty
	// slice if no runs match.
	Query(ctx context.Context, q *Query) ([]*Run, error)

	// Count returns the number of runs matching q, ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// Prune deletes runs started before the given time and returns the
	// number of runs deleted.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}
