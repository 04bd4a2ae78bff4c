package report

import "fmt"

const (
	// DefaultLimit is the number of runs returned when a query sets none.
	DefaultLimit = 20

	// MaxLimit is the largest page a query may request.
	MaxLimit = 1000
)

var validStatuses = map[string]bool{
	StatusClean:      true,
	StatusViolations: true,
	StatusError:      true,
}

// Validate checks q against maxLimit. A maxLimit of 0 uses MaxLimit.
func Validate(q *Query, maxLimit int) error {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > maxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", maxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.Since != nil && q.Until != nil && q.Since.After(*q.Until) {
		return NewQueryError(q, fmt.Errorf("since must be before until"))
	}
	if q.Status != "" && !validStatuses[q.Status] {
		return NewQueryError(q, fmt.Errorf("invalid status: %s (must be 'clean', 'violations', or 'error')", q.Status))
	}
	return nil
}

// ApplyDefaults sets the limit of q when unset. A defaultLimit of 0 uses
// DefaultLimit.
func ApplyDefaults(q *Query, defaultLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
}
