package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"ruleforge-hq/anvil/pkg/config"
	"ruleforge-hq/anvil/pkg/report"
)

// Supported database/sql driver names.
const (
	DriverCGo    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

const backendSQLite = "sqlite"

const runColumns = "id, board, rule_file, rules_hash, status, started_at, duration, items, rules, evaluations, faults"

// SQLiteStorage implements report.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database at cfg.Path with the configured
// driver, creating the parent directory and schema when missing.
func NewSQLiteStorage(cfg *config.SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg == nil {
		return nil, report.NewStorageError(backendSQLite, "open", errors.New("nil config"))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "report.storage.sqlite")

	driver := cfg.Driver
	if driver == "" {
		driver = DriverCGo
	}
	if driver != DriverCGo && driver != DriverPureGo {
		return nil, report.NewStorageError(backendSQLite, "open", fmt.Errorf("unsupported driver %q", driver))
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, report.NewStorageError(backendSQLite, "mkdir", err)
		}
	}

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, report.NewStorageError(backendSQLite, "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", driver,
		"wal_mode", cfg.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return report.NewStorageError(backendSQLite, "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		stmt := fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())
		if _, err := s.db.Exec(stmt); err != nil {
			return report.NewStorageError(backendSQLite, "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return report.NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return report.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return report.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return report.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists run and its violations in one transaction.
func (s *SQLiteStorage) Store(ctx context.Context, run *report.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return report.NewStorageError(backendSQLite, "store", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Board, run.RuleFile, run.RulesHash, run.Status,
		run.StartedAt.UnixNano(), int64(run.Duration),
		run.Items, run.Rules, run.Evaluations, run.Faults,
	)
	if err != nil {
		return report.NewStorageError(backendSQLite, "store", err)
	}

	for i, v := range run.Violations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO violations (id, run_id, seq, rule, severity, item_a, item_b, message, fault)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, run.ID, i, v.Rule, v.Severity, v.ItemA, v.ItemB, v.Message, v.Fault,
		)
		if err != nil {
			return report.NewStorageError(backendSQLite, "store_violation", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return report.NewStorageError(backendSQLite, "commit", err)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*report.Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, report.NewStorageError(backendSQLite, "get", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, report.ErrNotFound
	}
	if err := s.loadViolations(ctx, runs[0]); err != nil {
		return nil, err
	}
	return runs[0], nil
}

// Query returns the runs matching q, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *report.Query) ([]*report.Run, error) {
	if err := report.Validate(q, 0); err != nil {
		return nil, err
	}

	where, args := buildWhereClause(q)
	sqlQuery := "SELECT " + runColumns + " FROM runs" + where + " ORDER BY started_at DESC, id ASC"

	limit := q.Limit
	if limit == 0 {
		limit = -1
	}
	sqlQuery += " LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, report.NewStorageError(backendSQLite, "query", err)
	}
	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := s.loadViolations(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Count returns the number of runs matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *report.Query) (int64, error) {
	where, args := buildWhereClause(q)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs"+where, args...).Scan(&count); err != nil {
		return 0, report.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Prune deletes runs started before the given time together with their
// violations.
func (s *SQLiteStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, report.NewStorageError(backendSQLite, "prune", err)
	}
	defer func() { _ = tx.Rollback() }()

	cutoff := before.UnixNano()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM violations WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", cutoff); err != nil {
		return 0, report.NewStorageError(backendSQLite, "prune", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, report.NewStorageError(backendSQLite, "prune", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, report.NewStorageError(backendSQLite, "prune", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, report.NewStorageError(backendSQLite, "commit", err)
	}
	return deleted, nil
}

// Close releases the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return report.NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Debug("SQLite storage closed")
	return nil
}

func (s *SQLiteStorage) loadViolations(ctx context.Context, run *report.Run) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule, severity, item_a, item_b, message, fault
		FROM violations WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return report.NewStorageError(backendSQLite, "query_violations", err)
	}
	defer rows.Close()

	run.Violations = []report.Violation{}
	for rows.Next() {
		v := report.Violation{RunID: run.ID}
		if err := rows.Scan(&v.ID, &v.Rule, &v.Severity, &v.ItemA, &v.ItemB, &v.Message, &v.Fault); err != nil {
			return report.NewStorageError(backendSQLite, "scan_violation", err)
		}
		run.Violations = append(run.Violations, v)
	}
	if err := rows.Err(); err != nil {
		return report.NewStorageError(backendSQLite, "query_violations", err)
	}
	return nil
}

// scanRuns reads and closes rows.
func scanRuns(rows *sql.Rows) ([]*report.Run, error) {
	defer rows.Close()

	runs := []*report.Run{}
	for rows.Next() {
		var (
			run       report.Run
			startedAt int64
			duration  int64
		)
		err := rows.Scan(&run.ID, &run.Board, &run.RuleFile, &run.RulesHash, &run.Status,
			&startedAt, &duration, &run.Items, &run.Rules, &run.Evaluations, &run.Faults)
		if err != nil {
			return nil, report.NewStorageError(backendSQLite, "scan", err)
		}
		run.StartedAt = time.Unix(0, startedAt).UTC()
		run.Duration = time.Duration(duration)
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, report.NewStorageError(backendSQLite, "query", err)
	}
	return runs, nil
}

// buildWhereClause returns the WHERE clause (with a leading space) and
// its arguments.
func buildWhereClause(q *report.Query) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if q.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, q.Until.UnixNano())
	}
	if q.Board != "" {
		conditions = append(conditions, "board = ?")
		args = append(args, q.Board)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if q.Rule != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM violations v WHERE v.run_id = runs.id AND v.rule = ?)")
		args = append(args, q.Rule)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
