package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the run history tables. Timestamps and durations are
// stored as integer nanoseconds so both drivers read them back identically.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    board TEXT NOT NULL,
    rule_file TEXT,
    rules_hash TEXT,
    status TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    duration INTEGER NOT NULL,
    items INTEGER NOT NULL,
    rules INTEGER NOT NULL,
    evaluations INTEGER NOT NULL,
    faults INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    rule TEXT NOT NULL,
    severity TEXT NOT NULL,
    item_a TEXT NOT NULL,
    item_b TEXT,
    message TEXT,
    fault TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_board ON runs(board);
CREATE INDEX IF NOT EXISTS idx_violations_run_id ON violations(run_id);
CREATE INDEX IF NOT EXISTS idx_violations_rule ON violations(rule);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
