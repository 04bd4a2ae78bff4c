package config

import "time"

// Config is the root configuration structure for Anvil.
// It contains all configuration sections for the expression engine, rule
// loading, run history storage and telemetry.
type Config struct {
	// Engine contains expression compiler settings such as the unit system.
	Engine EngineConfig `yaml:"engine"`

	// Rules contains configuration for locating and watching rule files.
	Rules RulesConfig `yaml:"rules"`

	// Report contains configuration for check-run history storage
	// including backend selection and retention.
	Report ReportConfig `yaml:"report"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains expression engine configuration.
type EngineConfig struct {
	// Units selects the unit resolver used for numeric suffixes.
	// Options: "board", "schematic"
	// Default: "board"
	Units string `yaml:"units"`

	// MaxExpressionLength rejects rule expressions longer than this many
	// bytes. 0 means unlimited.
	// Default: 4096
	MaxExpressionLength int `yaml:"max_expression_length"`

	// ReportAdvisories surfaces advisory diagnostics (such as a number
	// without units) as lint warnings.
	// Default: true
	ReportAdvisories bool `yaml:"report_advisories"`
}

// RulesConfig contains rule source configuration.
type RulesConfig struct {
	// Path is a rule file or a directory of .yaml/.yml rule files.
	// Default: "./rules.yaml"
	Path string `yaml:"path"`

	// Watch enables hot-reload of rule files when they change on disk.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file change before rules are
	// reloaded.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// RecheckSchedule is an optional cron expression for periodic
	// re-checks in watch mode. Empty disables scheduled checks.
	// Default: ""
	RecheckSchedule string `yaml:"recheck_schedule"`

	// Strict turns rule compile errors into a failed load instead of
	// skipping the broken rules.
	// Default: false
	Strict bool `yaml:"strict"`

	// Git loads rules from a Git repository instead of Path when
	// Repository is set.
	Git GitRulesConfig `yaml:"git"`
}

// GitRulesConfig configures a Git rule source.
type GitRulesConfig struct {
	// Repository URL (HTTPS or SSH). Empty disables the Git source.
	// Example: "https://github.com/acme/drc-rules.git"
	// Example: "git@github.com:acme/drc-rules.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to a rule file or directory.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// PollInterval is the time between pulls in watch mode.
	// Default: 30s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout for clone and pull operations.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Depth for shallow clones (0 = full clone).
	// Default: 0
	Depth int `yaml:"depth"`

	// LocalPath where the repository is cloned.
	// Default: "data/rules-repo"
	LocalPath string `yaml:"local_path"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh", "none"
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication.
	// Required when Type is "token".
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication.
	// Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// ReportConfig contains run history configuration.
type ReportConfig struct {
	// Enabled controls whether check runs are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend for run records.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query configuration.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/anvil.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go, modernc)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain run records.
	// 0 means keep runs forever (no pruning).
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// QueryConfig contains query configuration.
type QueryConfig struct {
	// DefaultLimit is the default number of runs to return if not specified.
	// Default: 20
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the maximum number of runs that can be returned in a single query.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is where `anvil watch` serves the metrics endpoint.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "anvil"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for compile and check
	// durations (seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "anvil"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
