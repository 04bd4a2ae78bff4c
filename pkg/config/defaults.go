package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultUnits               = "board"
	DefaultMaxExpressionLength = 4096
	DefaultReportAdvisories    = true

	// Rules defaults
	DefaultRulesPath     = "./rules.yaml"
	DefaultRulesWatch    = false
	DefaultRulesDebounce = 100 * time.Millisecond
	DefaultGitBranch     = "main"
	DefaultGitAuthType   = "none"
	DefaultGitPoll       = 30 * time.Second
	DefaultGitTimeout    = 10 * time.Second
	DefaultGitLocalPath  = "data/rules-repo"

	// Report defaults
	DefaultReportEnabled      = true
	DefaultReportBackend      = "sqlite"
	DefaultSQLitePath         = "data/anvil.db"
	DefaultSQLiteDriver       = "sqlite3"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second
	DefaultRetentionDays      = 30
	DefaultRetentionSchedule  = "0 3 * * *"
	DefaultQueryDefaultLimit  = 20
	DefaultQueryMaxLimit      = 1000

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "text"
	DefaultMetricsEnabled      = true
	DefaultMetricsAddress      = "127.0.0.1:9464"
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "anvil"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "anvil"
	DefaultOTLPInsecure        = true
	DefaultOTLPTimeout         = 10 * time.Second
)

// DefaultDurationBuckets are the histogram buckets (seconds) for compile and
// check durations.
var DefaultDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// NewDefault returns a configuration with every field set to its default.
// Files are decoded on top of it so that boolean defaults survive fields
// the file does not mention.
func NewDefault() *Config {
	cfg := &Config{
		Engine: EngineConfig{
			ReportAdvisories: DefaultReportAdvisories,
		},
		Rules: RulesConfig{
			Watch: DefaultRulesWatch,
		},
		Report: ReportConfig{
			Enabled: DefaultReportEnabled,
			SQLite: SQLiteConfig{
				WALMode: DefaultSQLiteWALMode,
			},
			Retention: RetentionConfig{
				Days: DefaultRetentionDays,
			},
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled: DefaultTracingEnabled,
				OTLP: OTLPConfig{
					Insecure: DefaultOTLPInsecure,
				},
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any non-boolean fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.Units == "" {
		cfg.Engine.Units = DefaultUnits
	}
	if cfg.Engine.MaxExpressionLength == 0 {
		cfg.Engine.MaxExpressionLength = DefaultMaxExpressionLength
	}

	// Rules defaults
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}
	if cfg.Rules.Git.Branch == "" {
		cfg.Rules.Git.Branch = DefaultGitBranch
	}
	if cfg.Rules.Git.Auth.Type == "" {
		cfg.Rules.Git.Auth.Type = DefaultGitAuthType
	}
	if cfg.Rules.Git.PollInterval == 0 {
		cfg.Rules.Git.PollInterval = DefaultGitPoll
	}
	if cfg.Rules.Git.Timeout == 0 {
		cfg.Rules.Git.Timeout = DefaultGitTimeout
	}
	if cfg.Rules.Git.LocalPath == "" {
		cfg.Rules.Git.LocalPath = DefaultGitLocalPath
	}

	// Report defaults
	if cfg.Report.Backend == "" {
		cfg.Report.Backend = DefaultReportBackend
	}
	if cfg.Report.SQLite.Path == "" {
		cfg.Report.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Report.SQLite.Driver == "" {
		cfg.Report.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Report.SQLite.MaxOpenConns == 0 {
		cfg.Report.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Report.SQLite.MaxIdleConns == 0 {
		cfg.Report.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Report.SQLite.BusyTimeout == 0 {
		cfg.Report.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Report.Retention.PruneSchedule == "" {
		cfg.Report.Retention.PruneSchedule = DefaultRetentionSchedule
	}
	if cfg.Report.Query.DefaultLimit == 0 {
		cfg.Report.Query.DefaultLimit = DefaultQueryDefaultLimit
	}
	if cfg.Report.Query.MaxLimit == 0 {
		cfg.Report.Query.MaxLimit = DefaultQueryMaxLimit
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}
}
