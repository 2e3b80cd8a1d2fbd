package config

import "time"

// Storage backend names accepted by the approvals and ledger sections.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the root configuration for the governance runtime.
type Config struct {
	// Policies configures where governance policies load from.
	Policies PoliciesConfig `yaml:"policies"`

	// Approvals configures the approval workflow store and reconciler.
	Approvals ApprovalsConfig `yaml:"approvals"`

	// Ledger configures the audit ledger backend.
	Ledger LedgerConfig `yaml:"ledger"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PoliciesConfig locates the policy documents.
type PoliciesConfig struct {
	// Path is a policy YAML file or a directory of them.
	Path string `yaml:"path"`

	// Watch reloads policies when the files change.
	Watch bool `yaml:"watch"`
}

// ApprovalsConfig controls the approval workflow.
type ApprovalsConfig struct {
	// Store is the request store backend: "memory" or "sqlite".
	Store string `yaml:"store"`

	// SQLitePath is the database file, required when Store is "sqlite".
	SQLitePath string `yaml:"sqlite_path"`

	// DefaultTimeout bounds requests whose approvers declare no timeout.
	// Zero means such requests never expire.
	DefaultTimeout time.Duration `yaml:"default_timeout"`

	// ReconcileSchedule is the cron descriptor for the expiry sweep.
	ReconcileSchedule string `yaml:"reconcile_schedule"`
}

// LedgerConfig selects and parameterizes the audit ledger backend.
type LedgerConfig struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file, required when Backend is "sqlite".
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string, required when Backend is
	// "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`
}

// TelemetryConfig groups the observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig mirrors logging.Config; the CLI maps it across so this
// package stays free of telemetry imports.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`

	// AddSource includes file:line in every record.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks secret-looking attribute values.
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig mirrors metrics.Config.
type MetricsConfig struct {
	// Enabled gates all recording.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`

	// Subsystem is the second name segment.
	Subsystem string `yaml:"subsystem"`
}
