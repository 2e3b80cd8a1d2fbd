package config

import "time"

// DefaultConfig returns production defaults: policies from a local
// directory, in-memory approvals swept every minute, a SQLite ledger, and
// info-level JSON logging with metrics enabled.
func DefaultConfig() *Config {
	return &Config{
		Policies: PoliciesConfig{
			Path: "policies",
		},
		Approvals: ApprovalsConfig{
			Store:             BackendMemory,
			DefaultTimeout:    24 * time.Hour,
			ReconcileSchedule: "@every 1m",
		},
		Ledger: LedgerConfig{
			Backend:    BackendSQLite,
			SQLitePath: "symtex-ledger.db",
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:         "info",
				Format:        "json",
				RedactSecrets: true,
			},
			Metrics: MetricsConfig{
				Enabled:   true,
				Namespace: "symtex",
				Subsystem: "governor",
			},
		},
	}
}

// applyDefaults fills unset fields in a loaded config with the defaults.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Policies.Path == "" {
		cfg.Policies.Path = def.Policies.Path
	}
	if cfg.Approvals.Store == "" {
		cfg.Approvals.Store = def.Approvals.Store
	}
	if cfg.Approvals.DefaultTimeout == 0 {
		cfg.Approvals.DefaultTimeout = def.Approvals.DefaultTimeout
	}
	if cfg.Approvals.ReconcileSchedule == "" {
		cfg.Approvals.ReconcileSchedule = def.Approvals.ReconcileSchedule
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = def.Ledger.Backend
	}
	if cfg.Ledger.Backend == BackendSQLite && cfg.Ledger.SQLitePath == "" {
		cfg.Ledger.SQLitePath = def.Ledger.SQLitePath
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = def.Telemetry.Logging.Level
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = def.Telemetry.Logging.Format
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = def.Telemetry.Metrics.Namespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = def.Telemetry.Metrics.Subsystem
	}
}
