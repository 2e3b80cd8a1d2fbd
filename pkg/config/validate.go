package config

import "fmt"

// ConfigurationError describes the first invalid field found by Validate.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// NewConfigurationError creates a ConfigurationError for the given field.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// Validate checks the configuration and returns a ConfigurationError for
// the first violation it finds. A nil return means the config is usable.
func (c *Config) Validate() error {
	if c.Policies.Path == "" {
		return NewConfigurationError("policies.path", "path to a policy file or directory is required")
	}

	switch c.Approvals.Store {
	case BackendMemory:
	case BackendSQLite:
		if c.Approvals.SQLitePath == "" {
			return NewConfigurationError("approvals.sqlite_path", "required when approvals.store is sqlite")
		}
	default:
		return NewConfigurationError("approvals.store", fmt.Sprintf("unknown store %q, expected memory or sqlite", c.Approvals.Store))
	}

	if c.Approvals.DefaultTimeout < 0 {
		return NewConfigurationError("approvals.default_timeout", fmt.Sprintf("must not be negative, got %s", c.Approvals.DefaultTimeout))
	}
	if c.Approvals.ReconcileSchedule == "" {
		return NewConfigurationError("approvals.reconcile_schedule", "cron schedule is required, e.g. @every 1m")
	}

	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Ledger.SQLitePath == "" {
			return NewConfigurationError("ledger.sqlite_path", "required when ledger.backend is sqlite")
		}
	case BackendPostgres:
		if c.Ledger.PostgresDSN == "" {
			return NewConfigurationError("ledger.postgres_dsn", "required when ledger.backend is postgres")
		}
	default:
		return NewConfigurationError("ledger.backend", fmt.Sprintf("unknown backend %q, expected memory, sqlite or postgres", c.Ledger.Backend))
	}

	switch c.Telemetry.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return NewConfigurationError("telemetry.logging.level", fmt.Sprintf("unknown level %q", c.Telemetry.Logging.Level))
	}
	switch c.Telemetry.Logging.Format {
	case "", "text", "json":
	default:
		return NewConfigurationError("telemetry.logging.format", fmt.Sprintf("unknown format %q, expected text or json", c.Telemetry.Logging.Format))
	}

	return nil
}
