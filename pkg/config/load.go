package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads, defaults, overrides and validates a YAML config file.
// Environment variables prefixed SYMTEX_ take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML config from memory, then defaults, overrides
// and validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies SYMTEX_SECTION_FIELD environment variables.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SYMTEX_POLICIES_PATH"); val != "" {
		cfg.Policies.Path = val
	}
	if val := os.Getenv("SYMTEX_POLICIES_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policies.Watch = b
		}
	}

	if val := os.Getenv("SYMTEX_APPROVALS_STORE"); val != "" {
		cfg.Approvals.Store = val
	}
	if val := os.Getenv("SYMTEX_APPROVALS_SQLITE_PATH"); val != "" {
		cfg.Approvals.SQLitePath = val
	}
	if val := os.Getenv("SYMTEX_APPROVALS_DEFAULT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Approvals.DefaultTimeout = d
		}
	}
	if val := os.Getenv("SYMTEX_APPROVALS_RECONCILE_SCHEDULE"); val != "" {
		cfg.Approvals.ReconcileSchedule = val
	}

	if val := os.Getenv("SYMTEX_LEDGER_BACKEND"); val != "" {
		cfg.Ledger.Backend = val
	}
	if val := os.Getenv("SYMTEX_LEDGER_SQLITE_PATH"); val != "" {
		cfg.Ledger.SQLitePath = val
	}
	if val := os.Getenv("SYMTEX_LEDGER_POSTGRES_DSN"); val != "" {
		cfg.Ledger.PostgresDSN = val
	}

	if val := os.Getenv("SYMTEX_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SYMTEX_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SYMTEX_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}
