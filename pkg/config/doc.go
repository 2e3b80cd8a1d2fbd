// Package config defines the YAML configuration for the governance
// runtime: where policies load from, how approvals are stored and swept,
// which ledger backend to use, and telemetry settings.
//
// There is no package-level singleton. Callers load a *Config once and
// hand sub-sections to the constructors that need them:
//
//	cfg, err := config.Load("symtex.yaml")
//	if err != nil {
//		return err
//	}
//	logger, err := logging.New(logging.Config{
//		Level:  cfg.Telemetry.Logging.Level,
//		Format: cfg.Telemetry.Logging.Format,
//	})
//
// Environment variables prefixed SYMTEX_ override file values, e.g.
// SYMTEX_LEDGER_BACKEND=postgres.
package config
