package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jaretmartin/symtex/pkg/cli"
	"github.com/jaretmartin/symtex/pkg/config"
	"github.com/jaretmartin/symtex/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "symtex",
	Short: "Symtex - governance runtime for autonomous agents",
	Long: `Symtex is a governance runtime for autonomous agents (cognates).

It evaluates proposed actions against declarative policies, routes risky
actions through an approval workflow, and records every decision in a
hash-chained audit ledger:
  - Policy evaluation (allow, require_approval, deny)
  - Approval workflow with escalation and expiry
  - Tamper-evident audit ledger with chain verification
  - Rule-set compilation to deterministic scripts

For more information, visit: https://github.com/jaretmartin/symtex`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps the error to a process exit
// code. Commands inherit a context cancelled on SIGINT/SIGTERM.
func Execute() {
	if err := rootCmd.ExecuteContext(cli.SetupSignalHandler()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the --config file. Commands that can run without one
// (lint, compile) never call this.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cli.NewExitError(cli.ExitUsage, err)
	}
	return cfg, nil
}

// buildLogger constructs the command logger from the telemetry section.
// Commands log to stderr so stdout stays parseable; --verbose forces
// debug level.
func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	logCfg := logging.Config{
		Level:         cfg.Telemetry.Logging.Level,
		Format:        cfg.Telemetry.Logging.Format,
		AddSource:     cfg.Telemetry.Logging.AddSource,
		RedactSecrets: cfg.Telemetry.Logging.RedactSecrets,
		Writer:        os.Stderr,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	return logging.New(logCfg)
}

// commandLogger builds a logger for commands that run without a config
// file (lint, compile, simulate): quiet text output on stderr unless
// --verbose asks for more.
func commandLogger() *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		Format: "text",
		Writer: os.Stderr,
	})
	if err != nil {
		return slog.Default()
	}
	return logger
}
