package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is the handler format: "text" or "json".
	Format string `yaml:"format"`

	// AddSource includes file:line in every record.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks secret-looking attribute values.
	RedactSecrets bool `yaml:"redact_secrets"`

	// Writer receives log output. Defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns production defaults: info-level JSON with
// redaction enabled.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "json",
		RedactSecrets: true,
	}
}

// New builds a *slog.Logger from the config.
func New(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}
	if cfg.RedactSecrets {
		redactor := NewRedactor()
		opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
			return redactor.RedactAttr(a)
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	case "json", "":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}
