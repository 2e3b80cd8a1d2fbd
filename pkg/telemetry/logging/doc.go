// Package logging builds structured slog loggers for the governance layer.
//
// Loggers write text or JSON and optionally redact secret-looking values
// (API keys, bearer tokens, passwords, email addresses) before they reach
// the handler, so sloppy call sites cannot leak credentials into log
// aggregation.
//
// # Basic Usage
//
//	logger, err := logging.New(logging.Config{
//		Level:         "debug",
//		Format:        "json",
//		RedactSecrets: true,
//	})
//	if err != nil {
//		return err
//	}
//	logger.Info("policy set loaded", "policies", 12, "version", 3)
package logging
