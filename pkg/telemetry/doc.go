// Package telemetry provides observability for the governance layer.
//
// # Components
//
//   - logging: structured slog logging with secret redaction
//   - metrics: Prometheus metrics for evaluations, approvals and the ledger
//
// # Usage
//
//	logger, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	registry := prometheus.NewRegistry()
//	collector := metrics.NewCollector(metrics.DefaultConfig(), registry)
//
//	logger.Info("governor ready", "policies", store.Count())
//
// Every component takes a *slog.Logger in its constructor and namespaces it
// with a "component" attribute. Metrics are optional everywhere: a nil
// collector disables recording.
package telemetry
