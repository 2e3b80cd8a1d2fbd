// Package metrics exposes Prometheus instrumentation for the governance
// layer: evaluation outcomes and latency, approval workflow transitions,
// escalations and expiries, and ledger append/verification activity.
//
// The collector registers on a caller-supplied registry so embedding
// applications control what gets scraped:
//
//	registry := prometheus.NewRegistry()
//	collector := metrics.NewCollector(metrics.DefaultConfig(), registry)
//	http.Handle("/metrics", collector.Handler())
//
// Components accept a *Collector and treat nil as "metrics disabled", so
// wiring it is always optional.
package metrics
