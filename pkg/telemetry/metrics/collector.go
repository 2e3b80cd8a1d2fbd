package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config controls metric naming.
type Config struct {
	// Enabled gates all recording. Disabled collectors still register
	// their series so dashboards see zeros instead of gaps.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default "symtex".
	Namespace string `yaml:"namespace"`

	// Subsystem is the second name segment. Default "governor".
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig returns the default metric naming.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Namespace: "symtex",
		Subsystem: "governor",
	}
}

// Collector holds every Prometheus series the governance layer emits.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram

	approvalTransitions *prometheus.CounterVec
	escalations         prometheus.Counter
	expired             prometheus.Counter

	ledgerAppends        *prometheus.CounterVec
	appendDuration       prometheus.Histogram
	verificationFailures prometheus.Counter
}

// NewCollector registers the governance metric set on the given registry.
// A nil registry gets a fresh private one, reachable via Registry().
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "symtex"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "governor"
	}

	factory := promauto.With(registry)

	return &Collector{
		config:   cfg,
		registry: registry,

		evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Policy evaluations by decision effect and risk level",
			},
			[]string{"effect", "risk"},
		),

		evaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Policy evaluation latency",
				Buckets:   prometheus.ExponentialBuckets(0.000025, 4, 10), // 25µs to ~6.5s
			},
		),

		approvalTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "approval_transitions_total",
				Help:      "Approval request transitions by outcome",
			},
			[]string{"outcome"},
		),

		escalations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "approval_escalations_total",
				Help:      "Approval requests escalated to a higher level",
			},
		),

		expired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "approvals_expired_total",
				Help:      "Approval requests rejected by the expiry reconciler",
			},
		),

		ledgerAppends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_appends_total",
				Help:      "Ledger entries appended by event type",
			},
			[]string{"event_type"},
		),

		appendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_append_duration_seconds",
				Help:      "Ledger append latency including hashing and persistence",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
		),

		verificationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_verification_failures_total",
				Help:      "Hash chain verification runs that found a mismatch",
			},
		),
	}
}

// RecordEvaluation counts one policy evaluation.
func (c *Collector) RecordEvaluation(effect, risk string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.evaluations.WithLabelValues(effect, risk).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
}

// RecordApprovalTransition counts one workflow transition
// (approved, rejected, modified, expired, rerun).
func (c *Collector) RecordApprovalTransition(outcome string) {
	if !c.config.Enabled {
		return
	}
	c.approvalTransitions.WithLabelValues(outcome).Inc()
}

// RecordEscalation counts one escalation-level advance.
func (c *Collector) RecordEscalation() {
	if !c.config.Enabled {
		return
	}
	c.escalations.Inc()
}

// RecordExpiry counts one reconciler-driven expiry.
func (c *Collector) RecordExpiry() {
	if !c.config.Enabled {
		return
	}
	c.expired.Inc()
}

// RecordLedgerAppend counts one ledger append.
func (c *Collector) RecordLedgerAppend(eventType string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.ledgerAppends.WithLabelValues(eventType).Inc()
	c.appendDuration.Observe(duration.Seconds())
}

// RecordVerificationFailure counts one failed chain verification.
func (c *Collector) RecordVerificationFailure() {
	if !c.config.Enabled {
		return
	}
	c.verificationFailures.Inc()
}

// Registry returns the registry the collector registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
