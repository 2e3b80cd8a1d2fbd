package engine

import (
	"time"

	"github.com/jaretmartin/symtex/pkg/policy"
)

// Effect is the outcome of evaluating a proposed action.
type Effect string

const (
	// EffectAllow lets the action proceed without human involvement.
	EffectAllow Effect = "allow"

	// EffectRequireApproval parks the action behind an approval request.
	EffectRequireApproval Effect = "require_approval"

	// EffectDeny blocks the action outright.
	EffectDeny Effect = "deny"
)

// ProposedAction is an action a cognate wants to take, described before it
// happens. Context carries action-specific detail (recipient, amount,
// command line) the policies' predicates test against.
type ProposedAction struct {
	// Type is the action type (e.g. "deploy", "send_email", "spend")
	Type string

	// Context holds action-specific fields for condition predicates
	Context map[string]interface{}

	// Coordinates of the action's origin
	SpaceID       string
	ProjectID     string
	CognateID     string
	AutomationID  string
	UserID        string
	IntegrationID string
}

// ScopeCoordinates returns the scope keys this action occupies, used for
// the policy scope filter. Empty coordinates are omitted.
func (a *ProposedAction) ScopeCoordinates() map[policy.ScopeKind]string {
	coords := make(map[policy.ScopeKind]string, 6)

	if a.SpaceID != "" {
		coords[policy.ScopeSpace] = a.SpaceID
	}
	if a.ProjectID != "" {
		coords[policy.ScopeProject] = a.ProjectID
	}
	if a.CognateID != "" {
		coords[policy.ScopeCognate] = a.CognateID
	}
	if a.AutomationID != "" {
		coords[policy.ScopeAutomation] = a.AutomationID
	}
	if a.UserID != "" {
		coords[policy.ScopeUser] = a.UserID
	}
	if a.IntegrationID != "" {
		coords[policy.ScopeIntegration] = a.IntegrationID
	}

	return coords
}

// Decision is the evaluator's verdict on one proposed action.
type Decision struct {
	// Effect is the final outcome (allow, require_approval, deny)
	Effect Effect

	// RiskLevel is the risk grade the decision carries; for approvals this
	// is the most restrictive level among the matched policies
	RiskLevel policy.RiskLevel

	// PolicyID and PolicyName identify the decisive policy, when one exists
	PolicyID   string
	PolicyName string

	// MatchedPolicyIDs lists every policy that matched, decisive or not
	MatchedPolicyIDs []string

	// Reason is a human-readable explanation of the outcome
	Reason string

	// AutoApproved marks decisions where an approval requirement was
	// waived by a matching auto-approve predicate
	AutoApproved bool

	// EvaluatedAt is when the evaluation happened (UTC)
	EvaluatedAt time.Time

	// Duration is how long the evaluation took
	Duration time.Duration
}

// PolicySource provides the policy set to evaluate against.
// *policy.Store satisfies it.
type PolicySource interface {
	// List returns the enabled policies in deterministic order.
	List() []*policy.Policy
}

// MetricSource resolves named metrics for threshold triggers when the
// metric is not present in the action context. *usage.Tracker satisfies it.
type MetricSource interface {
	// Metric returns the current value of a named metric for the action,
	// and whether the source knows the metric at all.
	Metric(name string, action ProposedAction) (float64, bool)
}
