package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaretmartin/symtex/pkg/policy"
)

// Evaluator decides what happens to proposed actions by checking them
// against the current policy set.
type Evaluator struct {
	source  PolicySource
	metrics MetricSource
	logger  *slog.Logger
}

// hit is one policy that matched the action under evaluation.
type hit struct {
	policy *policy.Policy
	waived bool
}

// NewEvaluator creates an evaluator. The metric source may be nil, in which
// case threshold triggers resolve only against the action context.
func NewEvaluator(source PolicySource, metrics MetricSource, logger *slog.Logger) (*Evaluator, error) {
	if source == nil {
		return nil, fmt.Errorf("policy source is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		source:  source,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Evaluate checks a proposed action against every applicable policy and
// returns a decision. Deny wins over everything; otherwise an approval
// requirement wins over a plain allow, carrying the most restrictive risk
// level among the policies that demand approval. Policies whose triggers or
// predicates are misconfigured are logged and treated as non-matching, so a
// broken policy fails open rather than blocking every action it scopes.
//
// The only error returned is context cancellation.
func (e *Evaluator) Evaluate(ctx context.Context, action ProposedAction) (Decision, error) {
	start := time.Now()
	coords := action.ScopeCoordinates()

	var (
		hits      []hit
		matchedID []string
	)

	for _, pol := range e.source.List() {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}

		if !pol.AppliesTo(coords) {
			continue
		}

		matched, err := e.policyMatches(pol, action)
		if err != nil {
			e.logger.Warn("policy skipped during evaluation",
				"policy_id", pol.ID,
				"policy_name", pol.Name,
				"error", err)
			continue
		}
		if !matched {
			continue
		}

		h := hit{policy: pol}
		if pol.ApprovalRequired {
			waived, err := e.autoApproveWaives(pol, action)
			if err != nil {
				// A broken waiver predicate must not waive anything.
				e.logger.Warn("auto-approve predicate skipped",
					"policy_id", pol.ID,
					"policy_name", pol.Name,
					"error", err)
			}
			h.waived = waived
		}

		hits = append(hits, h)
		matchedID = append(matchedID, pol.ID)
	}

	if len(hits) == 0 {
		return e.finish(Decision{
			Effect:    EffectAllow,
			RiskLevel: policy.RiskLow,
			Reason:    "no matching policies",
		}, action, start), nil
	}

	// Deny wins immediately, regardless of what else matched.
	for _, h := range hits {
		if !h.policy.ApprovalRequired && h.policy.Effect == policy.EffectDeny {
			return e.finish(Decision{
				Effect:           EffectDeny,
				RiskLevel:        h.policy.RiskLevel,
				PolicyID:         h.policy.ID,
				PolicyName:       h.policy.Name,
				MatchedPolicyIDs: matchedID,
				Reason:           fmt.Sprintf("denied by policy %q", h.policy.Name),
			}, action, start), nil
		}
	}

	// Approval requirements that were not waived; the policy with the most
	// restrictive risk level is decisive. Ties keep the earliest hit, so the
	// outcome is stable across evaluations of the same policy set.
	var (
		decisive *policy.Policy
		anyWaive bool
	)
	for _, h := range hits {
		if !h.policy.ApprovalRequired {
			continue
		}
		if h.waived {
			anyWaive = true
			continue
		}
		if decisive == nil || h.policy.RiskLevel.MoreRestrictive(decisive.RiskLevel) {
			decisive = h.policy
		}
	}

	if decisive != nil {
		return e.finish(Decision{
			Effect:           EffectRequireApproval,
			RiskLevel:        decisive.RiskLevel,
			PolicyID:         decisive.ID,
			PolicyName:       decisive.Name,
			MatchedPolicyIDs: matchedID,
			Reason:           fmt.Sprintf("approval required by policy %q", decisive.Name),
		}, action, start), nil
	}

	if anyWaive {
		first := firstWaived(hits)
		return e.finish(Decision{
			Effect:           EffectAllow,
			RiskLevel:        first.RiskLevel,
			PolicyID:         first.ID,
			PolicyName:       first.Name,
			MatchedPolicyIDs: matchedID,
			Reason:           fmt.Sprintf("approval waived by auto-approve rule on policy %q", first.Name),
			AutoApproved:     true,
		}, action, start), nil
	}

	// Only plain allow policies remain.
	first := hits[0].policy
	return e.finish(Decision{
		Effect:           EffectAllow,
		RiskLevel:        first.RiskLevel,
		PolicyID:         first.ID,
		PolicyName:       first.Name,
		MatchedPolicyIDs: matchedID,
		Reason:           fmt.Sprintf("allowed by policy %q", first.Name),
	}, action, start), nil
}

// policyMatches reports whether any of the policy's triggers matches the
// action. Schedule and event triggers never match proposed actions. A
// misconfigured trigger poisons the whole policy.
func (e *Evaluator) policyMatches(pol *policy.Policy, action ProposedAction) (bool, error) {
	for _, trig := range pol.Triggers {
		matched, err := e.triggerMatches(trig, action)
		if err != nil {
			return false, &ConfigurationError{
				PolicyID: pol.ID,
				Detail:   fmt.Sprintf("%s trigger", trig.Kind),
				Cause:    err,
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) triggerMatches(trig policy.TriggerSpec, action ProposedAction) (bool, error) {
	switch trig.Kind {
	case policy.TriggerActionType:
		for _, t := range trig.ActionTypes {
			if t == action.Type {
				return true, nil
			}
		}
		return false, nil

	case policy.TriggerCondition:
		if trig.Condition == nil {
			return false, fmt.Errorf("condition trigger has no predicate")
		}
		return matchPredicate(*trig.Condition, action)

	case policy.TriggerThreshold:
		value, err := e.resolveMetric(trig.Metric, action)
		if err != nil {
			return false, err
		}
		return compareThreshold(trig.Operator, value, trig.Value, trig.UpperValue)

	case policy.TriggerSchedule, policy.TriggerEvent:
		return false, nil

	default:
		return false, fmt.Errorf("unknown trigger kind %q", trig.Kind)
	}
}

// resolveMetric finds the value for a threshold trigger's metric. The action
// context takes precedence so callers can evaluate hypothetical values; the
// metric source supplies live readings for everything else.
func (e *Evaluator) resolveMetric(name string, action ProposedAction) (float64, error) {
	if raw, ok := action.Context[name]; ok {
		value, err := toFloat64(raw)
		if err != nil {
			return 0, fmt.Errorf("metric %q in action context is not numeric: %w", name, err)
		}
		return value, nil
	}

	if e.metrics != nil {
		if value, ok := e.metrics.Metric(name, action); ok {
			return value, nil
		}
	}

	return 0, fmt.Errorf("metric %q is not defined", name)
}

// autoApproveWaives reports whether any auto-approve predicate matches the
// action. An empty predicate list never waives.
func (e *Evaluator) autoApproveWaives(pol *policy.Policy, action ProposedAction) (bool, error) {
	for _, pred := range pol.AutoApprove {
		matched, err := matchPredicate(pred, action)
		if err != nil {
			return false, &ConfigurationError{
				PolicyID: pol.ID,
				Detail:   fmt.Sprintf("auto-approve predicate on %q", pred.Field),
				Cause:    err,
			}
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) finish(d Decision, action ProposedAction, start time.Time) Decision {
	d.EvaluatedAt = start.UTC()
	d.Duration = time.Since(start)

	e.logger.Debug("action evaluated",
		"action_type", action.Type,
		"cognate_id", action.CognateID,
		"effect", string(d.Effect),
		"policy_id", d.PolicyID,
		"matched", len(d.MatchedPolicyIDs),
		"auto_approved", d.AutoApproved,
		"duration_ms", time.Since(start).Milliseconds())

	return d
}

func firstWaived(hits []hit) *policy.Policy {
	for _, h := range hits {
		if h.waived {
			return h.policy
		}
	}
	return nil
}
