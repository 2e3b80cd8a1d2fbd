package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jaretmartin/symtex/pkg/policy"
)

type staticSource struct {
	policies []*policy.Policy
}

func (s *staticSource) List() []*policy.Policy { return s.policies }

type staticMetrics map[string]float64

func (m staticMetrics) Metric(name string, _ ProposedAction) (float64, bool) {
	v, ok := m[name]
	return v, ok
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEvaluator(t *testing.T, metrics MetricSource, policies ...*policy.Policy) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator(&staticSource{policies: policies}, metrics, quietLogger())
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	return ev
}

func globalScope() []policy.Scope {
	return []policy.Scope{{Kind: policy.ScopeGlobal}}
}

func actionTypeTrigger(types ...string) []policy.TriggerSpec {
	return []policy.TriggerSpec{{Kind: policy.TriggerActionType, ActionTypes: types}}
}

func approvalPolicy(id, name string, risk policy.RiskLevel) *policy.Policy {
	return &policy.Policy{
		ID:               id,
		Name:             name,
		Enabled:          true,
		Scopes:           globalScope(),
		Triggers:         actionTypeTrigger("deploy"),
		ApprovalRequired: true,
		RiskLevel:        risk,
		Approvers:        []policy.Approver{{Kind: policy.ApproverRole, ID: "ops"}},
	}
}

func TestEvaluate_NoPoliciesAllows(t *testing.T) {
	ev := newTestEvaluator(t, nil)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "deploy"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Errorf("Effect = %q, want %q", decision.Effect, EffectAllow)
	}
	if decision.Reason != "no matching policies" {
		t.Errorf("Reason = %q", decision.Reason)
	}
	if len(decision.MatchedPolicyIDs) != 0 {
		t.Errorf("MatchedPolicyIDs = %v, want empty", decision.MatchedPolicyIDs)
	}
	if decision.EvaluatedAt.IsZero() {
		t.Error("EvaluatedAt not set")
	}
}

func TestEvaluate_ScopeFilter(t *testing.T) {
	pol := approvalPolicy("pol-1", "prod-deploys", policy.RiskHigh)
	pol.Scopes = []policy.Scope{{Kind: policy.ScopeSpace, ID: "space-prod"}}
	ev := newTestEvaluator(t, nil, pol)

	tests := []struct {
		name    string
		spaceID string
		want    Effect
	}{
		{name: "matching space", spaceID: "space-prod", want: EffectRequireApproval},
		{name: "other space", spaceID: "space-dev", want: EffectAllow},
		{name: "no space coordinate", spaceID: "", want: EffectAllow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := ev.Evaluate(context.Background(), ProposedAction{
				Type:    "deploy",
				SpaceID: tt.spaceID,
			})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.Effect != tt.want {
				t.Errorf("Effect = %q, want %q", decision.Effect, tt.want)
			}
		})
	}
}

func TestEvaluate_ConditionTrigger(t *testing.T) {
	pol := &policy.Policy{
		ID:      "pol-ext",
		Name:    "external-email",
		Enabled: true,
		Scopes:  globalScope(),
		Triggers: []policy.TriggerSpec{{
			Kind: policy.TriggerCondition,
			Condition: &policy.Predicate{
				Field:    "recipient",
				Operator: "not_contains",
				Value:    "@acme.com",
			},
		}},
		ApprovalRequired: true,
		RiskLevel:        policy.RiskMedium,
		Approvers:        []policy.Approver{{Kind: policy.ApproverUser, ID: "dana"}},
	}
	ev := newTestEvaluator(t, nil, pol)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{
		Type:    "send_email",
		Context: map[string]interface{}{"recipient": "ceo@client.io"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectRequireApproval {
		t.Fatalf("external recipient: Effect = %q, want %q", decision.Effect, EffectRequireApproval)
	}

	decision, err = ev.Evaluate(context.Background(), ProposedAction{
		Type:    "send_email",
		Context: map[string]interface{}{"recipient": "bob@acme.com"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Errorf("internal recipient: Effect = %q, want %q", decision.Effect, EffectAllow)
	}
}

func TestEvaluate_ThresholdFiresAtExactBound(t *testing.T) {
	pol := &policy.Policy{
		ID:      "pol-spend",
		Name:    "daily-spend-cap",
		Enabled: true,
		Scopes:  globalScope(),
		Triggers: []policy.TriggerSpec{{
			Kind:     policy.TriggerThreshold,
			Metric:   "spend_per_day",
			Operator: policy.ThresholdGTE,
			Value:    100,
		}},
		Effect:    policy.EffectDeny,
		RiskLevel: policy.RiskHigh,
	}

	tests := []struct {
		name  string
		spend float64
		want  Effect
	}{
		{name: "below bound", spend: 99.99, want: EffectAllow},
		{name: "exactly at bound", spend: 100, want: EffectDeny},
		{name: "above bound", spend: 250, want: EffectDeny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := newTestEvaluator(t, staticMetrics{"spend_per_day": tt.spend}, pol)
			decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "spend"})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.Effect != tt.want {
				t.Errorf("spend %.2f: Effect = %q, want %q", tt.spend, decision.Effect, tt.want)
			}
		})
	}
}

func TestEvaluate_ThresholdPrefersActionContext(t *testing.T) {
	pol := &policy.Policy{
		ID:      "pol-amount",
		Name:    "large-transfer",
		Enabled: true,
		Scopes:  globalScope(),
		Triggers: []policy.TriggerSpec{{
			Kind:     policy.TriggerThreshold,
			Metric:   "amount",
			Operator: policy.ThresholdGT,
			Value:    500,
		}},
		Effect:    policy.EffectDeny,
		RiskLevel: policy.RiskCritical,
	}
	// The metric source would deny, but the context carries the real amount.
	ev := newTestEvaluator(t, staticMetrics{"amount": 10_000}, pol)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{
		Type:    "transfer",
		Context: map[string]interface{}{"amount": 50},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Errorf("Effect = %q, want %q", decision.Effect, EffectAllow)
	}
}

func TestEvaluate_DenyWins(t *testing.T) {
	allow := &policy.Policy{
		ID:        "pol-allow",
		Name:      "a-allow-deploys",
		Enabled:   true,
		Scopes:    globalScope(),
		Triggers:  actionTypeTrigger("deploy"),
		Effect:    policy.EffectAllow,
		RiskLevel: policy.RiskLow,
	}
	approval := approvalPolicy("pol-approve", "b-gate-deploys", policy.RiskCritical)
	deny := &policy.Policy{
		ID:        "pol-deny",
		Name:      "c-freeze-deploys",
		Enabled:   true,
		Scopes:    globalScope(),
		Triggers:  actionTypeTrigger("deploy"),
		Effect:    policy.EffectDeny,
		RiskLevel: policy.RiskHigh,
	}
	ev := newTestEvaluator(t, nil, allow, approval, deny)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "deploy"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectDeny {
		t.Fatalf("Effect = %q, want %q", decision.Effect, EffectDeny)
	}
	if decision.PolicyID != "pol-deny" {
		t.Errorf("PolicyID = %q, want pol-deny", decision.PolicyID)
	}
	if len(decision.MatchedPolicyIDs) != 3 {
		t.Errorf("MatchedPolicyIDs = %v, want all three", decision.MatchedPolicyIDs)
	}
}

func TestEvaluate_MostRestrictiveRiskDecides(t *testing.T) {
	medium := approvalPolicy("pol-medium", "a-medium-gate", policy.RiskMedium)
	critical := approvalPolicy("pol-critical", "b-critical-gate", policy.RiskCritical)
	high := approvalPolicy("pol-high", "c-high-gate", policy.RiskHigh)
	ev := newTestEvaluator(t, nil, medium, critical, high)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "deploy"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectRequireApproval {
		t.Fatalf("Effect = %q, want %q", decision.Effect, EffectRequireApproval)
	}
	if decision.RiskLevel != policy.RiskCritical {
		t.Errorf("RiskLevel = %q, want %q", decision.RiskLevel, policy.RiskCritical)
	}
	if decision.PolicyID != "pol-critical" {
		t.Errorf("PolicyID = %q, want pol-critical", decision.PolicyID)
	}
}

func TestEvaluate_RiskTieKeepsFirstHit(t *testing.T) {
	first := approvalPolicy("pol-first", "a-gate", policy.RiskHigh)
	second := approvalPolicy("pol-second", "b-gate", policy.RiskHigh)
	ev := newTestEvaluator(t, nil, first, second)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "deploy"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.PolicyID != "pol-first" {
		t.Errorf("PolicyID = %q, want pol-first", decision.PolicyID)
	}
}

func TestEvaluate_AutoApproveWaivesApproval(t *testing.T) {
	pol := approvalPolicy("pol-gate", "deploy-gate", policy.RiskHigh)
	pol.AutoApprove = []policy.Predicate{
		{Field: "environment", Operator: "equals", Value: "staging"},
	}
	ev := newTestEvaluator(t, nil, pol)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{
		Type:    "deploy",
		Context: map[string]interface{}{"environment": "staging"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Fatalf("Effect = %q, want %q", decision.Effect, EffectAllow)
	}
	if !decision.AutoApproved {
		t.Error("AutoApproved = false, want true")
	}
	if decision.PolicyID != "pol-gate" {
		t.Errorf("PolicyID = %q, want pol-gate", decision.PolicyID)
	}

	decision, err = ev.Evaluate(context.Background(), ProposedAction{
		Type:    "deploy",
		Context: map[string]interface{}{"environment": "production"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectRequireApproval {
		t.Errorf("production: Effect = %q, want %q", decision.Effect, EffectRequireApproval)
	}
	if decision.AutoApproved {
		t.Error("production: AutoApproved = true, want false")
	}
}

func TestEvaluate_AutoApproveDoesNotOverrideOtherApprovals(t *testing.T) {
	waived := approvalPolicy("pol-waived", "a-gate", policy.RiskMedium)
	waived.AutoApprove = []policy.Predicate{
		{Field: "environment", Operator: "equals", Value: "staging"},
	}
	firm := approvalPolicy("pol-firm", "b-gate", policy.RiskHigh)
	ev := newTestEvaluator(t, nil, waived, firm)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{
		Type:    "deploy",
		Context: map[string]interface{}{"environment": "staging"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectRequireApproval {
		t.Fatalf("Effect = %q, want %q", decision.Effect, EffectRequireApproval)
	}
	if decision.AutoApproved {
		t.Error("AutoApproved = true, want false")
	}
	if decision.PolicyID != "pol-firm" {
		t.Errorf("PolicyID = %q, want pol-firm", decision.PolicyID)
	}
}

func TestEvaluate_MisconfiguredPolicySkipped(t *testing.T) {
	broken := &policy.Policy{
		ID:      "pol-broken",
		Name:    "a-broken",
		Enabled: true,
		Scopes:  globalScope(),
		Triggers: []policy.TriggerSpec{{
			Kind: policy.TriggerCondition,
			Condition: &policy.Predicate{
				Field:    "command",
				Operator: "matches",
				Value:    "[unclosed",
			},
		}},
		Effect:    policy.EffectDeny,
		RiskLevel: policy.RiskHigh,
	}
	healthy := approvalPolicy("pol-healthy", "b-gate", policy.RiskMedium)
	ev := newTestEvaluator(t, nil, broken, healthy)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{
		Type:    "deploy",
		Context: map[string]interface{}{"command": "rm -rf /"},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectRequireApproval {
		t.Errorf("Effect = %q, want %q (broken policy must not decide)", decision.Effect, EffectRequireApproval)
	}
	if decision.PolicyID != "pol-healthy" {
		t.Errorf("PolicyID = %q, want pol-healthy", decision.PolicyID)
	}
}

func TestEvaluate_UndefinedMetricSkipsPolicy(t *testing.T) {
	pol := &policy.Policy{
		ID:      "pol-metric",
		Name:    "rate-cap",
		Enabled: true,
		Scopes:  globalScope(),
		Triggers: []policy.TriggerSpec{{
			Kind:     policy.TriggerThreshold,
			Metric:   "actions_per_hour",
			Operator: policy.ThresholdGT,
			Value:    50,
		}},
		Effect:    policy.EffectDeny,
		RiskLevel: policy.RiskMedium,
	}
	ev := newTestEvaluator(t, nil, pol)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "anything"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Errorf("Effect = %q, want %q", decision.Effect, EffectAllow)
	}
}

func TestEvaluate_ScheduleAndEventTriggersNeverMatch(t *testing.T) {
	pol := &policy.Policy{
		ID:      "pol-nightly",
		Name:    "nightly-report",
		Enabled: true,
		Scopes:  globalScope(),
		Triggers: []policy.TriggerSpec{
			{Kind: policy.TriggerSchedule, Cron: "0 2 * * *"},
			{Kind: policy.TriggerEvent, Event: "cognate.created"},
		},
		Effect:    policy.EffectDeny,
		RiskLevel: policy.RiskLow,
	}
	ev := newTestEvaluator(t, nil, pol)

	decision, err := ev.Evaluate(context.Background(), ProposedAction{Type: "deploy"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.Effect != EffectAllow {
		t.Errorf("Effect = %q, want %q", decision.Effect, EffectAllow)
	}
}

func TestEvaluate_ContextCancellation(t *testing.T) {
	ev := newTestEvaluator(t, nil, approvalPolicy("pol-1", "gate", policy.RiskLow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ev.Evaluate(ctx, ProposedAction{Type: "deploy"})
	if err == nil {
		t.Fatal("Evaluate() error = nil, want context error")
	}
}

func TestNewEvaluator_RequiresSource(t *testing.T) {
	if _, err := NewEvaluator(nil, nil, quietLogger()); err == nil {
		t.Fatal("NewEvaluator(nil source) error = nil, want error")
	}
}
