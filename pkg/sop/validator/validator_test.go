package validator

import (
	"testing"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

// validRuleSet builds a rule-set that passes both validation passes.
// Tests mutate the result to introduce one defect at a time.
func validRuleSet() *ast.RuleSet {
	return &ast.RuleSet{
		ID:      "rs-1",
		Name:    "incident-triage",
		Version: 1,
		Status:  ast.StatusActive,
		Rules: []*ast.Rule{
			{
				ID:      "r-1",
				Name:    "vip-fast-lane",
				Enabled: true,
				Order:   1,
				Trigger: &ast.Trigger{
					Kind:   ast.TriggerMessage,
					Config: map[string]*ast.Value{},
				},
				Conditions: []*ast.Condition{
					{
						Field:    "message.sender",
						Operator: ast.OperatorEquals,
						Value:    &ast.Value{Type: ast.ValueString, Raw: "vip@acme.com"},
					},
				},
				Then: []*ast.Action{
					{
						Type: ast.ActionRespond,
						Config: map[string]*ast.Value{
							"channel": {Type: ast.ValueString, Raw: "email"},
						},
					},
				},
			},
			{
				ID:      "r-2",
				Name:    "catch-all",
				Enabled: true,
				Order:   2,
				Trigger: &ast.Trigger{
					Kind:   ast.TriggerManual,
					Config: map[string]*ast.Value{},
				},
				Then: []*ast.Action{
					{Type: ast.ActionLog, Config: map[string]*ast.Value{}},
				},
			},
		},
	}
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(rs *ast.RuleSet)
		wantErrors   int
		wantWarnings int
		wantKind     diag.Kind
	}{
		{
			name:   "valid rule-set",
			mutate: func(rs *ast.RuleSet) {},
		},
		{
			name: "missing rule-set name",
			mutate: func(rs *ast.RuleSet) {
				rs.Name = ""
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "no rules",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules = nil
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "rule missing name",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Name = ""
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "duplicate rule names",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[1].Name = rs.Rules[0].Name
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "rule without trigger",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Trigger = nil
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "rule without actions",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Then = nil
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "condition missing field",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Conditions[0].Field = ""
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "condition missing value",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Conditions[0].Value = nil
			},
			wantErrors: 1,
			wantKind:   diag.KindStructural,
		},
		{
			name: "presence operator with value warns",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Conditions[0].Operator = ast.OperatorExists
			},
			wantWarnings: 1,
			wantKind:     diag.KindStructural,
		},
		{
			name: "unknown status",
			mutate: func(rs *ast.RuleSet) {
				rs.Status = "activated"
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "unknown trigger kind",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Trigger.Kind = "webhook"
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "unknown operator",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Conditions[0].Operator = "equal"
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "unknown action type",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Then[0].Type = "reply"
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "action missing required config",
			mutate: func(rs *ast.RuleSet) {
				delete(rs.Rules[0].Then[0].Config, "channel")
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "event trigger without event config",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Trigger.Kind = ast.TriggerEvent
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "schedule trigger without cron config",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[0].Trigger.Kind = ast.TriggerSchedule
			},
			wantErrors: 1,
			wantKind:   diag.KindSemantic,
		},
		{
			name: "duplicate enabled orders warn",
			mutate: func(rs *ast.RuleSet) {
				rs.Rules[1].Order = rs.Rules[0].Order
			},
			wantWarnings: 1,
			wantKind:     diag.KindSemantic,
		},
		{
			name: "archived with enabled rules warns",
			mutate: func(rs *ast.RuleSet) {
				rs.Status = ast.StatusArchived
			},
			wantWarnings: 1,
			wantKind:     diag.KindSemantic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := validRuleSet()
			tt.mutate(rs)

			findings := NewValidator().Validate(rs)

			if got := findings.ErrorCount(); got != tt.wantErrors {
				t.Errorf("ErrorCount() = %d, want %d\n%s", got, tt.wantErrors, findings.Error())
			}
			if got := findings.WarningCount(); got != tt.wantWarnings {
				t.Errorf("WarningCount() = %d, want %d\n%s", got, tt.wantWarnings, findings.Error())
			}
			if tt.wantKind != "" && findings.Count() > 0 && !findings.HasKind(tt.wantKind) {
				t.Errorf("findings missing kind %q:\n%s", tt.wantKind, findings.Error())
			}
		})
	}
}

func TestValidator_AccumulatesAllFindings(t *testing.T) {
	rs := validRuleSet()
	rs.Name = ""
	rs.Rules[0].Conditions[0].Field = ""
	rs.Rules[1].Then = nil

	findings := NewValidator().Validate(rs)

	if got := findings.ErrorCount(); got != 3 {
		t.Errorf("ErrorCount() = %d, want 3 accumulated errors\n%s", got, findings.Error())
	}
}

func TestValidator_SemanticSkippedOnStructuralErrors(t *testing.T) {
	rs := validRuleSet()
	rs.Name = ""
	// These would surface as semantic findings on a structurally clean set.
	rs.Rules[0].Trigger.Kind = "webhook"
	rs.Rules[0].Then[0].Type = "reply"

	findings := NewValidator().Validate(rs)

	if findings.HasKind(diag.KindSemantic) {
		t.Errorf("semantic findings surfaced despite structural errors:\n%s", findings.Error())
	}
	if !findings.HasKind(diag.KindStructural) {
		t.Error("expected structural findings")
	}
}

func TestValidator_UnknownOperatorSuggestsClosest(t *testing.T) {
	rs := validRuleSet()
	rs.Rules[0].Conditions[0].Operator = "equal"

	findings := NewValidator().Validate(rs)

	semantic := findings.ByKind(diag.KindSemantic)
	if len(semantic) != 1 {
		t.Fatalf("semantic findings = %d, want 1", len(semantic))
	}
	if semantic[0].Suggestion == "" {
		t.Error("unknown operator diagnostic carries no suggestion")
	}
}

func TestValidator_PassesRunIndependently(t *testing.T) {
	rs := validRuleSet()
	rs.Rules[0].Trigger.Kind = "webhook"

	v := NewValidator()

	if structural := v.ValidateStructural(rs); structural.HasErrors() {
		t.Errorf("structural pass flagged a semantically broken rule-set:\n%s", structural.Error())
	}
	if semantic := v.ValidateSemantic(rs); !semantic.HasErrors() {
		t.Error("semantic pass missed an unknown trigger kind")
	}
}
