package ast

import (
	"testing"
)

func TestRuleSet_EnabledRules(t *testing.T) {
	rs := &RuleSet{
		Name: "test-set",
		Rules: []*Rule{
			{Name: "third", Enabled: true, Order: 3},
			{Name: "disabled", Enabled: false, Order: 1},
			{Name: "first", Enabled: true, Order: 1},
			{Name: "second", Enabled: true, Order: 2},
		},
	}

	enabled := rs.EnabledRules()

	if len(enabled) != 3 {
		t.Fatalf("EnabledRules() returned %d rules, want 3", len(enabled))
	}

	want := []string{"first", "second", "third"}
	for i, rule := range enabled {
		if rule.Name != want[i] {
			t.Errorf("EnabledRules()[%d] = %q, want %q", i, rule.Name, want[i])
		}
	}
}

func TestRuleSet_EnabledRules_StableForEqualOrders(t *testing.T) {
	rs := &RuleSet{
		Rules: []*Rule{
			{Name: "a", Enabled: true, Order: 5},
			{Name: "b", Enabled: true, Order: 5},
			{Name: "c", Enabled: true, Order: 5},
		},
	}

	enabled := rs.EnabledRules()
	want := []string{"a", "b", "c"}
	for i, rule := range enabled {
		if rule.Name != want[i] {
			t.Errorf("EnabledRules()[%d] = %q, want %q (authored sequence)", i, rule.Name, want[i])
		}
	}
}

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusDraft, true},
		{StatusActive, true},
		{StatusArchived, true},
		{Status("retired"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsValid(); got != tt.want {
			t.Errorf("Status(%q).IsValid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestOperator_TakesValue(t *testing.T) {
	tests := []struct {
		op   Operator
		want bool
	}{
		{OperatorEquals, true},
		{OperatorNotEquals, true},
		{OperatorContains, true},
		{OperatorNotContains, true},
		{OperatorGreaterThan, true},
		{OperatorLessThan, true},
		{OperatorMatches, true},
		{OperatorExists, false},
		{OperatorNotExists, false},
	}

	for _, tt := range tests {
		if got := tt.op.TakesValue(); got != tt.want {
			t.Errorf("Operator(%q).TakesValue() = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestTriggerKind_IsValid(t *testing.T) {
	for _, kind := range []TriggerKind{TriggerMessage, TriggerEvent, TriggerSchedule, TriggerCondition, TriggerManual} {
		if !kind.IsValid() {
			t.Errorf("TriggerKind(%q).IsValid() = false, want true", kind)
		}
	}
	if TriggerKind("webhook").IsValid() {
		t.Error("TriggerKind(\"webhook\").IsValid() = true, want false")
	}
}

func TestAction_MissingConfig(t *testing.T) {
	tests := []struct {
		name   string
		action *Action
		want   int
	}{
		{
			name: "respond with channel",
			action: &Action{
				Type:   ActionRespond,
				Config: map[string]*Value{"channel": {Type: ValueString, Raw: "email"}},
			},
			want: 0,
		},
		{
			name:   "respond without channel",
			action: &Action{Type: ActionRespond, Config: map[string]*Value{}},
			want:   1,
		},
		{
			name:   "log needs nothing",
			action: &Action{Type: ActionLog, Config: map[string]*Value{}},
			want:   0,
		},
		{
			name:   "execute without command",
			action: &Action{Type: ActionExecute, Config: map[string]*Value{}},
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.MissingConfig(); len(got) != tt.want {
				t.Errorf("MissingConfig() = %v, want %d keys", got, tt.want)
			}
		})
	}
}

func TestRule_ActionsByType(t *testing.T) {
	rule := &Rule{
		Then: []*Action{
			{Type: ActionRespond},
			{Type: ActionLog},
		},
		Else: []*Action{
			{Type: ActionLog},
		},
	}

	if got := len(rule.ActionsByType(ActionLog)); got != 2 {
		t.Errorf("ActionsByType(log) returned %d actions, want 2 (both branches)", got)
	}
	if !rule.HasActionType(ActionRespond) {
		t.Error("HasActionType(respond) = false, want true")
	}
	if rule.HasActionType(ActionWait) {
		t.Error("HasActionType(wait) = true, want false")
	}
}
