package validator

import (
	"fmt"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

// requiredTriggerConfig names the config keys each trigger kind cannot omit.
var requiredTriggerConfig = map[ast.TriggerKind][]string{
	ast.TriggerEvent:    {"event"},
	ast.TriggerSchedule: {"cron"},
}

// SemanticValidator checks enum membership and content consistency.
// It walks the rule-set with ast.Walk and accumulates findings; visitor
// methods never abort the traversal.
type SemanticValidator struct {
	findings *diag.List

	// Traversal state
	ruleIdx   int
	condIdx   int
	actionIdx int
	ruleName  string
}

// NewSemanticValidator creates a semantic validator.
func NewSemanticValidator() *SemanticValidator {
	return &SemanticValidator{}
}

// Validate performs semantic validation and returns all findings.
func (v *SemanticValidator) Validate(rs *ast.RuleSet) *diag.List {
	v.findings = diag.NewList()
	v.ruleIdx = -1

	// Walk only fails when a visitor returns an error; ours never do.
	_ = ast.Walk(rs, v)

	return v.findings
}

// VisitRuleSet checks rule-set level consistency.
func (v *SemanticValidator) VisitRuleSet(rs *ast.RuleSet) error {
	if !rs.Status.IsValid() {
		v.findings.AddErrorWithSuggestion(
			diag.KindSemantic,
			fmt.Sprintf("unknown status %q", rs.Status),
			"status", rs.Location,
			diag.SuggestClosest(string(rs.Status), []string{
				string(ast.StatusDraft), string(ast.StatusActive), string(ast.StatusArchived),
			}),
		)
	}

	if rs.Status == ast.StatusArchived && rs.EnabledRuleCount() > 0 {
		v.findings.AddWarning(
			diag.KindSemantic,
			"archived rule-set still has enabled rules; they will not run",
			"status", rs.Location,
		)
	}

	orders := make(map[int]string)
	for _, rule := range rs.Rules {
		if !rule.Enabled {
			continue
		}
		if prev, ok := orders[rule.Order]; ok {
			v.findings.AddWarning(
				diag.KindSemantic,
				fmt.Sprintf("rules %q and %q share order %d; compilation keeps authored sequence", prev, rule.Name, rule.Order),
				"rules", rule.Location,
			)
			continue
		}
		orders[rule.Order] = rule.Name
	}

	return nil
}

// VisitRule tracks traversal position.
func (v *SemanticValidator) VisitRule(rule *ast.Rule) error {
	v.ruleIdx++
	v.condIdx = -1
	v.actionIdx = -1
	v.ruleName = rule.Name
	return nil
}

// VisitTrigger checks trigger kind membership and required config.
func (v *SemanticValidator) VisitTrigger(t *ast.Trigger) error {
	path := fmt.Sprintf("rules[%d].trigger", v.ruleIdx)

	if !t.Kind.IsValid() {
		v.findings.AddErrorWithSuggestion(
			diag.KindSemantic,
			fmt.Sprintf("rule %q has unknown trigger kind %q", v.ruleName, t.Kind),
			path+".kind", t.Location,
			diag.SuggestClosest(string(t.Kind), []string{
				string(ast.TriggerMessage), string(ast.TriggerEvent), string(ast.TriggerSchedule),
				string(ast.TriggerCondition), string(ast.TriggerManual),
			}),
		)
		return nil
	}

	for _, key := range requiredTriggerConfig[t.Kind] {
		if !t.HasConfig(key) {
			v.findings.AddError(
				diag.KindSemantic,
				fmt.Sprintf("rule %q has a %q trigger with missing config %q", v.ruleName, t.Kind, key),
				path+"."+key, t.Location,
			)
		}
	}

	return nil
}

// VisitCondition checks operator membership.
func (v *SemanticValidator) VisitCondition(cond *ast.Condition) error {
	v.condIdx++

	if cond.Operator != "" && !cond.Operator.IsValid() {
		valid := make([]string, len(ast.Operators))
		for i, op := range ast.Operators {
			valid[i] = string(op)
		}
		v.findings.AddErrorWithSuggestion(
			diag.KindSemantic,
			fmt.Sprintf("rule %q has unknown operator %q", v.ruleName, cond.Operator),
			fmt.Sprintf("rules[%d].conditions[%d].operator", v.ruleIdx, v.condIdx),
			cond.Location,
			diag.SuggestClosest(string(cond.Operator), valid),
		)
	}

	return nil
}

// VisitAction checks action type membership and required config keys.
func (v *SemanticValidator) VisitAction(action *ast.Action) error {
	v.actionIdx++
	path := fmt.Sprintf("rules[%d].actions[%d]", v.ruleIdx, v.actionIdx)

	if action.Type == "" {
		v.findings.AddError(
			diag.KindSemantic,
			fmt.Sprintf("rule %q has an action with missing 'type'", v.ruleName),
			path+".type", action.Location,
		)
		return nil
	}

	if !action.Type.IsValid() {
		valid := make([]string, len(ast.ActionTypes))
		for i, at := range ast.ActionTypes {
			valid[i] = string(at)
		}
		v.findings.AddErrorWithSuggestion(
			diag.KindSemantic,
			fmt.Sprintf("rule %q has unknown action type %q", v.ruleName, action.Type),
			path+".type", action.Location,
			diag.SuggestClosest(string(action.Type), valid),
		)
		return nil
	}

	for _, key := range action.MissingConfig() {
		v.findings.AddError(
			diag.KindSemantic,
			fmt.Sprintf("rule %q has a %q action with missing config %q", v.ruleName, action.Type, key),
			path+"."+key, action.Location,
		)
	}

	return nil
}

// VisitValue is part of the Visitor interface; literals carry no semantic rules.
func (v *SemanticValidator) VisitValue(*ast.Value) error {
	return nil
}
