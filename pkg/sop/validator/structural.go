package validator

import (
	"fmt"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

// StructuralValidator checks that the document shape is complete:
// required fields are present and rules are well formed enough to compile.
type StructuralValidator struct {
	findings *diag.List
}

// NewStructuralValidator creates a structural validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{}
}

// Validate performs structural validation and returns all findings.
func (v *StructuralValidator) Validate(rs *ast.RuleSet) *diag.List {
	v.findings = diag.NewList()

	v.validateMetadata(rs)
	v.validateRules(rs)

	return v.findings
}

// validateMetadata checks the rule-set header fields.
func (v *StructuralValidator) validateMetadata(rs *ast.RuleSet) {
	if rs.Name == "" {
		v.findings.AddErrorWithSuggestion(
			diag.KindStructural,
			"missing required field 'name'",
			"name", rs.Location,
			diag.SuggestMissingField("name", `"incident-triage"`),
		)
	}

	if len(rs.Rules) == 0 {
		v.findings.AddErrorWithSuggestion(
			diag.KindStructural,
			"rule-set has no rules",
			"rules", rs.Location,
			"add a 'rules' section with at least one rule",
		)
	}

	if rs.Version < 1 {
		v.findings.AddError(
			diag.KindStructural,
			fmt.Sprintf("version must be >= 1, got %d", rs.Version),
			"version", rs.Location,
		)
	}
}

// validateRules checks every rule for the fields compilation depends on.
func (v *StructuralValidator) validateRules(rs *ast.RuleSet) {
	names := make(map[string]bool)

	for i, rule := range rs.Rules {
		path := fmt.Sprintf("rules[%d]", i)

		if rule.Name == "" {
			v.findings.AddErrorWithSuggestion(
				diag.KindStructural,
				fmt.Sprintf("rule at index %d is missing required field 'name'", i),
				path+".name", rule.Location,
				"add a unique name for this rule",
			)
		} else {
			if names[rule.Name] {
				v.findings.AddError(
					diag.KindStructural,
					fmt.Sprintf("duplicate rule name %q", rule.Name),
					path+".name", rule.Location,
				)
			}
			names[rule.Name] = true
		}

		if rule.Trigger == nil {
			v.findings.AddErrorWithSuggestion(
				diag.KindStructural,
				fmt.Sprintf("rule %q has no trigger", rule.Name),
				path+".trigger", rule.Location,
				"add a 'trigger' with a kind (message, event, schedule, condition, manual)",
			)
		}

		if len(rule.Then) == 0 {
			v.findings.AddErrorWithSuggestion(
				diag.KindStructural,
				fmt.Sprintf("rule %q has no actions", rule.Name),
				path+".then", rule.Location,
				"add at least one action under 'then'",
			)
		}

		for j, cond := range rule.Conditions {
			v.validateCondition(cond, rule.Name, fmt.Sprintf("%s.conditions[%d]", path, j))
		}
	}
}

// validateCondition checks a single condition's shape.
// Operator membership is the semantic pass's concern.
func (v *StructuralValidator) validateCondition(cond *ast.Condition, ruleName, path string) {
	if cond.Field == "" {
		v.findings.AddError(
			diag.KindStructural,
			fmt.Sprintf("rule %q has a condition with missing 'field'", ruleName),
			path+".field", cond.Location,
		)
	}

	if cond.Operator == "" {
		v.findings.AddError(
			diag.KindStructural,
			fmt.Sprintf("rule %q has a condition with missing 'operator'", ruleName),
			path+".operator", cond.Location,
		)
		return
	}

	// Presence checks only make sense for operators the semantic pass will accept.
	if !cond.Operator.IsValid() {
		return
	}

	if cond.Operator.TakesValue() && cond.Value == nil {
		v.findings.AddError(
			diag.KindStructural,
			fmt.Sprintf("rule %q has a %q condition with missing 'value'", ruleName, cond.Operator),
			path+".value", cond.Location,
		)
	}

	if !cond.Operator.TakesValue() && cond.Value != nil {
		v.findings.AddWarning(
			diag.KindStructural,
			fmt.Sprintf("rule %q has a %q condition with a value; presence operators ignore it", ruleName, cond.Operator),
			path+".value", cond.Location,
		)
	}
}
