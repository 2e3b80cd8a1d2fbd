package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
	"github.com/jaretmartin/symtex/pkg/sop/diag"
)

// builder lowers intermediate YAML structures into the typed model.
// It normalizes enum case, assigns IDs where the document omits them, and
// accumulates problems instead of stopping at the first one.
type builder struct {
	sourcePath string
	diags      *diag.List
}

// newBuilder creates a builder for the given source document.
func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		diags:      diag.NewList(),
	}
}

// buildRuleSet lowers a yamlRuleSet into an ast.RuleSet.
// ruleLocs carries per-rule source locations when the node tree provided them.
func (b *builder) buildRuleSet(yrs *yamlRuleSet, ruleLocs []ast.Location) (*ast.RuleSet, error) {
	docLoc := ast.Location{File: b.sourcePath, Line: 1, Column: 1}

	rs := &ast.RuleSet{
		ID:          orNewID(yrs.ID),
		Name:        yrs.Name,
		Description: yrs.Description,
		Version:     yrs.Version,
		Status:      ast.Status(strings.ToLower(yrs.Status)),
		Priority:    yrs.Priority,
		Category:    yrs.Category,
		Tags:        yrs.Tags,
		Rules:       make([]*ast.Rule, 0, len(yrs.Rules)),
		SourceFile:  b.sourcePath,
		Location:    docLoc,
	}

	if rs.Status == "" {
		rs.Status = ast.StatusDraft
	}
	if rs.Version == 0 {
		rs.Version = 1
	}

	if yrs.Created != "" {
		if t, err := time.Parse(time.RFC3339, yrs.Created); err == nil {
			rs.CreatedAt = t.UTC()
		}
	}
	if yrs.Updated != "" {
		if t, err := time.Parse(time.RFC3339, yrs.Updated); err == nil {
			rs.UpdatedAt = t.UTC()
		}
	}

	for i := range yrs.Rules {
		loc := docLoc
		if i < len(ruleLocs) {
			loc = ruleLocs[i]
		}

		rule, err := b.buildRule(&yrs.Rules[i], i, loc)
		if err != nil {
			b.diags.AddError(diag.KindStructural,
				fmt.Sprintf("invalid rule at index %d: %v", i, err),
				fmt.Sprintf("rules[%d]", i), loc)
			continue
		}
		rs.Rules = append(rs.Rules, rule)
	}

	if b.diags.HasErrors() {
		return nil, b.diags
	}

	return rs, nil
}

// buildRule lowers a yamlRule. The rule's order defaults to its authored
// position (1-based) when the document omits it.
func (b *builder) buildRule(yr *yamlRule, index int, loc ast.Location) (*ast.Rule, error) {
	rule := &ast.Rule{
		ID:          orNewID(yr.ID),
		Name:        yr.Name,
		Description: yr.Description,
		Enabled:     true,
		Order:       index + 1,
		Conditions:  make([]*ast.Condition, 0, len(yr.Conditions)),
		Then:        make([]*ast.Action, 0, len(yr.Then)),
		Location:    loc,
	}

	if yr.Enabled != nil {
		rule.Enabled = *yr.Enabled
	}
	if yr.Order != nil {
		rule.Order = *yr.Order
	}

	if yr.Trigger != nil {
		trigger, err := b.buildTrigger(yr.Trigger, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger: %w", err)
		}
		rule.Trigger = trigger
	}

	for i := range yr.Conditions {
		cond, err := b.buildCondition(&yr.Conditions[i], loc)
		if err != nil {
			return nil, fmt.Errorf("invalid condition at index %d: %w", i, err)
		}
		rule.Conditions = append(rule.Conditions, cond)
	}

	for i, ya := range yr.Then {
		action, err := b.buildAction(ya, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid then action at index %d: %w", i, err)
		}
		rule.Then = append(rule.Then, action)
	}

	for i, ya := range yr.Else {
		action, err := b.buildAction(ya, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid else action at index %d: %w", i, err)
		}
		rule.Else = append(rule.Else, action)
	}

	return rule, nil
}

// buildTrigger lowers a trigger map. The "kind" key selects the variant;
// every other key becomes kind-specific config.
func (b *builder) buildTrigger(m map[string]interface{}, loc ast.Location) (*ast.Trigger, error) {
	kindRaw, ok := m["kind"]
	if !ok {
		return nil, fmt.Errorf("missing 'kind'")
	}
	kind, ok := kindRaw.(string)
	if !ok {
		return nil, fmt.Errorf("'kind' must be a string, got %T", kindRaw)
	}

	trigger := &ast.Trigger{
		Kind:     ast.TriggerKind(strings.ToLower(kind)),
		Config:   make(map[string]*ast.Value),
		Location: loc,
	}

	for key, value := range m {
		if key == "kind" {
			continue
		}
		v, err := b.buildValue(value, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid config %q: %w", key, err)
		}
		trigger.Config[key] = v
	}

	return trigger, nil
}

// buildCondition lowers a condition predicate. A missing field or unknown
// operator is left for the validator so all findings surface together.
func (b *builder) buildCondition(yc *yamlCondition, loc ast.Location) (*ast.Condition, error) {
	cond := &ast.Condition{
		Field:    yc.Field,
		Operator: ast.Operator(strings.ToLower(yc.Operator)),
		Location: loc,
	}

	if yc.Value != nil {
		v, err := b.buildValue(yc.Value, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		cond.Value = v
	}

	return cond, nil
}

// buildAction lowers an action map. The "type" key selects the variant and
// "label" the display name; every other key becomes config.
func (b *builder) buildAction(m map[string]interface{}, loc ast.Location) (*ast.Action, error) {
	action := &ast.Action{
		Config:   make(map[string]*ast.Value),
		Location: loc,
	}

	for key, value := range m {
		switch key {
		case "type":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("'type' must be a string, got %T", value)
			}
			action.Type = ast.ActionType(strings.ToLower(s))
		case "label":
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("'label' must be a string, got %T", value)
			}
			action.Label = s
		default:
			v, err := b.buildValue(value, loc)
			if err != nil {
				return nil, fmt.Errorf("invalid config %q: %w", key, err)
			}
			action.Config[key] = v
		}
	}

	return action, nil
}

// buildValue lowers a raw YAML value into a typed literal.
// All numbers normalize to float64.
func (b *builder) buildValue(value interface{}, loc ast.Location) (*ast.Value, error) {
	if value == nil {
		return &ast.Value{Type: ast.ValueNull, Location: loc}, nil
	}

	switch v := value.(type) {
	case string:
		return &ast.Value{Type: ast.ValueString, Raw: v, Location: loc}, nil

	case int:
		return &ast.Value{Type: ast.ValueNumber, Raw: float64(v), Location: loc}, nil
	case int64:
		return &ast.Value{Type: ast.ValueNumber, Raw: float64(v), Location: loc}, nil
	case float64:
		return &ast.Value{Type: ast.ValueNumber, Raw: v, Location: loc}, nil

	case bool:
		return &ast.Value{Type: ast.ValueBoolean, Raw: v, Location: loc}, nil

	case []interface{}:
		return &ast.Value{Type: ast.ValueArray, Raw: v, Location: loc}, nil

	case map[string]interface{}:
		return &ast.Value{Type: ast.ValueObject, Raw: v, Location: loc}, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %T", value)
	}
}

// orNewID returns the given ID, or a fresh uuid when the document omitted it.
func orNewID(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
