package compiler

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"

	"github.com/jaretmartin/symtex/pkg/sop/ast"
)

// PriorityStep is the spacing between consecutive rule priorities.
// Priorities are the rule order times this step, so a rule can be inserted
// between two existing ones without renumbering the document.
const PriorityStep = 10

// operatorSymbols maps each condition operator to its script symbol.
// contains, not_contains, and matches share one symbol; the rendered text
// cannot round-trip back into the exact source operator.
var operatorSymbols = map[ast.Operator]string{
	ast.OperatorEquals:      "==",
	ast.OperatorNotEquals:   "!=",
	ast.OperatorContains:    "~",
	ast.OperatorNotContains: "~",
	ast.OperatorMatches:     "~",
	ast.OperatorGreaterThan: ">",
	ast.OperatorLessThan:    "<",
	ast.OperatorExists:      "exists",
	ast.OperatorNotExists:   "not exists",
}

// Compile lowers a rule-set into a script. Disabled rules are skipped and
// enabled rules compile in ascending order. A rule-set with zero enabled
// rules compiles to an empty script, not an error.
//
// Compilation is pure data transformation and never aborts mid-set: a
// construct the script language cannot express (unknown operator, missing
// trigger, unrenderable value) degrades to an empty clause, call, or
// trigger line, and the remaining rules still compile. The validator is
// where such constructs are reported; here they must not suppress the
// healthy part of the document. The only error is a nil rule-set.
func Compile(rs *ast.RuleSet) (*Script, error) {
	if rs == nil {
		return nil, errors.New("compiler: nil rule-set")
	}

	script := &Script{
		RuleSetID: rs.ID,
		Name:      rs.Name,
		Version:   rs.Version,
	}

	for _, rule := range rs.EnabledRules() {
		script.Blocks = append(script.Blocks, compileRule(rule))
	}

	return script, nil
}

// compileRule lowers one rule into a block. A missing trigger leaves the
// block's trigger empty rather than dropping the rule.
func compileRule(rule *ast.Rule) *Block {
	block := &Block{
		Label:    rule.Name,
		Priority: rule.Order * PriorityStep,
	}
	if rule.Trigger != nil {
		block.Trigger = string(rule.Trigger.Kind)
	}

	for _, cond := range rule.Conditions {
		block.Clauses = append(block.Clauses, compileClause(cond))
	}
	for _, action := range rule.Then {
		block.Then = append(block.Then, compileCall(action))
	}
	for _, action := range rule.Else {
		block.Else = append(block.Else, compileCall(action))
	}

	return block
}

// compileClause lowers one condition. Presence operators take no value.
// An operator with no script symbol yields the empty clause.
func compileClause(cond *ast.Condition) Clause {
	symbol, ok := operatorSymbols[cond.Operator]
	if !ok {
		return Clause{}
	}

	clause := Clause{
		Field:  cond.Field,
		Symbol: symbol,
	}
	if cond.Operator.TakesValue() {
		clause.Value = renderValue(cond.Value)
	}

	return clause
}

// compileCall lowers one action. Config keys sort alphabetically so the
// rendered call text is deterministic. An unknown action type yields the
// empty call.
func compileCall(action *ast.Action) Call {
	if !action.Type.IsValid() {
		return Call{}
	}

	call := Call{Action: string(action.Type)}

	keys := make([]string, 0, len(action.Config))
	for key := range action.Config {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		call.Args = append(call.Args, Arg{Key: key, Value: renderValue(action.Config[key])})
	}

	return call
}

// renderValue renders a literal for script text. Numbers and booleans are
// bare, strings are double-quoted; arrays and objects render as compact
// JSON, which is deterministic because encoding/json sorts map keys.
// Anything unrenderable degrades to null.
func renderValue(v *ast.Value) string {
	if v == nil {
		return "null"
	}

	switch v.Type {
	case ast.ValueString:
		return strconv.Quote(v.AsString())

	case ast.ValueNumber:
		return strconv.FormatFloat(v.AsNumber(), 'f', -1, 64)

	case ast.ValueBoolean:
		return strconv.FormatBool(v.AsBool())

	case ast.ValueNull:
		return "null"

	case ast.ValueArray, ast.ValueObject:
		data, err := json.Marshal(v.Raw)
		if err != nil {
			return "null"
		}
		return string(data)

	default:
		return "null"
	}
}
