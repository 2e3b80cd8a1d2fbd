package ast

// Visitor is implemented by passes that traverse a rule-set
// (validation, analysis, collection).
type Visitor interface {
	VisitRuleSet(*RuleSet) error
	VisitRule(*Rule) error
	VisitTrigger(*Trigger) error
	VisitCondition(*Condition) error
	VisitAction(*Action) error
	VisitValue(*Value) error
}

// Walk traverses the rule-set depth-first in authored order and calls the
// visitor for each node. It stops at the first error.
func Walk(rs *RuleSet, visitor Visitor) error {
	if err := visitor.VisitRuleSet(rs); err != nil {
		return err
	}

	for _, rule := range rs.Rules {
		if err := visitor.VisitRule(rule); err != nil {
			return err
		}

		if rule.Trigger != nil {
			if err := visitor.VisitTrigger(rule.Trigger); err != nil {
				return err
			}
			for _, v := range rule.Trigger.Config {
				if err := visitor.VisitValue(v); err != nil {
					return err
				}
			}
		}

		for _, cond := range rule.Conditions {
			if err := visitor.VisitCondition(cond); err != nil {
				return err
			}
			if cond.Value != nil {
				if err := visitor.VisitValue(cond.Value); err != nil {
					return err
				}
			}
		}

		for _, action := range append(append([]*Action{}, rule.Then...), rule.Else...) {
			if err := visitor.VisitAction(action); err != nil {
				return err
			}
			for _, v := range action.Config {
				if err := visitor.VisitValue(v); err != nil {
					return err
				}
			}
		}
	}

	return nil
}
