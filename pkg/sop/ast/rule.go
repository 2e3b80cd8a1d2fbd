package ast

// Rule is a single entry in a rule-set.
// When the trigger fires and every condition holds, the Then actions run;
// otherwise the Else actions run (if any). Rules compile in ascending Order.
type Rule struct {
	ID          string       // Stable identifier (uuid, assigned if absent)
	Name        string       // Unique rule name within the rule-set
	Description string       // Human-readable description
	Enabled     bool         // Whether the rule participates in compilation (default: true)
	Order       int          // Position in the compiled script (lower runs first)
	Trigger     *Trigger     // What starts the rule
	Conditions  []*Condition // All must hold (AND semantics)
	Then        []*Action    // Actions when conditions hold
	Else        []*Action    // Actions when conditions fail (optional)
	Location    Location     // Source location
}

// HasConditions reports whether the rule declares any conditions.
func (r *Rule) HasConditions() bool {
	return len(r.Conditions) > 0
}

// HasElse reports whether the rule declares an else branch.
func (r *Rule) HasElse() bool {
	return len(r.Else) > 0
}

// ActionsByType returns all actions of the given type across both branches.
func (r *Rule) ActionsByType(actionType ActionType) []*Action {
	var result []*Action
	for _, action := range r.Then {
		if action.Type == actionType {
			result = append(result, action)
		}
	}
	for _, action := range r.Else {
		if action.Type == actionType {
			result = append(result, action)
		}
	}
	return result
}

// HasActionType reports whether either branch contains an action of the given type.
func (r *Rule) HasActionType(actionType ActionType) bool {
	return len(r.ActionsByType(actionType)) > 0
}
