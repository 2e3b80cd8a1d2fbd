package ast

// Operator is a comparison operator in a rule condition.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorMatches     Operator = "matches" // Regex match
	OperatorExists      Operator = "exists"
	OperatorNotExists   Operator = "not_exists"
)

// Operators lists every known operator, in documentation order.
var Operators = []Operator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorNotContains,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorMatches,
	OperatorExists,
	OperatorNotExists,
}

// IsValid reports whether the operator is part of the known set.
func (o Operator) IsValid() bool {
	for _, op := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// TakesValue reports whether the operator compares against a value.
// exists and not_exists test field presence only.
func (o Operator) TakesValue() bool {
	return o != OperatorExists && o != OperatorNotExists
}

// Condition is a single field/operator/value predicate.
// Fields are namespaced paths into the trigger payload, for example
// "message.sender" or "event.amount".
type Condition struct {
	Field    string   // Namespaced field path
	Operator Operator // Comparison operator
	Value    *Value   // Comparison value (nil for exists/not_exists)
	Location Location // Source location
}
