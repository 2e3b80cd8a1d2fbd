package ast

// ValueType is the type of a literal in a rule document.
// Values are strongly typed with no automatic coercion.
type ValueType string

const (
	ValueString  ValueType = "string"
	ValueNumber  ValueType = "number"
	ValueBoolean ValueType = "boolean"
	ValueArray   ValueType = "array"
	ValueObject  ValueType = "object"
	ValueNull    ValueType = "null"
)

// Value is a typed literal used in conditions and action config.
type Value struct {
	Type     ValueType   // Type of the value
	Raw      interface{} // Underlying value (nil for null; float64 for numbers)
	Location Location    // Source location
}

// IsNumber reports whether the value is numeric.
func (v *Value) IsNumber() bool {
	return v.Type == ValueNumber
}

// AsString returns the string form for string values, "" otherwise.
func (v *Value) AsString() string {
	if v.Type == ValueString {
		if s, ok := v.Raw.(string); ok {
			return s
		}
	}
	return ""
}

// AsNumber returns the numeric form for number values, 0 otherwise.
func (v *Value) AsNumber() float64 {
	if v.Type == ValueNumber {
		if n, ok := v.Raw.(float64); ok {
			return n
		}
	}
	return 0
}

// AsBool returns the boolean form for boolean values, false otherwise.
func (v *Value) AsBool() bool {
	if v.Type == ValueBoolean {
		if b, ok := v.Raw.(bool); ok {
			return b
		}
	}
	return false
}
