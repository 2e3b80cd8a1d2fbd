package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/jaretmartin/symtex/pkg/policy"
)

// matchPredicate evaluates a field/operator/value predicate against the
// action context. A missing field matches only not_exists; unknown
// operators surface as errors for the caller to wrap.
func matchPredicate(p policy.Predicate, action ProposedAction) (bool, error) {
	actual, found := lookupField(p.Field, action.Context)

	switch p.Operator {
	case "exists":
		return found, nil
	case "not_exists":
		return !found, nil
	}

	if !found {
		return false, nil
	}

	switch p.Operator {
	case "equals":
		return valuesEqual(actual, p.Value), nil

	case "not_equals":
		return !valuesEqual(actual, p.Value), nil

	case "contains":
		return evaluateContains(actual, p.Value)

	case "not_contains":
		matched, err := evaluateContains(actual, p.Value)
		return !matched, err

	case "matches":
		return evaluateMatches(actual, p.Value)

	case "greater_than":
		actualNum, expectedNum, err := toNumericPair(actual, p.Value)
		if err != nil {
			return false, err
		}
		return actualNum > expectedNum, nil

	case "less_than":
		actualNum, expectedNum, err := toNumericPair(actual, p.Value)
		if err != nil {
			return false, err
		}
		return actualNum < expectedNum, nil

	default:
		return false, fmt.Errorf("unknown operator %q", p.Operator)
	}
}

// lookupField navigates a dotted path through the context map. A leading
// "context" segment is accepted and skipped, so "context.environment" and
// "environment" address the same field.
func lookupField(path string, context map[string]interface{}) (interface{}, bool) {
	if path == "" || context == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	if segments[0] == "context" {
		segments = segments[1:]
		if len(segments) == 0 {
			return nil, false
		}
	}

	var current interface{} = context
	for _, segment := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// valuesEqual compares two values, treating numbers of any width as equal
// when their float64 forms agree.
func valuesEqual(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}

	actualNum, aErr := toFloat64(actual)
	expectedNum, eErr := toFloat64(expected)
	if aErr == nil && eErr == nil {
		return actualNum == expectedNum
	}

	return reflect.DeepEqual(actual, expected)
}

// evaluateContains checks substring containment for strings and element
// membership for slices.
func evaluateContains(actual, expected interface{}) (bool, error) {
	if s, ok := actual.(string); ok {
		sub, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("contains requires a string value, got %T", expected)
		}
		return strings.Contains(s, sub), nil
	}

	v := reflect.ValueOf(actual)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false, fmt.Errorf("contains requires a string or list field, got %T", actual)
	}
	for i := 0; i < v.Len(); i++ {
		if valuesEqual(v.Index(i).Interface(), expected) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateMatches checks a regular expression against a string field.
func evaluateMatches(actual, expected interface{}) (bool, error) {
	s, ok := actual.(string)
	if !ok {
		return false, fmt.Errorf("matches requires a string field, got %T", actual)
	}

	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("matches requires a string pattern, got %T", expected)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	return re.MatchString(s), nil
}

// compareThreshold applies a threshold operator to a metric value.
func compareThreshold(op policy.ThresholdOperator, value, bound, upper float64) (bool, error) {
	switch op {
	case policy.ThresholdLT:
		return value < bound, nil
	case policy.ThresholdLTE:
		return value <= bound, nil
	case policy.ThresholdGT:
		return value > bound, nil
	case policy.ThresholdGTE:
		return value >= bound, nil
	case policy.ThresholdEQ:
		return value == bound, nil
	case policy.ThresholdNEQ:
		return value != bound, nil
	case policy.ThresholdBetween:
		return value >= bound && value <= upper, nil
	default:
		return false, fmt.Errorf("unknown threshold operator %q", op)
	}
}

// toNumericPair converts both sides of a numeric comparison.
func toNumericPair(actual, expected interface{}) (float64, float64, error) {
	actualNum, err := toFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("field value is not numeric: %w", err)
	}
	expectedNum, err := toFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("comparison value is not numeric: %w", err)
	}
	return actualNum, expectedNum, nil
}

// toFloat64 converts any numeric type to float64.
func toFloat64(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
