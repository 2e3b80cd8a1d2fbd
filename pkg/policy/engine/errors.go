package engine

import (
	"fmt"
)

// ConfigurationError reports a policy whose trigger cannot be evaluated:
// an unknown operator, an undefined metric, or an invalid pattern. The
// evaluator logs it and treats the policy as non-matching so one broken
// policy cannot take the whole evaluation down.
type ConfigurationError struct {
	// PolicyID identifies the broken policy
	PolicyID string

	// Detail describes what could not be evaluated
	Detail string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("policy %q configuration error: %s: %v", e.PolicyID, e.Detail, e.Cause)
	}
	return fmt.Sprintf("policy %q configuration error: %s", e.PolicyID, e.Detail)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}
