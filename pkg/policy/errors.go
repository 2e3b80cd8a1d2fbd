package policy

import (
	"fmt"
	"strings"
)

// LoadError reports a file system problem while loading policy documents:
// missing files, permission failures, size or encoding violations.
type LoadError struct {
	// FilePath is the path that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy file %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy file %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ValidationError reports an invalid policy document: unknown enum values,
// threshold triggers missing bounds, approval policies without approvers.
type ValidationError struct {
	// PolicyID identifies the policy that failed validation
	PolicyID string

	// FieldPath points at the failing field (e.g. "triggers[0].operator")
	FieldPath string

	// Message describes the validation error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := []string{"validation error"}

	if e.PolicyID != "" {
		parts = append(parts, fmt.Sprintf("in policy %q", e.PolicyID))
	}
	if e.FieldPath != "" {
		parts = append(parts, fmt.Sprintf("at %s", e.FieldPath))
	}
	parts = append(parts, e.Message)

	return strings.Join(parts, " ")
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// StoreError reports a registry operation failure.
type StoreError struct {
	// PolicyID identifies the policy involved
	PolicyID string

	// Operation is the operation that failed (e.g. "put", "replace")
	Operation string

	// Message describes the error
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.PolicyID != "" {
		return fmt.Sprintf("policy store error for %q during %s: %s", e.PolicyID, e.Operation, e.Message)
	}
	return fmt.Sprintf("policy store error during %s: %s", e.Operation, e.Message)
}

// ErrorList accumulates errors across multi-file loads so one bad document
// does not hide the rest.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Add adds an error to the list. Nil errors are ignored.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil for an empty list, the single error when there is one,
// or the list itself otherwise.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return e
}
