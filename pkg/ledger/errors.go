package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entry ID does not exist.
var ErrNotFound = errors.New("ledger entry not found")

// IntegrityError reports the first point where the hash chain breaks:
// either a recomputed content hash disagrees with the stored one, or an
// entry's previous-hash link does not match its predecessor.
type IntegrityError struct {
	// Seq is the sequence number of the entry that failed.
	Seq int64
	// Field is "content_hash", "previous_hash" or "seq".
	Field string
	// Expected is the value the chain demands.
	Expected string
	// Actual is the value found in storage.
	Actual string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity violation at seq %d: %s should be %s, found %s",
		e.Seq, e.Field, e.Expected, e.Actual)
}

// NewIntegrityError creates an IntegrityError.
func NewIntegrityError(seq int64, field, expected, actual string) *IntegrityError {
	return &IntegrityError{Seq: seq, Field: field, Expected: expected, Actual: actual}
}

// ValidationError reports a malformed draft entry or query. Queries fail
// closed: nothing is executed when validation fails.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps failures from a ledger backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
