package approval

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a request ID does not exist in the store.
var ErrNotFound = errors.New("approval request not found")

// StateTransitionError is returned when a transition is attempted on a
// request that is not in the expected state, typically because another
// decider got there first.
type StateTransitionError struct {
	RequestID string
	// Current is the state the request was actually in.
	Current Status
	// Attempted is the state the caller tried to reach. Empty when the
	// failed operation was not a status change, such as an escalation
	// bump on an already-decided request.
	Attempted Status
}

func (e *StateTransitionError) Error() string {
	if e.Attempted == "" {
		return fmt.Sprintf("approval request %s is %s and can no longer change", e.RequestID, e.Current)
	}
	return fmt.Sprintf("approval request %s is %s, cannot transition to %s", e.RequestID, e.Current, e.Attempted)
}

// NewStateTransitionError creates a StateTransitionError.
func NewStateTransitionError(requestID string, current, attempted Status) *StateTransitionError {
	return &StateTransitionError{RequestID: requestID, Current: current, Attempted: attempted}
}

// StorageError wraps failures from the backing store.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("approval storage %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}
