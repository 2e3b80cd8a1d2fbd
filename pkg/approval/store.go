package approval

import (
	"context"
	"time"
)

// Store persists approval requests. Implementations must make Transition,
// Update and IncrementRerun atomic with respect to concurrent callers:
// exactly one of two racing terminal transitions may succeed.
type Store interface {
	// Create persists a new request. The ID must be unique.
	Create(ctx context.Context, req *Request) error

	// Get returns the request with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Request, error)

	// Transition atomically applies a change to a request that is
	// currently in the from state. apply receives a copy to mutate and
	// its result is persisted. If the request is in any other state a
	// StateTransitionError is returned and apply is not called.
	Transition(ctx context.Context, id string, from Status, apply func(*Request) error) (*Request, error)

	// ListPending returns pending requests. When olderThan is non-nil,
	// only requests whose deadline is at or before that instant are
	// returned; requests without a deadline never match.
	ListPending(ctx context.Context, olderThan *time.Time) ([]*Request, error)

	// List returns requests matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Request, error)

	// Update rewrites the approver set, escalation level and deadline of
	// a request that is still pending. Requests in a terminal state are
	// never touched; a StateTransitionError is returned instead.
	Update(ctx context.Context, req *Request) error

	// IncrementRerun bumps the rerun counter of an approved request and
	// returns the updated request. Any other state yields a
	// StateTransitionError.
	IncrementRerun(ctx context.Context, id string) (*Request, error)

	// Close releases any underlying resources.
	Close() error
}
