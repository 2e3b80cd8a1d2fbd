package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process setups.
// All requests are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*Request)}
}

// Create persists a new request.
func (s *MemoryStore) Create(ctx context.Context, req *Request) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("approval request must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("approval request %q already exists", req.ID)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

// Get returns a copy of the request with the given ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %q: %w", id, ErrNotFound)
	}
	return req.Clone(), nil
}

// Transition atomically applies a change to a request in the from state.
func (s *MemoryStore) Transition(ctx context.Context, id string, from Status, apply func(*Request) error) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %q: %w", id, ErrNotFound)
	}
	if current.Status != from {
		return nil, NewStateTransitionError(id, current.Status, "")
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return nil, err
	}
	s.requests[id] = next
	return next.Clone(), nil
}

// ListPending returns pending requests, oldest first.
func (s *MemoryStore) ListPending(ctx context.Context, olderThan *time.Time) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if req.Status != StatusPending {
			continue
		}
		if olderThan != nil {
			if req.ExpiresAt == nil || req.ExpiresAt.After(*olderThan) {
				continue
			}
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// List returns requests matching the filter, newest first.
func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Request
	for _, req := range s.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Requestor != "" && req.Requestor != filter.Requestor {
			continue
		}
		if filter.PolicyID != "" && req.PolicyID != filter.PolicyID {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Update rewrites a pending request in place.
func (s *MemoryStore) Update(ctx context.Context, req *Request) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("approval request must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[req.ID]
	if !ok {
		return fmt.Errorf("request %q: %w", req.ID, ErrNotFound)
	}
	if current.Status != StatusPending {
		return NewStateTransitionError(req.ID, current.Status, "")
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

// IncrementRerun bumps the rerun counter of an approved request.
func (s *MemoryStore) IncrementRerun(ctx context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %q: %w", id, ErrNotFound)
	}
	if current.Status != StatusApproved {
		return nil, NewStateTransitionError(id, current.Status, "")
	}
	current.RerunCount++
	return current.Clone(), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
